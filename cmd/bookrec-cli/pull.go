// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/gorse-io/bookrec/artifacts"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cliCommand.AddCommand(pullCommand)
	cliCommand.AddCommand(generateCommand)
	generateCommand.Flags().Int("users", 1000, "number of users")
	generateCommand.Flags().Int("books", 10000, "number of books")
	generateCommand.Flags().Int64("seed", 0, "random seed")
}

var pullCommand = &cobra.Command{
	Use:   "pull <dir>",
	Short: "Copy artifacts from the configured storage to a local directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		src, err := blob.Open(conf.Artifacts)
		if err != nil {
			log.Logger().Fatal("failed to open storage", zap.Error(err))
		}
		dst := blob.NewPOSIX(args[0])
		bar := progressbar.Default(int64(len(artifacts.Files)), "pulling artifacts")
		for _, name := range artifacts.Files {
			data, err := blob.ReadAll(cmd.Context(), src, name)
			if err != nil {
				log.Logger().Fatal("failed to read artifact", zap.String("name", name), zap.Error(err))
			}
			if err = blob.WriteAll(dst, name, data); err != nil {
				log.Logger().Fatal("failed to write artifact", zap.String("name", name), zap.Error(errors.Trace(err)))
			}
			_ = bar.Add(1)
		}
	},
}

var generateCommand = &cobra.Command{
	Use:   "generate <dir>",
	Short: "Write synthetic artifacts to a local directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		numUsers, _ := cmd.Flags().GetInt("users")
		numBooks, _ := cmd.Flags().GetInt("books")
		seed, _ := cmd.Flags().GetInt64("seed")
		if err := artifacts.Random(numUsers, numBooks, seed).Dump(blob.NewPOSIX(args[0])); err != nil {
			log.Logger().Fatal("failed to generate artifacts", zap.Error(err))
		}
		log.Logger().Info("artifacts generated",
			zap.String("dir", args[0]),
			zap.Int("num_users", numUsers),
			zap.Int("num_books", numBooks))
	},
}
