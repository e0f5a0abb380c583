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
	"context"
	"fmt"

	"github.com/gorse-io/bookrec/artifacts"
	"github.com/gorse-io/bookrec/cmd/version"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cliCommand = &cobra.Command{
	Use:   "bookrec-cli",
	Short: "CLI for book recommendation artifacts",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugMode, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debugMode)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Check the version of bookrec",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(cliCommand.PersistentFlags())
	cliCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	cliCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	cliCommand.AddCommand(versionCommand)
}

func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

// loadArtifacts loads and validates artifacts from the configured storage.
func loadArtifacts(ctx context.Context, conf *config.Config) (*artifacts.Artifacts, error) {
	store, err := blob.Open(conf.Artifacts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	a, err := artifacts.Load(ctx, store)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = a.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return a, nil
}

func main() {
	if err := cliCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
