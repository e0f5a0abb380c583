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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gorse-io/bookrec/common/log"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cliCommand.AddCommand(infoCommand)
}

var infoCommand = &cobra.Command{
	Use:   "info",
	Short: "Show the artifacts in the configured storage",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		a, err := loadArtifacts(cmd.Context(), conf)
		if err != nil {
			log.Logger().Fatal("failed to load artifacts", zap.Error(err))
		}
		info := a.Info()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("key", "value")
		rows := [][]string{
			{"storage", conf.Artifacts.Storage},
			{"dir", conf.Artifacts.Dir},
			{"num_users", fmt.Sprint(info.NumUsers)},
			{"num_books", fmt.Sprint(info.NumBooks)},
			{"catalog_size", fmt.Sprint(info.CatalogSize)},
			{"load_time", a.LoadDuration.Round(time.Millisecond).String()},
		}
		keys := lo.Keys(info.Properties)
		sort.Strings(keys)
		for _, key := range keys {
			rows = append(rows, []string{"properties." + key, fmt.Sprint(info.Properties[key])})
		}
		if err = table.Bulk(rows); err != nil {
			log.Logger().Fatal("failed to write table", zap.Error(err))
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}
