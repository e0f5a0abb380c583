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
	"os"
	"strconv"

	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/client"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/logics"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cliCommand.AddCommand(predictCommand)
	predictCommand.Flags().StringSlice("genres", nil, "genres every recommended book must carry")
	predictCommand.Flags().Int("count", 0, "number of recommended books (default from config)")
	predictCommand.Flags().Bool("skip-history", false, "do not exclude books the user has read")
}

type emptyHistory struct{}

func (emptyHistory) GetBooksRead(context.Context, int64) client.Outcome {
	return client.Outcome{Kind: client.Success}
}

var predictCommand = &cobra.Command{
	Use:   "predict <user-id>",
	Short: "Recommend books for a user with local artifacts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Logger().Fatal("invalid user id", zap.String("user_id", args[0]))
		}
		tags, _ := cmd.Flags().GetStringSlice("genres")
		genres, err := catalog.ParseGenres(tags)
		if err != nil {
			log.Logger().Fatal("invalid genres", zap.Error(err))
		}
		conf := loadConfig(cmd)
		count, _ := cmd.Flags().GetInt("count")
		if count == 0 {
			count = conf.Recommend.DefaultCount
		}
		a, err := loadArtifacts(cmd.Context(), conf)
		if err != nil {
			log.Logger().Fatal("failed to load artifacts", zap.Error(err))
		}
		var readHistory logics.ReadHistory = client.NewReadHistoryClient(conf.ReadHistory.BaseURL, conf.ReadHistory.Timeout)
		if skip, _ := cmd.Flags().GetBool("skip-history"); skip {
			readHistory = emptyHistory{}
		}
		a.Model.SetJobs(conf.Recommend.ScoreJobs)
		recommender := logics.NewRecommender(conf.Recommend, a.Factorization, a.Catalog, a.Model, readHistory)
		result, err := recommender.Predict(cmd.Context(), userId, genres, count)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("rank", "book_id", "title", "author", "score")
		for i, item := range result.Items {
			if err = table.Append(strconv.Itoa(i+1), strconv.FormatInt(item.BookID, 10), item.Title, item.Author,
				fmt.Sprintf("%.4f", item.Score)); err != nil {
				log.Logger().Fatal("failed to write table", zap.Error(err))
			}
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
		fmt.Printf("%d of %d candidates in %v\n", result.Count, result.TotalCandidates, result.Elapsed)
	},
}
