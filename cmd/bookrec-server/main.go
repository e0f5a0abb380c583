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
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/bookrec/artifacts"
	"github.com/gorse-io/bookrec/cmd/version"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var serverCommand = &cobra.Command{
	Use:   "bookrec-server",
	Short: "Book recommendation server.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		showVersion, _ := cmd.PersistentFlags().GetBool("version")
		if showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debugMode, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debugMode)
		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		// setup tracing
		if conf.Tracing.Enable {
			tp, err := conf.Tracing.NewTracerProvider()
			if err != nil {
				log.Logger().Fatal("failed to create trace provider", zap.Error(err))
			}
			otel.SetTracerProvider(tp)
			otel.SetErrorHandler(log.GetErrorHandler())
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					log.Logger().Error("failed to shutdown trace provider", zap.Error(err))
				}
			}()
		}

		s := server.NewServer(conf)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		// load artifacts while / reports loading
		go func() {
			numUsers, _ := cmd.PersistentFlags().GetInt("random-users")
			numBooks, _ := cmd.PersistentFlags().GetInt("random-books")
			if numUsers > 0 && numBooks > 0 {
				log.Logger().Warn("serve random artifacts",
					zap.Int("num_users", numUsers),
					zap.Int("num_books", numBooks))
				s.Serve(artifacts.Random(numUsers, numBooks, time.Now().UnixNano()))
				return
			}
			if err := s.Load(ctx); err != nil {
				log.Logger().Fatal("failed to load artifacts", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Logger().Error("failed to shutdown server", zap.Error(err))
			}
		}()
		if err := s.Run(); err != nil {
			log.Logger().Fatal("failed to run server", zap.Error(err))
		}
		log.Logger().Info("server stopped")
	},
}

func init() {
	log.AddFlags(serverCommand.PersistentFlags())
	serverCommand.PersistentFlags().BoolP("version", "v", false, "bookrec version")
	serverCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	serverCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	serverCommand.PersistentFlags().Int("random-users", 0, "serve synthetic artifacts with this many users")
	serverCommand.PersistentFlags().Int("random-books", 0, "serve synthetic artifacts with this many books")
}

func main() {
	if err := serverCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
