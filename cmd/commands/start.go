/*
Copyright 2026 The Aqiflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aqiflow/aqiflow"
	"github.com/aqiflow/aqiflow/pkg/config"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func NewStartCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:   "start",
		Short: "Start the aggregation engine with the configured sources and sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			log := logging.NewLogger().Named("aqiflow")
			log.Infow("Starting aqiflow", "version", aqiflow.GetVersion())

			ctx, stop := signalContext(logging.WithLogger(cmd.Context(), log))
			defer stop()
			srcs, err := buildSources(ctx, cfg, log)
			if err != nil {
				return err
			}
			return run(ctx, cfg, srcs)
		},
	}
	command.Flags().StringVarP(&configFile, "config", "c", "", "Path of a YAML, JSON or TOML config file")
	config.AddFlags(command.Flags())
	return command
}
