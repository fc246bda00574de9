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
	"github.com/spf13/cobra"

	"github.com/aqiflow/aqiflow/pkg/config"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sources"
	filesource "github.com/aqiflow/aqiflow/pkg/sources/file"
)

func NewReplayCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:   "replay FILE",
		Short: "Aggregate an NDJSON file, \"-\" for stdin, and flush every window at EOF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			// only the file is read, the other sources and the API server stay off.
			cfg.Sources = config.SourcesConfig{File: config.FileSourceConfig{Enabled: true, Path: args[0]}}
			cfg.Server.Enabled = false

			log := logging.NewLogger().Named("aqiflow-replay")
			ctx, stop := signalContext(logging.WithLogger(cmd.Context(), log))
			defer stop()
			var src *filesource.FileSource
			if args[0] == filesource.Stdin {
				src = filesource.New(args[0], filesource.WithLogger(log), filesource.WithReader(cmd.InOrStdin()))
			} else {
				src = filesource.New(args[0], filesource.WithLogger(log))
			}
			return run(ctx, cfg, []sources.Source{src})
		},
	}
	command.Flags().StringVarP(&configFile, "config", "c", "", "Path of a YAML, JSON or TOML config file")
	config.AddFlags(command.Flags())
	return command
}
