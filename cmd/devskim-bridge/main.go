// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command devskim-bridge runs the DevSkim editor bridge.
//
// The binary is normally embedded by an editor shim that supplies the real
// host adapter; run standalone it activates against a headless stub host,
// which is useful for smoke-testing engine launch and the startup sweep:
//
//	devskim-bridge run --workspace /path/to/project
//	devskim-bridge run --debug --engine /usr/local/bin/devskim-language-server
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devskim-tools/editor-bridge/pkg/logging"
	"github.com/devskim-tools/editor-bridge/services/devskim/activation"
	"github.com/devskim-tools/editor-bridge/services/devskim/bridge"
	"github.com/devskim-tools/editor-bridge/services/devskim/settings"
)

var (
	flagEngine    string
	flagWorkspace string
	flagConfig    string
	flagLogDir    string
	flagDebug     bool
	flagJSONLogs  bool

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "devskim-bridge",
		Short: "Editor-side bridge to the DevSkim analysis engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A local .env may carry engine settings during development.
			_ = godotenv.Load()

			level := logging.LevelInfo
			if flagDebug {
				level = logging.LevelDebug
			}
			logger = logging.New(logging.Config{
				Level:   level,
				LogDir:  flagLogDir,
				Service: "devskim-bridge",
				JSON:    flagJSONLogs,
			})
			logging.SetDefault(logger)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Activate the bridge and run until interrupted",
		RunE:  runBridge,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("devskim-bridge: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "launch the engine in debug mode and log verbosely")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "emit stderr logs as JSON")

	runCmd.Flags().StringVar(&flagEngine, "engine", "", "engine binary (default: devskim-language-server on PATH)")
	runCmd.Flags().StringVar(&flagWorkspace, "workspace", "", "workspace root (default: current directory)")
	runCmd.Flags().StringVar(&flagConfig, "config", "", "configuration file with a devskim section")

	rootCmd.AddCommand(runCmd)
}

// loadConfig builds the devskim.* configuration surface from the optional
// config file plus DEVSKIM_-prefixed environment variables.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	settings.BindEnv(v)

	if flagConfig != "" {
		v.SetConfigFile(flagConfig)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	workspace := flagWorkspace
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			return err
		}
	}

	opts := bridge.DefaultOptions()
	opts.Command = firstNonEmpty(flagEngine, opts.Command)
	opts.Debug = flagDebug
	opts.WorkDir = workspace

	conn := bridge.NewConnection(opts)
	h := newStubHost(workspace)

	ctx := context.Background()
	if err := activation.Activate(ctx, h, conn, activation.Options{Config: cfg}); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	h.DisposeAll()
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
