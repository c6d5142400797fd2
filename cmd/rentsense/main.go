// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rentsense CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/logging"
	"github.com/pdiddy/rentsense/internal/secrets"
	"github.com/pdiddy/rentsense/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appCfg and logger are populated before any subcommand runs.
var (
	appCfg types.AppConfig
	logger = zap.NewNop()
)

// rootCmd is the base command for the rentsense CLI.
var rootCmd = &cobra.Command{
	Use:   "rentsense",
	Short: "Conversational neighborhood recommendations",
	Long: `rentsense learns what a renter cares about through a short conversation
and ranks neighborhoods by how well they fit. Preferences are tracked as
weights over eight livability dimensions; a reasoning oracle (Claude or
Gemini) reads free text and decides when enough has been learned.

Run "rentsense serve" for the HTTP API used by the map frontend, or
"rentsense chat" for a terminal session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper(), cmd)
		if err != nil {
			return err
		}

		log, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir, log)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			log.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		s.Apply(&cfg.Oracle)

		appCfg = cfg
		logger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./rentsense.yaml or ~/.config/rentsense/rentsense.yaml)")
	pf.String("profile", "", "engine profile: "+strings.Join(types.ProfileNames(), ", "))
	pf.String("provider", "", "oracle provider: claude, gemini, or none")
	pf.String("model", "", "oracle model identifier")
	pf.String("csv", "", "scores CSV path")
	pf.String("db", "", "SQLite catalog path")
	pf.String("log-level", "", "log level: debug, info, warn, or error")
	pf.String("log-format", "", "log format: console or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rentsense")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rentsense"))
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
