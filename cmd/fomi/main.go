// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fomi CLI: catalog search with
// provider fallback, batch ingestion, and the HTTP server.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/logging"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/secrets"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is resolved once per invocation in PersistentPreRunE.
	cfg    types.Config
	logger = zap.NewNop()
)

// rootCmd is the base command for the fomi CLI.
var rootCmd = &cobra.Command{
	Use:   "fomi",
	Short: "Restaurant catalog discovery and deduplication",
	Long: `fomi maintains a restaurant catalog fed by an external places provider.

search answers queries from the local catalog and resolves unknown names
through the provider once per session, deduplicating before it stores
anything. ingest sweeps a grid of neighborhoods to grow the catalog in
bulk. serve exposes both over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = loadConfig(viper.GetViper())

		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = log
		zap.ReplaceGlobals(log)

		s, err := secrets.Load(".secrets/", log)
		if err != nil {
			return err
		}
		overlayEnvSecrets(s)
		secrets.Apply(&cfg, s)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fomi.yaml or ~/.config/fomi/fomi.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "catalog driver: sqlite, postgres, memory")
	rootCmd.PersistentFlags().String("dsn", "", "SQLite path or Postgres connection string")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("dsn"))
}

func initConfig() {
	// A .env file feeds the environment before viper reads it.
	if err := secrets.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fomi")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fomi"))
		}
	}

	configure(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
