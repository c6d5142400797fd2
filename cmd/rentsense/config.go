// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rentsense/pkg/types"
)

// flagKeys maps command-line flags to configuration keys. A flag only
// overrides the file and environment when it was set explicitly.
var flagKeys = map[string]string{
	"profile":    "engine.profile",
	"provider":   "oracle.provider",
	"model":      "oracle.model",
	"csv":        "dataset.csv_path",
	"db":         "dataset.db_path",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"addr":       "server.addr",
}

// bindEnv maps keys such as oracle.provider to RENTSENSE_ORACLE_PROVIDER.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("RENTSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every non-engine key so that environment
// variables are seen by Unmarshal. Engine values come from the selected
// profile instead.
func setDefaults(v *viper.Viper, d types.AppConfig) {
	v.SetDefault("engine.profile", d.Engine.Profile)

	v.SetDefault("oracle.provider", string(d.Oracle.Provider))
	v.SetDefault("oracle.model", d.Oracle.Model)
	v.SetDefault("oracle.api_key", d.Oracle.APIKey)
	v.SetDefault("oracle.max_tokens", d.Oracle.MaxTokens)
	v.SetDefault("oracle.timeout", d.Oracle.Timeout)
	v.SetDefault("oracle.user_agent", d.Oracle.UserAgent)

	v.SetDefault("dataset.csv_path", d.Dataset.CSVPath)
	v.SetDefault("dataset.db_path", d.Dataset.DBPath)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// loadConfig layers defaults, the selected engine profile, the config
// file, RENTSENSE_* environment variables and explicit flags, then
// validates the result. cmd may be nil.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (types.AppConfig, error) {
	setDefaults(v, types.DefaultAppConfig())

	if cmd != nil {
		for flag, key := range flagKeys {
			f := cmd.Flags().Lookup(flag)
			if f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
	}

	name := v.GetString("engine.profile")
	engine, ok := types.Profile(name)
	if !ok {
		return types.AppConfig{}, fmt.Errorf("unknown profile %q", name)
	}
	cfg := types.AppConfig{Engine: engine}

	if err := v.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Engine.Profile = engine.Profile

	if err := cfg.Validate(); err != nil {
		return types.AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after defaults, the selected profile,
the config file, environment variables and flags have been applied. API
keys are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg
		if cfg.Oracle.APIKey != "" {
			cfg.Oracle.APIKey = "<redacted>"
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
