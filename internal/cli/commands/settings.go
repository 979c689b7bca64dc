package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/fraglog/pkg/config"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

const (
	// EnvPrefix prefixes environment variables that override flags.
	EnvPrefix = "FRAGLOG"

	// SettingsName is the settings file looked up in . and $HOME (.yaml).
	SettingsName = ".fraglog"
)

// LoadSettings resolves the command's flags through viper: an explicitly set
// flag wins, then FRAGLOG_* environment variables, then .fraglog.yaml, then
// the flag default.
func LoadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(SettingsName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings file: %w", err)
		}
	}

	return v, nil
}

// loadConfig loads the parsing rules file, or the stock configuration when
// no path is given.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// storeOverrides applies --store and --store-dsn. Changing the backend
// without a dsn drops the dsn of the previous backend.
func storeOverrides(cfg *config.Config, backend, dsn string) {
	if backend != "" && config.StoreBackend(backend) != cfg.Store.Backend {
		cfg.Store.Backend = config.StoreBackend(backend)
		cfg.Store.DSN = ""
	}
	if dsn != "" {
		cfg.Store.DSN = dsn
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
