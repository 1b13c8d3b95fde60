// Package config loads server and CLI settings from an optional xianyu.yaml,
// XIANYU_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/CangTianYi/CS3331/internal/db"
)

const (
	configFileName = "xianyu"
	configFileType = "yaml"
	envPrefix      = "XIANYU"
)

// Config keys.
const (
	KeyDB            = "db"
	KeyAddr          = "addr"
	KeyUploads       = "uploads"
	KeyCSV           = "csv"
	KeyLog           = "log"
	KeyTokenTTL      = "token_ttl"
	KeyAdminUsername = "admin.username"
	KeyAdminPassword = "admin.password"
)

// Config is the resolved configuration.
type Config struct {
	DB            string
	Addr          string
	Uploads       string
	CSV           string
	Log           string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string

	// File is the config file that was read, if any.
	File string
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyDB, "xianyu.sqlite3")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyUploads, "uploads")
	v.SetDefault(KeyCSV, "items.csv")
	v.SetDefault(KeyLog, "")
	v.SetDefault(KeyTokenTTL, 24*time.Hour)
	v.SetDefault(KeyAdminUsername, db.DefaultAdminUsername)
	v.SetDefault(KeyAdminPassword, db.DefaultAdminPassword)
}

// Load resolves the configuration. configFile names an explicit file; when
// empty, xianyu.yaml is looked up in the working directory and a missing file
// is not an error. Flags in fs whose names match a key override everything
// else once they are set.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for _, key := range []string{KeyDB, KeyAddr, KeyUploads, KeyCSV, KeyLog} {
			if f := fs.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	cfg := &Config{
		DB:            v.GetString(KeyDB),
		Addr:          v.GetString(KeyAddr),
		Uploads:       v.GetString(KeyUploads),
		CSV:           v.GetString(KeyCSV),
		Log:           v.GetString(KeyLog),
		TokenTTL:      v.GetDuration(KeyTokenTTL),
		AdminUsername: v.GetString(KeyAdminUsername),
		AdminPassword: v.GetString(KeyAdminPassword),
		File:          v.ConfigFileUsed(),
	}
	if cfg.DB == "" {
		return nil, errors.New("config: db path must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: %s must be positive", KeyTokenTTL)
	}
	return cfg, nil
}
