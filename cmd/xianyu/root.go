package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/config"
	"github.com/CangTianYi/CS3331/internal/db"
	"github.com/CangTianYi/CS3331/internal/imaging"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
	"github.com/CangTianYi/CS3331/internal/store"
)

var (
	flagConfig string

	// cfg is loaded by PersistentPreRunE for every subcommand.
	cfg      *config.Config
	closeLog = func() {}
)

// operator is the actor used for admin commands run from the shell.
var operator = &model.User{Username: "cli", Role: model.RoleAdmin}

var rootCmd = &cobra.Command{
	Use:           "xianyu",
	Short:         "Campus second-hand marketplace",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig, cmd.Flags())
		if err != nil {
			return err
		}

		cleanup, err := setupLogger(cfg.Log)
		if err != nil {
			return err
		}
		closeLog = cleanup
		if cfg.File != "" {
			slog.Info("config loaded", "file", cfg.File)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: ./xianyu.yaml if present)")
	rootCmd.PersistentFlags().StringP(config.KeyDB, "d", "", "SQLite database path (default: xianyu.sqlite3)")
	rootCmd.PersistentFlags().StringP(config.KeyLog, "l", "", "log file path (default: stdout/stderr only)")
	rootCmd.PersistentFlags().String(config.KeyUploads, "", "image upload directory (default: uploads)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(csvCmd)
}

// app is the wired storage and service layer.
type app struct {
	db       *db.DB
	users    *store.Users
	types    *store.Types
	items    *store.Items
	settings *store.Settings
	images   *imaging.Store

	auth   *service.Auth
	admin  *service.Admin
	market *service.Market
}

// openApp opens the database, ensures the schema and the admin account and
// builds the stores and services on top of it.
func openApp(ctx context.Context) (*app, error) {
	database, seeded, err := db.Init(ctx, cfg.DB, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	if seeded {
		slog.Warn("default admin account created, change its password",
			"username", cfg.AdminUsername)
	}
	slog.Info("database ready", "path", cfg.DB)

	images, err := imaging.NewStore(cfg.Uploads)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("upload directory: %w", err)
	}

	a := &app{
		db:       database,
		users:    store.NewUsers(database),
		types:    store.NewTypes(database),
		items:    store.NewItems(database),
		settings: store.NewSettings(database),
		images:   images,
	}
	a.auth = service.NewAuth(a.users)
	a.admin = service.NewAdmin(a.users, a.types, a.items, images)
	a.market = service.NewMarket(a.types, a.items, images)
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
