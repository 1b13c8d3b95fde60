package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and the admin account",
	Long: `Init creates a new SQLite database with the marketplace schema and seeds
the administrator account from admin.username and admin.password.

It refuses to touch an existing database file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.DB); err == nil {
			return fmt.Errorf("database file %s already exists", cfg.DB)
		}

		database, _, err := db.Init(cmd.Context(), cfg.DB, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			os.Remove(cfg.DB)
			return err
		}
		database.Close()

		printInitResult(cfg.DB, cfg.AdminUsername, cfg.AdminPassword)
		return nil
	},
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	if password == db.DefaultAdminPassword {
		fmt.Println("This is the default password. Change it after logging in.")
	}
}
