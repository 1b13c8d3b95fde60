package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/config"
	"github.com/CangTianYi/CS3331/internal/csvstore"
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Manage the standalone CSV item list",
	Long: `The CSV item list is a flat file of id, name, description and contact
columns kept apart from the database.`,
}

var csvListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all CSV items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := csvstore.Open(cfg.CSV)
		if err != nil {
			return err
		}
		printCSVItems(s.All())
		return nil
	},
}

var csvAddCmd = &cobra.Command{
	Use:   "add <name> [description] [contact]",
	Short: "Add a CSV item",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := csvstore.Open(cfg.CSV)
		if err != nil {
			return err
		}
		fields := append(args, "", "")
		item, err := s.Add(fields[0], fields[1], fields[2])
		if err != nil {
			return err
		}
		fmt.Printf("Added %s.\n", item.ID)
		return nil
	},
}

var csvDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a CSV item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := csvstore.Open(cfg.CSV)
		if err != nil {
			return err
		}
		removed, err := s.Delete(args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no CSV item with id %s", args[0])
		}
		fmt.Printf("Deleted %s.\n", args[0])
		return nil
	},
}

var csvSearchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search CSV items by name or description",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := csvstore.Open(cfg.CSV)
		if err != nil {
			return err
		}
		keyword := ""
		if len(args) == 1 {
			keyword = args[0]
		}
		printCSVItems(s.Search(keyword))
		return nil
	},
}

func init() {
	csvCmd.PersistentFlags().String(config.KeyCSV, "", "CSV file path (default: items.csv)")

	csvCmd.AddCommand(csvListCmd)
	csvCmd.AddCommand(csvAddCmd)
	csvCmd.AddCommand(csvDeleteCmd)
	csvCmd.AddCommand(csvSearchCmd)
}

func printCSVItems(items []csvstore.Item) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCONTACT")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Description, it.ContactInfo)
	}
	w.Flush()
}
