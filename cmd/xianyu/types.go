package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/model"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Manage item types",
}

var typesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List item types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		types, err := a.market.Types(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tATTRIBUTES")
		for _, t := range types {
			fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Name, formatAttributes(t.Attributes))
		}
		return w.Flush()
	},
}

var typeAttrs []string

var typesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an item type",
	Long: `Create adds an item type. Custom attributes are given as name:kind pairs,
where kind is text, number or date (text when omitted).

Example:
  xianyu types create Books --attr Author --attr Pages:number --attr Published:date`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attrs := make([]model.Attribute, 0, len(typeAttrs))
		for _, spec := range typeAttrs {
			name, kind, _ := strings.Cut(spec, ":")
			attrs = append(attrs, model.Attribute{Name: name, Type: kind})
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		typ, err := a.admin.CreateType(cmd.Context(), operator, args[0], attrs)
		if err != nil {
			return err
		}
		fmt.Printf("Created type %d (%s) %s\n", typ.ID, typ.Name, formatAttributes(typ.Attributes))
		return nil
	},
}

var typesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item type and all of its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.admin.DeleteType(cmd.Context(), operator, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no type with id %d", id)
		}
		fmt.Printf("Deleted type %d.\n", id)
		return nil
	},
}

func init() {
	typesCreateCmd.Flags().StringArrayVar(&typeAttrs, "attr", nil, "custom attribute as name[:kind], repeatable")

	typesCmd.AddCommand(typesListCmd)
	typesCmd.AddCommand(typesCreateCmd)
	typesCmd.AddCommand(typesDeleteCmd)
}

func formatAttributes(attrs []model.Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.Name + ":" + a.Type
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
