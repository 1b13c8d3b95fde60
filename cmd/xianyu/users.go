package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/model"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Moderate accounts",
}

var usersPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List accounts awaiting approval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.admin.PendingUsers(cmd.Context(), operator)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No pending users.")
			return nil
		}
		printUserTable(users)
		return nil
	},
}

var usersApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending account",
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

		changed, err := a.admin.Approve(cmd.Context(), operator, id)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("User %d is not pending; nothing changed.\n", id)
			return nil
		}
		fmt.Printf("Approved user %d.\n", id)
		return nil
	},
}

var usersRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject and delete a pending account",
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

		removed, err := a.admin.Reject(cmd.Context(), operator, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no pending user with id %d", id)
		}
		fmt.Printf("Rejected user %d.\n", id)
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersPendingCmd)
	usersCmd.AddCommand(usersApproveCmd)
	usersCmd.AddCommand(usersRejectCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// printUserTable prints users in a human-readable table format.
func printUserTable(users []model.User) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tPHONE\tREGISTERED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, u.Email, u.Phone, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
