package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show this machine's identity on the server",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := viewerSession(cmd.Context(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]any{"uid": session.UID(), "is_admin": session.IsAdmin})
			return nil
		}
		role := "viewer"
		if session.IsAdmin {
			role = "admin"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", session.UID(), role)
		return nil
	},
}
