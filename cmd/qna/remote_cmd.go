package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/i18n"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage the boards this machine talks to",
	GroupID: "system",
	// All remote subcommands are local file operations.
	PersistentPreRunE: noClient,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a board",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := Remote{URL: strings.TrimRight(args[1], "/")}
		r.GRPCAddr, _ = cmd.Flags().GetString("grpc")
		r.Token, _ = cmd.Flags().GetString("token")
		r.Lang, _ = cmd.Flags().GetString("lang")
		r.Description, _ = cmd.Flags().GetString("description")
		if r.Lang != "" && r.Lang != string(i18n.Korean) && r.Lang != string(i18n.English) {
			return fmt.Errorf("unsupported language %q (want ko or en)", r.Lang)
		}

		if err := updateRemotes(func(cfg *RemotesConfig) error {
			cfg.Set(args[0], r)
			return nil
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.Remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteLogoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Forget the identity stored for a board (default: the active one)",
	Long: `Forget the identity stored for a board. The next command against it
signs in again as a new anonymous viewer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		err := updateRemotes(func(cfg *RemotesConfig) error {
			name = cfg.Active
			if len(args) == 1 {
				name = args[0]
			}
			r, ok := cfg.Remotes[name]
			if !ok {
				return fmt.Errorf("remote %q not found", name)
			}
			r.Token = ""
			cfg.Remotes[name] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "identity for %q forgotten\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all boards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(out, "no remotes configured")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tGRPC\tLANG\tTOKEN\tDESCRIPTION")
		for _, name := range cfg.Names() {
			r := cfg.Remotes[name]
			marker := "  "
			if name == cfg.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\t%s\n", marker, name, r.URL, r.GRPCAddr, r.Lang, maskToken(r.Token), r.Description)
		}
		return w.Flush()
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active board (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.Use(name) }); err != nil {
			return err
		}
		if name == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "active remote cleared")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", name)
		}
		return nil
	},
}

// maskToken shows only the first eight characters of a token.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8] + "****"
}

func init() {
	remoteAddCmd.Flags().String("grpc", "", "gRPC address of the board")
	remoteAddCmd.Flags().String("token", "", "identity token to use with this board")
	remoteAddCmd.Flags().String("lang", "", "board language for this remote (ko or en)")
	remoteAddCmd.Flags().String("description", "", "human-readable description")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteLogoutCmd, remoteListCmd, remoteUseCmd)
}
