package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/config"
	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/model"
)

var tokenCmd = &cobra.Command{
	Use:   "token <uid>",
	Short: "Mint an identity token (for the admin)",
	Long: `Mint a signed identity token for uid using the server's
QNA_TOKEN_SECRET. Give the admin a token for QNA_ADMIN_UID, then add it to
a remote with 'qna remote add <name> <url> --token <token>'.`,
	GroupID:           "system",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		issuer, err := identity.NewIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL, nil)
		if err != nil {
			return err
		}
		tok, err := issuer.Issue(&model.Identity{UID: args[0]})
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}
