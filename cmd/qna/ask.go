package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:     "ask <text>...",
	Short:   "Ask a question",
	GroupID: "questions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("question text is empty")
		}
		if _, err := viewerSession(ctx, slog.New(slog.NewTextHandler(os.Stderr, nil))); err != nil {
			return err
		}

		q, err := qnaClient.CreateQuestion(ctx, text)
		if err != nil {
			return fmt.Errorf("asking question: %w", err)
		}
		if jsonOutput {
			printJSON(q)
			return nil
		}
		printQuestion(cmd.OutOrStdout(), q)
		return nil
	},
}
