package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/model"
)

var answerCmd = &cobra.Command{
	Use:   "answer <id> [text]...",
	Short: "Answer a question (admin only)",
	Long: `Set the answer of a question. With no text, or with --clear, the
answer is retracted and the question shows as unanswered again.`,
	GroupID: "questions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := args[0]
		retract, _ := cmd.Flags().GetBool("clear")

		var answer *string
		if !retract {
			answer = model.NormalizeAnswer(strings.Join(args[1:], " "))
		}

		session, err := viewerSession(ctx, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err != nil {
			return err
		}
		if !session.IsAdmin {
			return fmt.Errorf("%s is not the admin", session.UID())
		}

		q, err := qnaClient.SetAnswer(ctx, id, answer)
		if err != nil {
			return fmt.Errorf("saving answer: %w", err)
		}
		if jsonOutput {
			printJSON(q)
			return nil
		}
		printQuestion(cmd.OutOrStdout(), q)
		return nil
	},
}

func init() {
	answerCmd.Flags().Bool("clear", false, "retract the answer")
}
