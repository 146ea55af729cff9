package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print the board once",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := qnaClient.ListQuestions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing questions: %w", err)
		}
		if jsonOutput {
			printJSON(snap)
			return nil
		}
		qs := snap.Questions
		model.SortNewestFirst(qs)
		return view.WriteText(cmd.OutOrStdout(), view.Render(qs, model.ViewerSession{}, i18n.For(boardLang(cmd)), nil))
	},
}

func init() {
	listCmd.Flags().String("lang", string(i18n.Default), "display language (ko or en); defaults to the remote's language")
}
