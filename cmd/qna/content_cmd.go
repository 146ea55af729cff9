package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/content"
	"github.com/alfredjeanlab/qna/internal/ui"
)

var contentCmd = &cobra.Command{
	Use:               "content",
	Short:             "Work with the site's book collections",
	GroupID:           "system",
	PersistentPreRunE: noClient,
}

var contentCheckCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Validate koBook and enBook front matter",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "src/content"
		if len(args) == 1 {
			root = args[0]
		}
		report, err := content.Check(root)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(report)
		} else {
			out := cmd.OutOrStdout()
			for _, issue := range report.Issues {
				if issue.Warning {
					fmt.Fprintln(out, ui.RenderMuted(issue.String()))
				} else {
					fmt.Fprintln(out, ui.RenderDanger(issue.String()))
				}
			}
			for _, coll := range content.Collections {
				fmt.Fprintf(out, "%s: %d published chapters\n", coll, len(report.Sorted(coll)))
			}
		}
		if !report.OK() {
			return fmt.Errorf("content check failed")
		}
		return nil
	},
}

func init() {
	contentCmd.AddCommand(contentCheckCmd)
}
