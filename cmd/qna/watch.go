package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/tui"
	"github.com/alfredjeanlab/qna/internal/ui"
	"github.com/alfredjeanlab/qna/internal/view"
	"github.com/alfredjeanlab/qna/internal/widget"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live board",
	Long: `Open the live board in the terminal. Questions appear as they are
asked; the admin can also edit answers inline.

With --plain, or when stdout is not a terminal, the board is printed again
after every change instead.`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		plain, _ := cmd.Flags().GetBool("plain")
		plain = plain || !ui.IsTerminal(os.Stdout)

		// Log lines would tear the full-screen board.
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		if !plain {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}

		session, err := viewerSession(ctx, logger)
		if err != nil {
			return err
		}

		w := widget.New(qnaClient, session, i18n.For(boardLang(cmd)), widget.WithLogger(logger))
		snaps := qnaClient.Stream(ctx, w.SetConnected)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx, snaps) }()

		if plain {
			err = printRenders(ctx, cmd.OutOrStdout(), w.Renders())
		} else {
			err = tui.Run(ctx, w)
		}
		cancel()
		<-done
		return err
	},
}

// printRenders prints every tree until ctx is done.
func printRenders(ctx context.Context, out io.Writer, renders <-chan *view.Tree) error {
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-renders:
			if !first {
				fmt.Fprintln(out, ui.RenderMuted("────────"))
			}
			first = false
			if err := view.WriteText(out, t); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().Bool("plain", false, "print the board after every change instead of the interactive view")
	watchCmd.Flags().String("lang", string(i18n.Default), "display language (ko or en); defaults to the remote's language")
}
