package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/client"
	"github.com/alfredjeanlab/qna/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	token      string
	jsonOutput bool

	qnaClient client.Client
	// signer issues anonymous tokens; it is always the HTTP client because
	// sign-in has no gRPC method.
	signer *client.HTTPClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("QNA_HTTP_URL"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.URL != "" {
		return r.URL
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("QNA_SERVER"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.GRPCAddr != "" {
		return r.GRPCAddr
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("QNA_TOKEN"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok {
		return r.Token
	}
	return ""
}

// noClient skips client setup for commands that work on local state only.
func noClient(cmd *cobra.Command, args []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "qna <command>",
	Short:         "Live Q&A board: server and command-line viewer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		signer = client.NewHTTPClient(httpURL, token)
		switch transport {
		case "http":
			qnaClient = signer
		case "grpc":
			c, err := client.NewGRPCClient(serverAddr, token, nil)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			qnaClient = c
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if qnaClient != nil {
			qnaClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "identity token (default: active remote's token)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "questions", Title: "Questions:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Questions
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(answerCmd)

	// Views
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(whoamiCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(contentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderDanger("Error:"), err)
		os.Exit(1)
	}
}
