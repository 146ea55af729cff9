package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/ui"
)

// helpRule styles every match of re in cobra's plain help text.
type helpRule struct {
	re    *regexp.Regexp
	style func(parts []string) string
}

var helpRules = []helpRule{
	// Section headers such as "Questions:" or "Flags:". "Usage:" stays plain.
	{
		re: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		style: func(p []string) string {
			if p[1] == "Usage:" {
				return p[0]
			}
			return ui.RenderAccent(strings.TrimSpace(p[1]))
		},
	},
	// Command names in the command list.
	{
		re:    regexp.MustCompile(`(?m)^(  )(\S+)(  )`),
		style: func(p []string) string { return p[1] + ui.RenderCommand(p[2]) + p[3] },
	},
	// Flag value types, e.g. "--server string".
	{
		re:    regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice)\b`),
		style: func(p []string) string { return p[1] + ui.RenderMuted(p[2]) },
	},
	// Defaults, e.g. (default "http").
	{
		re:    regexp.MustCompile(`\(default "[^"]*"\)`),
		style: func(p []string) string { return ui.RenderMuted(p[0]) },
	},
}

// colorizedHelpFunc returns a Cobra help function that colors the default
// help text when the terminal supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		orig := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)
		fmt.Fprint(orig, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			return r.style(r.re.FindStringSubmatch(match))
		})
	}
	return s
}
