package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voice-phone/internal/application"
	"voice-phone/internal/domain"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Resolve a transcript to an action without listening",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := domain.Normalize(strings.Join(args, " "))
		resp := application.NewDispatcher(nil).Classify(text)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "action: %s\n", resp.Action)
		fmt.Fprintf(out, "label:  %s\n", resp.Display())
		fmt.Fprintf(out, "speech: %s\n", resp.Speech)
		return nil
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the actions in the order they are matched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, action := range application.NewDispatcher(nil).Patterns() {
			fmt.Fprintf(out, "%2d  %s\n", i+1, action)
		}
		return nil
	},
}
