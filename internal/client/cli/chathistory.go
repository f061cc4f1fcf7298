package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/revrsefr/sable/internal/timex"
	"github.com/spf13/cobra"
)

func printLines(cmd *cobra.Command, lines []string) {
	out := cmd.OutOrStdout()
	for _, l := range lines {
		_, _ = fmt.Fprintln(out, l)
	}
}

// newChatHistoryCommand passes its arguments through as CHATHISTORY
// parameters, e.g. "LATEST #go * 50" or "BEFORE bob timestamp=... 10".
func newChatHistoryCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "chathistory SUBCOMMAND TARGET [REF...] LIMIT",
		Short:   "Run a CHATHISTORY query",
		Aliases: []string{"ch"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, true, func(c HistoryClient) error {
				lines, err := c.ChatHistory(cmd.Context(), args)
				if err != nil {
					return err
				}
				printLines(cmd, lines)
				return nil
			})
		},
	}
}

// newTargetsCommand lists recent conversations. FROM TO LIMIT are passed
// through as TARGETS parameters; without them the window is the last
// --since and the limit is --limit.
func newTargetsCommand(o *options) *cobra.Command {
	var (
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "targets [FROM TO LIMIT]",
		Short: "List recent conversations",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or FROM TO LIMIT, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			params := append([]string{"TARGETS"}, args...)
			if len(args) == 0 {
				if since <= 0 {
					return fmt.Errorf("--since must be positive")
				}
				if limit <= 0 {
					return fmt.Errorf("--limit must be positive")
				}
				upper := now().UnixMilli()
				lower := upper - since.Milliseconds()
				params = append(params,
					"timestamp="+timex.FormatTimestamp(lower),
					"timestamp="+timex.FormatTimestamp(upper),
					strconv.Itoa(limit),
				)
			}

			return o.withClient(cmd, true, func(c HistoryClient) error {
				lines, err := c.ChatHistory(cmd.Context(), params)
				if err != nil {
					return err
				}
				printLines(cmd, lines)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum conversations")
	return cmd
}
