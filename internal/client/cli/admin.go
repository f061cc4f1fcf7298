package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/netx"
	"github.com/spf13/cobra"
)

func newPingCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withClient(cmd, false, func(c HistoryClient) error {
				st, err := c.Ping(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", st)
				return nil
			})
		},
	}
}

// newIngestCommand sends events read from FILE, or stdin, one JSON object
// per line. Blank lines are skipped.
func newIngestCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [FILE]",
		Short: "Send network events to the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return o.withClient(cmd, true, func(c HistoryClient) error {
				stored, skipped, err := ingest(cmd, c, in)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored: %d skipped: %d\n", stored, skipped)
				return err
			})
		},
	}
}

func ingest(cmd *cobra.Command, c HistoryClient, in io.Reader) (stored, skipped int, err error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var ev history.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return stored, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		_, ok, err := c.Ingest(cmd.Context(), ev)
		if err != nil {
			return stored, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			stored++
		} else {
			skipped++
		}
	}
	return stored, skipped, sc.Err()
}

func newExpireCommand(o *options) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Drop history older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cutoff := now().Add(-olderThan).UnixMilli()
			return o.withClient(cmd, true, func(c HistoryClient) error {
				n, err := c.Expire(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "removed:", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age of the oldest history to keep")
	return cmd
}

// downloadSnapshot is a test seam for fetching a presigned snapshot.
var downloadSnapshot = netx.DownloadFromPresignedURL

// newSnapshotCommand saves a snapshot and, with --out, downloads it when the
// backend hands out a link.
func newSnapshotCommand(o *options) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a history snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withClient(cmd, true, func(c HistoryClient) error {
				id, url, err := c.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, "snapshot:", id)
				if url != "" {
					_, _ = fmt.Fprintln(out, "download:", url)
				}
				if outPath == "" {
					return nil
				}
				if url == "" {
					return fmt.Errorf("snapshot backend does not provide downloads")
				}
				return saveSnapshot(cmd, url, outPath)
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "download the snapshot to this file")
	return cmd
}

func saveSnapshot(cmd *cobra.Command, url, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := downloadSnapshot(cmd.Context(), url, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download snapshot: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved: %s (%d bytes)\n", path, n)
	return nil
}
