package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZSmain/ordo/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	UserID   string
}

// LogEntry is one event as printed by the log command. Seq 0 means the
// event is still pending confirmation.
type LogEntry struct {
	Seq     int64           `json:"seq"`
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Dump the event log in canonical order",
		Long: `Dump the event log in the order it is folded: confirmed events by
authority position first, then pending local events.

Examples:
  ordo log --db ./data/alice.db --user alice
  ordo log --db ./data/alice.db --user alice --format json --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id owning the store (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database, opts.UserID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	wires, err := st.Log(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	entries := make([]LogEntry, 0, len(wires))
	for _, w := range wires {
		entry := LogEntry{
			Seq:  w.Seq,
			ID:   w.ID,
			Name: w.Name,
		}
		if opts.Verbose {
			entry.Payload = w.Payload
		}
		entries = append(entries, entry)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: entries})
	}
	return outputLogText(cmd, entries)
}

func outputLogText(cmd *cobra.Command, entries []LogEntry) error {
	w := cmd.OutOrStdout()

	if len(entries) == 0 {
		fmt.Fprintln(w, "Event log is empty.")
		return nil
	}

	for _, e := range entries {
		pos := "pending"
		if e.Seq != 0 {
			pos = fmt.Sprintf("seq %d", e.Seq)
		}
		fmt.Fprintf(w, "%-10s %-30s %s\n", pos, e.Name, e.ID)
		if len(e.Payload) > 0 {
			fmt.Fprintf(w, "           %s\n", e.Payload)
		}
	}
	fmt.Fprintf(w, "%d event(s)\n", len(entries))
	return nil
}
