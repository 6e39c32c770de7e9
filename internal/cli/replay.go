package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZSmain/ordo/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	UserID   string
}

// ReplayResult holds the replay verification result.
type ReplayResult struct {
	Events        int  `json:"events"`
	Deterministic bool `json:"deterministic"`
	TablesCurrent bool `json:"tables_current"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild tables from the event log and verify determinism",
		Long: `Rebuild the materialized tables from the event log and verify that
replay is deterministic.

The log is folded twice and the resulting snapshots compared byte for
byte. The snapshot found on disk before replaying is also compared
against the rebuilt one, so drift between tables and log is reported.

Exit codes:
  0 - Replay is deterministic and tables match the log
  1 - Verification failed
  2 - Command error (database not found, etc.)

Examples:
  ordo replay --db ./data/alice.db --user alice
  ordo replay --db ./data/alice.db --user alice --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id owning the store (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database, opts.UserID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	log, err := st.Log(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	before, err := snapshotBytes(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to snapshot tables", err)
	}

	first, err := replayOnce(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "first replay failed", err)
	}
	second, err := replayOnce(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "second replay failed", err)
	}

	result := ReplayResult{
		Events:        len(log),
		Deterministic: bytes.Equal(first, second),
		TablesCurrent: bytes.Equal(before, first),
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

func replayOnce(ctx context.Context, st *store.Store) ([]byte, error) {
	if err := st.Replay(ctx); err != nil {
		return nil, err
	}
	return snapshotBytes(ctx, st)
}

func snapshotBytes(ctx context.Context, st *store.Store) ([]byte, error) {
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Marshal()
}

func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replayed %d event(s)\n", result.Events)
	if result.TablesCurrent {
		fmt.Fprintln(w, "✓ Tables matched the log before replay")
	} else {
		fmt.Fprintln(w, "  Tables were stale and have been rebuilt")
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
