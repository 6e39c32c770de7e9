package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ZSmain/ordo/internal/event"
)

// materializedTables lists every derived table, in clearing order.
var materializedTables = []string{
	"categories",
	"activities",
	"activity_categories",
	"time_sessions",
	"ui_state",
}

// canonicalOrder folds confirmed events first (authority order), then
// unconfirmed local events (local commit order). This is the one total
// order all reads derive from.
const canonicalOrder = `
	ORDER BY (authority_seq IS NULL) ASC, authority_seq ASC, seq ASC
`

// Replay rebuilds every materialized table from an empty state by folding
// the full event log in canonical order. The result is identical to the
// incremental materialization that produced the tables in the first
// place; replayed and live stores cannot be told apart.
func (s *Store) Replay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replayLocked(ctx); err != nil {
		return err
	}

	s.refreshQueries(ctx, materializedTables...)
	return nil
}

func (s *Store) replayLocked(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replay: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range materializedTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("replay: clear %s: %w", table, err)
		}
	}

	events, err := readLog(ctx, tx)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	for _, w := range events {
		ev, err := event.Decode(w)
		if err != nil {
			return fmt.Errorf("replay: event %s: %w", w.ID, err)
		}
		if err := materialize(ctx, tx, ev.Payload); err != nil {
			return fmt.Errorf("replay: materialize %s: %w", w.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// readLog returns the full log in canonical order.
func readLog(ctx context.Context, q queryer) ([]event.Wire, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, payload, COALESCE(authority_seq, 0) FROM events`+canonicalOrder)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer rows.Close()

	var events []event.Wire
	for rows.Next() {
		var w event.Wire
		var payload string
		if err := rows.Scan(&w.ID, &w.Name, &payload, &w.Seq); err != nil {
			return nil, fmt.Errorf("read log: scan: %w", err)
		}
		w.Payload = json.RawMessage(payload)
		events = append(events, w)
	}
	return events, rows.Err()
}

// Log returns the full event log in canonical order. Used by the CLI to
// dump and inspect a partition's history.
func (s *Store) Log(ctx context.Context) ([]event.Wire, error) {
	return readLog(ctx, s.db)
}
