package store

import (
	"context"
	"fmt"

	"github.com/ZSmain/ordo/internal/event"
)

// Commit validates an event, appends it to the log, and materializes it
// into the tables, all in one transaction. Callers observe up-to-date
// tables (and live queries) as soon as Commit returns.
//
// Committing an event id that is already in the log is a no-op: the log
// never holds duplicates, so retransmission is naturally idempotent.
//
// Commit succeeds regardless of connectivity; syncable events are queued
// for push by remaining unconfirmed in the log.
func (s *Store) Commit(ctx context.Context, ev event.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("commit: event id is required")
	}
	if err := event.CheckValid(ev.Payload); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w, err := event.Encode(ev)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback()

	synced := 0
	if ev.Payload.Synced() {
		synced = 1
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, name, payload, origin, authority_seq, synced)
		VALUES (?, ?, ?, 'local', NULL, ?)
		ON CONFLICT(id) DO NOTHING
	`, w.ID, w.Name, string(w.Payload), synced)
	if err != nil {
		return fmt.Errorf("commit: append: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit: rows affected: %w", err)
	}
	if inserted == 0 {
		// Duplicate delivery; tables already reflect this event.
		return nil
	}

	if err := materialize(ctx, tx, ev.Payload); err != nil {
		return fmt.Errorf("commit: materialize %s: %w", w.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.refreshQueries(ctx, tableFor(ev.Payload))

	if ev.Payload.Synced() {
		s.notifyCommit()
	}
	return nil
}
