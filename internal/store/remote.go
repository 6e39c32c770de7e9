package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ZSmain/ordo/internal/event"
)

// ApplyRemote folds a batch of authority-confirmed events into the store.
// Each element must carry the authority-assigned Seq.
//
// Two cases per event:
//   - the id already exists locally: this is the echo of our own push, and
//     the event is marked confirmed at its authority position. Tables are
//     untouched - they already reflect it.
//   - the id is new: a foreign event from another device. It is appended
//     as confirmed and the tables are rebuilt by full replay, which slots
//     it into authority order ahead of any still-unconfirmed local events.
//
// Pulled events run through the identical materialization path as local
// commits; the store cannot distinguish replayed history from a live pull.
func (s *Store) ApplyRemote(ctx context.Context, batch []event.Wire) error {
	if len(batch) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply remote: begin tx: %w", err)
	}
	defer tx.Rollback()

	foreign := 0
	for _, w := range batch {
		if w.ID == "" || w.Seq == 0 {
			return fmt.Errorf("apply remote: event %q missing id or authority seq", w.ID)
		}
		// Decode up front so an unknown kind fails the whole batch before
		// anything is written.
		ev, err := event.Decode(w)
		if err != nil {
			return fmt.Errorf("apply remote: %w", err)
		}
		// Device-local kinds never arrive from the authority; one in a
		// batch means a misbehaving peer and taints the whole batch.
		if !ev.Payload.Synced() {
			return fmt.Errorf("apply remote: event %s: device-local kind %s", w.ID, w.Name)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE events SET authority_seq = ? WHERE id = ?`, w.Seq, w.ID)
		if err != nil {
			return fmt.Errorf("apply remote: confirm %s: %w", w.ID, err)
		}
		confirmed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply remote: rows affected: %w", err)
		}
		if confirmed > 0 {
			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, name, payload, origin, authority_seq, synced)
			VALUES (?, ?, ?, 'remote', ?, 1)
		`, w.ID, w.Name, string(w.Payload), w.Seq); err != nil {
			return fmt.Errorf("apply remote: append %s: %w", w.ID, err)
		}
		foreign++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply remote: %w", err)
	}

	if foreign == 0 {
		// Pure confirmation of our own events; no table changed.
		return nil
	}

	if err := s.replayLocked(ctx); err != nil {
		return err
	}
	s.refreshQueries(ctx, materializedTables...)
	return nil
}

// Pending returns local syncable events not yet confirmed by the
// authority, in local commit order. This is the outbound push queue.
func (s *Store) Pending(ctx context.Context) ([]event.Wire, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, payload FROM events
		WHERE origin = 'local' AND authority_seq IS NULL AND synced = 1
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("pending: %w", err)
	}
	defer rows.Close()

	var pending []event.Wire
	for rows.Next() {
		var w event.Wire
		var payload string
		if err := rows.Scan(&w.ID, &w.Name, &payload); err != nil {
			return nil, fmt.Errorf("pending: scan: %w", err)
		}
		w.Payload = json.RawMessage(payload)
		pending = append(pending, w)
	}
	return pending, rows.Err()
}

// LastConfirmedSeq returns the highest authority sequence position this
// store has seen, or 0 for a fresh store. The sync engine sends it as the
// "after" cursor when subscribing.
func (s *Store) LastConfirmedSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(authority_seq), 0) FROM events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last confirmed seq: %w", err)
	}
	return seq, nil
}
