package authority

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZSmain/ordo/internal/event"
)

const logSchema = `
CREATE TABLE IF NOT EXISTS authority_events (
    store_id TEXT NOT NULL,
    seq      INTEGER NOT NULL,
    id       TEXT NOT NULL,
    name     TEXT NOT NULL,
    payload  TEXT NOT NULL,
    PRIMARY KEY (store_id, seq),
    UNIQUE (store_id, id)
);
`

// Log is the authority's append-only event log. It assigns each accepted
// event a per-partition monotonic sequence position; that assignment is
// the total order every replica converges on.
type Log struct {
	db *sql.DB

	// mu serializes appends so seq assignment never races.
	mu sync.Mutex
}

// OpenLog creates or opens the authority database at path. ":memory:"
// works for tests.
func OpenLog(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open authority log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open authority log: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(logSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply authority schema: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append validates and appends a pushed batch to one partition's log.
//
// Beyond payload validation, the authority enforces rules the pushing
// device cannot be trusted with: device-local kinds never replicate,
// owner ids must match the partition, and session durations must equal
// the recomputation from the session's endpoints. A batch failing any
// rule is rejected whole; nothing is assigned a position.
//
// Returns the id-to-seq assignment for every event in the batch and the
// subset that was newly accepted, in assigned order, for broadcast.
// An id seen before keeps its original seq and is not re-broadcast, so
// redelivered pushes are harmless.
func (l *Log) Append(ctx context.Context, storeID string, batch []event.Wire) (map[string]int64, []event.Wire, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM authority_events WHERE store_id = ?`,
		storeID).Scan(&next); err != nil {
		return nil, nil, fmt.Errorf("append: read seq: %w", err)
	}

	seqs := make(map[string]int64, len(batch))
	var accepted []event.Wire
	for _, w := range batch {
		ev, err := event.Decode(w)
		if err != nil {
			return nil, nil, err
		}
		if err := event.CheckValid(ev.Payload); err != nil {
			return nil, nil, err
		}

		var existing int64
		err = tx.QueryRowContext(ctx,
			`SELECT seq FROM authority_events WHERE store_id = ? AND id = ?`,
			storeID, w.ID).Scan(&existing)
		switch {
		case err == nil:
			// Vetted when first accepted.
			seqs[w.ID] = existing
			continue
		case err != sql.ErrNoRows:
			return nil, nil, fmt.Errorf("append: lookup %s: %w", w.ID, err)
		}

		if err := vet(ctx, tx, storeID, ev.Payload); err != nil {
			return nil, nil, err
		}

		next++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO authority_events (store_id, seq, id, name, payload)
			VALUES (?, ?, ?, ?, ?)
		`, storeID, next, w.ID, w.Name, string(w.Payload)); err != nil {
			return nil, nil, fmt.Errorf("append: insert %s: %w", w.ID, err)
		}
		seqs[w.ID] = next
		confirmed := w
		confirmed.Seq = next
		accepted = append(accepted, confirmed)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("append: %w", err)
	}
	return seqs, accepted, nil
}

// After returns one partition's confirmed events with seq greater than
// after, in seq order. after=0 returns the full history.
func (l *Log) After(ctx context.Context, storeID string, after int64) ([]event.Wire, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, id, name, payload FROM authority_events
		WHERE store_id = ? AND seq > ?
		ORDER BY seq ASC
	`, storeID, after)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	defer rows.Close()

	var batch []event.Wire
	for rows.Next() {
		var w event.Wire
		var payload string
		if err := rows.Scan(&w.Seq, &w.ID, &w.Name, &payload); err != nil {
			return nil, fmt.Errorf("after: scan: %w", err)
		}
		w.Payload = json.RawMessage(payload)
		batch = append(batch, w)
	}
	return batch, rows.Err()
}

// vet enforces the authority-side acceptance rules on one new payload.
// Lookups run inside the append transaction, so events accepted earlier
// in the same batch are visible.
func vet(ctx context.Context, tx *sql.Tx, storeID string, p event.Payload) error {
	if !p.Synced() {
		return violation(p, "name", "device-local kind is never replicated")
	}

	owner, err := event.UserIDFromStoreID(storeID)
	if err != nil {
		return err
	}

	switch q := p.(type) {
	case event.CategoryCreated:
		if q.UserID != owner {
			return violation(p, "userId", "does not match partition owner")
		}

	case event.ActivityCreated:
		if q.UserID != owner {
			return violation(p, "userId", "does not match partition owner")
		}

	case event.TimeSessionStarted:
		if q.UserID != owner {
			return violation(p, "userId", "does not match partition owner")
		}

	case event.TimeSessionCreated:
		if q.UserID != owner {
			return violation(p, "userId", "does not match partition owner")
		}
		if q.Duration != (q.StoppedAt-q.StartedAt)/1000 {
			return violation(p, "duration", "must equal floor((stoppedAt-startedAt)/1s)")
		}

	case event.TimeSessionStopped:
		startedAt, _, found, err := sessionTimes(ctx, tx, storeID, q.ID)
		if err != nil {
			return err
		}
		if !found {
			return violation(p, "id", "unknown session")
		}
		if q.Duration != (q.StoppedAt-startedAt)/1000 {
			return violation(p, "duration", "must equal floor((stoppedAt-startedAt)/1s)")
		}

	case event.TimeSessionUpdated:
		startedAt, stoppedAt, found, err := sessionTimes(ctx, tx, storeID, q.ID)
		if err != nil {
			return err
		}
		if !found {
			return violation(p, "id", "unknown session")
		}
		if v, ok := q.StartedAt.Get(); ok {
			startedAt = v
		}
		if q.StoppedAt.IsNull() {
			stoppedAt = nil
		} else if v, ok := q.StoppedAt.Get(); ok {
			stoppedAt = &v
		}
		if stoppedAt != nil {
			got, ok := q.Duration.Get()
			if !ok || got != (*stoppedAt-startedAt)/1000 {
				return violation(p, "duration", "must equal floor((stoppedAt-startedAt)/1s)")
			}
		} else if q.Duration.Present() && !q.Duration.IsNull() {
			return violation(p, "duration", "must be null while the session is active")
		}
	}
	return nil
}

func violation(p event.Payload, field, message string) error {
	return &event.SchemaViolationError{
		Kind:       p.EventName(),
		Violations: []event.FieldError{{Field: field, Message: message}},
	}
}

// sessionTimes folds one session's confirmed events and returns its
// current endpoints. found is false when the partition's log holds no
// event for the session.
func sessionTimes(ctx context.Context, tx *sql.Tx, storeID, sessionID string) (startedAt int64, stoppedAt *int64, found bool, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, payload FROM authority_events
		WHERE store_id = ? ORDER BY seq ASC
	`, storeID)
	if err != nil {
		return 0, nil, false, fmt.Errorf("session times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w event.Wire
		var payload string
		if err := rows.Scan(&w.ID, &w.Name, &payload); err != nil {
			return 0, nil, false, fmt.Errorf("session times: scan: %w", err)
		}
		w.Payload = json.RawMessage(payload)
		ev, err := event.Decode(w)
		if err != nil {
			return 0, nil, false, fmt.Errorf("session times: %w", err)
		}

		switch p := ev.Payload.(type) {
		case event.TimeSessionStarted:
			if p.ID == sessionID {
				startedAt, stoppedAt, found = p.StartedAt, nil, true
			}
		case event.TimeSessionCreated:
			if p.ID == sessionID {
				v := p.StoppedAt
				startedAt, stoppedAt, found = p.StartedAt, &v, true
			}
		case event.TimeSessionStopped:
			if p.ID == sessionID && found {
				v := p.StoppedAt
				stoppedAt = &v
			}
		case event.TimeSessionUpdated:
			if p.ID == sessionID && found {
				if v, ok := p.StartedAt.Get(); ok {
					startedAt = v
				}
				if p.StoppedAt.IsNull() {
					stoppedAt = nil
				} else if v, ok := p.StoppedAt.Get(); ok {
					stoppedAt = &v
				}
			}
		}
	}
	return startedAt, stoppedAt, found, rows.Err()
}
