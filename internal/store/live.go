package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// refresher is the untyped face of a live query held in the store's
// registry.
type refresher interface {
	table() string
	refresh(ctx context.Context, db *sql.DB) error
	notify()
}

// Live is a reactive result set: a query whose rows are re-read whenever
// a commit touches its table. Reads are served from the last
// materialized evaluation, never from the event log.
type Live[T any] struct {
	query Query
	scan  func(*sql.Rows) (T, error)

	mu   sync.Mutex
	rows []T
	subs []chan struct{}
}

// Rows returns the current result set. The slice is shared with the live
// query's last evaluation; callers must not mutate it.
func (l *Live[T]) Rows() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Subscribe returns a channel that receives a coalesced signal after each
// re-evaluation triggered by a relevant commit.
func (l *Live[T]) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

// Label returns the deduplication label of the underlying query.
func (l *Live[T]) Label() string { return l.query.Label }

func (l *Live[T]) table() string { return l.query.Table }

func (l *Live[T]) refresh(ctx context.Context, db *sql.DB) error {
	query, params, err := l.query.compile()
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("live query %q: %w", l.query.Label, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		row, err := l.scan(rows)
		if err != nil {
			return fmt.Errorf("live query %q: scan: %w", l.query.Label, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("live query %q: %w", l.query.Label, err)
	}

	l.mu.Lock()
	l.rows = result
	l.mu.Unlock()
	return nil
}

func (l *Live[T]) notify() {
	l.mu.Lock()
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// liveFor registers a live query, deduplicated by label: observers asking
// for the same label share one live result. The first registration
// evaluates the query immediately.
func liveFor[T any](ctx context.Context, s *Store, q Query, scan func(*sql.Rows) (T, error)) (*Live[T], error) {
	s.queriesMu.Lock()
	if existing, ok := s.queries[q.Label]; ok {
		s.queriesMu.Unlock()
		lv, ok := existing.(*Live[T])
		if !ok {
			return nil, fmt.Errorf("query label %q is already registered with a different row type", q.Label)
		}
		return lv, nil
	}
	lv := &Live[T]{query: q, scan: scan}
	s.queries[q.Label] = lv
	s.queriesMu.Unlock()

	if err := lv.refresh(ctx, s.db); err != nil {
		return nil, err
	}
	return lv, nil
}

// refreshQueries re-evaluates every live query over the given tables and
// notifies subscribers. Runs synchronously on the commit path so the next
// read of an affected query reflects the commit before any other side
// effect is observed.
func (s *Store) refreshQueries(ctx context.Context, tables ...string) {
	s.queriesMu.Lock()
	matched := make([]refresher, 0, len(s.queries))
	for _, lq := range s.queries {
		if slices.Contains(tables, lq.table()) {
			matched = append(matched, lq)
		}
	}
	s.queriesMu.Unlock()

	for _, lq := range matched {
		if err := lq.refresh(ctx, s.db); err != nil {
			slog.Error("live query refresh failed", "store", s.storeID, "err", err)
			continue
		}
		lq.notify()
	}
}
