package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Typed live projections. Labels follow the "<name>-<userId>" convention
// so observers of the same projection share one live result. Every
// default projection filters deleted_at IS NULL - soft-deleted rows stay
// in the table but vanish from these reads.

// Categories returns the user's categories, excluding deleted.
func (s *Store) Categories(ctx context.Context) (*Live[CategoryRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "categories",
		Columns: categoryColumns,
		Where:   map[string]any{"user_id": s.userID, "deleted_at": nil},
		Label:   "categories-" + s.userID,
	}, scanCategory)
}

// Activities returns the user's activities, excluding deleted and
// archived.
func (s *Store) Activities(ctx context.Context) (*Live[ActivityRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "activities",
		Columns: activityColumns,
		Where:   map[string]any{"user_id": s.userID, "deleted_at": nil, "archived": false},
		Label:   "activities-" + s.userID,
	}, scanActivity)
}

// AllActivities returns the user's activities including archived,
// excluding deleted.
func (s *Store) AllActivities(ctx context.Context) (*Live[ActivityRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "activities",
		Columns: activityColumns,
		Where:   map[string]any{"user_id": s.userID, "deleted_at": nil},
		Label:   "allActivities-" + s.userID,
	}, scanActivity)
}

// ActivityLinks returns all live activity-category junction rows.
func (s *Store) ActivityLinks(ctx context.Context) (*Live[ActivityCategoryRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "activity_categories",
		Columns: activityCategoryColumns,
		Where:   map[string]any{"deleted_at": nil},
		Label:   "activityCategoryLinks",
	}, scanActivityCategory)
}

// ActiveSession returns the user's running session, if any. The start
// command guarantees at most one row.
func (s *Store) ActiveSession(ctx context.Context) (*Live[TimeSessionRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "time_sessions",
		Columns: timeSessionColumns,
		Where:   map[string]any{"user_id": s.userID, "is_active": true, "deleted_at": nil},
		Label:   "activeSession-" + s.userID,
	}, scanTimeSession)
}

// Sessions returns all of the user's sessions, excluding deleted.
func (s *Store) Sessions(ctx context.Context) (*Live[TimeSessionRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "time_sessions",
		Columns: timeSessionColumns,
		Where:   map[string]any{"user_id": s.userID, "deleted_at": nil},
		Label:   "timeSessions-" + s.userID,
	}, scanTimeSession)
}

// CompletedSessions returns the user's stopped sessions, excluding
// deleted.
func (s *Store) CompletedSessions(ctx context.Context) (*Live[TimeSessionRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "time_sessions",
		Columns: timeSessionColumns,
		Where:   map[string]any{"user_id": s.userID, "is_active": false, "deleted_at": nil},
		Label:   "completedSessions-" + s.userID,
	}, scanTimeSession)
}

// UIState returns the per-session UI state singleton.
func (s *Store) UIState(ctx context.Context) (*Live[UIStateRow], error) {
	return liveFor(ctx, s, Query{
		Table:   "ui_state",
		Columns: uiStateColumns,
		Where:   map[string]any{"id": "session"},
		Label:   "uiState",
	}, scanUIState)
}

// Point reads for the command layer. Unfiltered by deleted_at: commands
// sometimes need to see soft-deleted rows.

// SessionByID returns a session row regardless of soft-delete state, or
// nil when the id is unknown.
func (s *Store) SessionByID(ctx context.Context, id string) (*TimeSessionRow, error) {
	return readOne(ctx, s.db, Query{
		Table:   "time_sessions",
		Columns: timeSessionColumns,
		Where:   map[string]any{"id": id},
		Label:   "sessionByID",
	}, scanTimeSession)
}

// CategoryByID returns a category row regardless of soft-delete state, or
// nil when the id is unknown.
func (s *Store) CategoryByID(ctx context.Context, id string) (*CategoryRow, error) {
	return readOne(ctx, s.db, Query{
		Table:   "categories",
		Columns: categoryColumns,
		Where:   map[string]any{"id": id},
		Label:   "categoryByID",
	}, scanCategory)
}

// ActivityByID returns an activity row regardless of soft-delete state,
// or nil when the id is unknown.
func (s *Store) ActivityByID(ctx context.Context, id string) (*ActivityRow, error) {
	return readOne(ctx, s.db, Query{
		Table:   "activities",
		Columns: activityColumns,
		Where:   map[string]any{"id": id},
		Label:   "activityByID",
	}, scanActivity)
}

// LinksForActivity returns the live (not unlinked) junction rows of one
// activity.
func (s *Store) LinksForActivity(ctx context.Context, activityID string) ([]ActivityCategoryRow, error) {
	return readAll(ctx, s.db, Query{
		Table:   "activity_categories",
		Columns: activityCategoryColumns,
		Where:   map[string]any{"activity_id": activityID, "deleted_at": nil},
		Label:   "linksForActivity",
	}, scanActivityCategory)
}

// ActiveSessionCount returns the number of running, non-deleted sessions
// for the partition's user.
func (s *Store) ActiveSessionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM time_sessions
		WHERE user_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, s.userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("active session count: %w", err)
	}
	return n, nil
}

func readOne[T any](ctx context.Context, db *sql.DB, q Query, scan func(*sql.Rows) (T, error)) (*T, error) {
	all, err := readAll(ctx, db, q, scan)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func readAll[T any](ctx context.Context, db *sql.DB, q Query, scan func(*sql.Rows) (T, error)) ([]T, error) {
	query, params, err := q.compile()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Label, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("query %q: scan: %w", q.Label, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
