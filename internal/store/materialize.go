package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZSmain/ordo/internal/event"
)

// materialize applies one event's table effects inside the caller's
// transaction. Handlers are total over valid payloads: an update whose id
// matches no row affects zero rows and is not an error. Handlers never do
// I/O beyond the transaction and never read the clock - timestamps arrive
// inside the payload, fixed at commit time.
func materialize(ctx context.Context, tx execer, p event.Payload) error {
	switch ev := p.(type) {
	case event.CategoryCreated:
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO categories (id, name, color, icon, user_id, deleted_at)
			VALUES (?, ?, ?, ?, ?, NULL)
		`, ev.ID, ev.Name, ev.Color, ev.Icon, ev.UserID)
		return err

	case event.CategoryUpdated:
		var sets []string
		var args []any
		sets, args = addPatch(sets, args, "name", ev.Name)
		sets, args = addPatch(sets, args, "color", ev.Color)
		sets, args = addPatch(sets, args, "icon", ev.Icon)
		return patchRow(ctx, tx, "categories", ev.ID, sets, args)

	case event.CategoryDeleted:
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET deleted_at = ? WHERE id = ?`, ev.DeletedAt, ev.ID)
		return err

	case event.ActivityCreated:
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO activities
			(id, name, icon, daily_goal, weekly_goal, monthly_goal, archived, user_id, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL)
		`, ev.ID, ev.Name, ev.Icon, ev.DailyGoal, ev.WeeklyGoal, ev.MonthlyGoal, ev.UserID)
		return err

	case event.ActivityUpdated:
		var sets []string
		var args []any
		sets, args = addPatch(sets, args, "name", ev.Name)
		sets, args = addPatch(sets, args, "icon", ev.Icon)
		sets, args = addPatch(sets, args, "daily_goal", ev.DailyGoal)
		sets, args = addPatch(sets, args, "weekly_goal", ev.WeeklyGoal)
		sets, args = addPatch(sets, args, "monthly_goal", ev.MonthlyGoal)
		return patchRow(ctx, tx, "activities", ev.ID, sets, args)

	case event.ActivityArchived:
		_, err := tx.ExecContext(ctx,
			`UPDATE activities SET archived = 1 WHERE id = ?`, ev.ID)
		return err

	case event.ActivityUnarchived:
		_, err := tx.ExecContext(ctx,
			`UPDATE activities SET archived = 0 WHERE id = ?`, ev.ID)
		return err

	case event.ActivityDeleted:
		_, err := tx.ExecContext(ctx,
			`UPDATE activities SET deleted_at = ? WHERE id = ?`, ev.DeletedAt, ev.ID)
		return err

	case event.ActivityCategoryLinked:
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO activity_categories (id, activity_id, category_id, deleted_at)
			VALUES (?, ?, ?, NULL)
		`, ev.ID, ev.ActivityID, ev.CategoryID)
		return err

	case event.ActivityCategoryUnlinked:
		_, err := tx.ExecContext(ctx,
			`UPDATE activity_categories SET deleted_at = ? WHERE id = ?`, ev.DeletedAt, ev.ID)
		return err

	case event.TimeSessionStarted:
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO time_sessions
			(id, activity_id, user_id, started_at, stopped_at, duration, is_active, notes, deleted_at)
			VALUES (?, ?, ?, ?, NULL, NULL, 1, NULL, NULL)
		`, ev.ID, ev.ActivityID, ev.UserID, ev.StartedAt)
		return err

	case event.TimeSessionStopped:
		_, err := tx.ExecContext(ctx, `
			UPDATE time_sessions SET stopped_at = ?, duration = ?, is_active = 0 WHERE id = ?
		`, ev.StoppedAt, ev.Duration, ev.ID)
		return err

	case event.TimeSessionUpdated:
		var sets []string
		var args []any
		sets, args = addPatch(sets, args, "started_at", ev.StartedAt)
		sets, args = addPatch(sets, args, "stopped_at", ev.StoppedAt)
		sets, args = addPatch(sets, args, "duration", ev.Duration)
		sets, args = addPatch(sets, args, "notes", ev.Notes)
		return patchRow(ctx, tx, "time_sessions", ev.ID, sets, args)

	case event.TimeSessionDeleted:
		_, err := tx.ExecContext(ctx,
			`UPDATE time_sessions SET deleted_at = ? WHERE id = ?`, ev.DeletedAt, ev.ID)
		return err

	case event.TimeSessionCreated:
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO time_sessions
			(id, activity_id, user_id, started_at, stopped_at, duration, is_active, notes, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL)
		`, ev.ID, ev.ActivityID, ev.UserID, ev.StartedAt, ev.StoppedAt, ev.Duration, ev.Notes)
		return err

	case event.UIStateSet:
		return materializeUIState(ctx, tx, ev)
	}

	// Unreachable while event.Payload stays sealed; a new payload kind
	// fails here until its handler is added.
	return &event.UnknownKindError{Name: p.EventName()}
}

// materializeUIState merges the patch into the singleton row field by
// field. Absent fields keep their current value; only fields present in
// the patch are written (last-write-wins per field).
func materializeUIState(ctx context.Context, tx execer, ev event.UIStateSet) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ui_state (id) VALUES ('session') ON CONFLICT(id) DO NOTHING`); err != nil {
		return err
	}

	var sets []string
	var args []any
	if ids, ok := ev.SelectedCategoryIDs.Get(); ok {
		encoded, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("encode selected category ids: %w", err)
		}
		sets = append(sets, "selected_category_ids = ?")
		args = append(args, string(encoded))
	}
	sets, args = addPatch(sets, args, "filter_mode", ev.FilterMode)
	sets, args = addPatch(sets, args, "timer_activity_id", ev.TimerActivityID)
	sets, args = addPatch(sets, args, "timer_started_at", ev.TimerStartedAt)
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE ui_state SET %s WHERE id = 'session'`, strings.Join(sets, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// addPatch appends a SET fragment for a present patch field. Null fields
// clear the column; absent fields contribute nothing. Call order fixes
// the fragment order, keeping the generated SQL deterministic.
func addPatch[T any](sets []string, args []any, col string, f event.Field[T]) ([]string, []any) {
	if !f.Present() {
		return sets, args
	}
	if f.IsNull() {
		return append(sets, col+" = NULL"), args
	}
	v, _ := f.Get()
	return append(sets, col+" = ?"), append(args, v)
}

func patchRow(ctx context.Context, tx execer, table, id string, sets []string, args []any) error {
	if len(sets) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets, ", "))
	_, err := tx.ExecContext(ctx, query, append(args, id)...)
	return err
}

// tableFor maps a payload kind to the materialized table it touches, for
// live query invalidation.
func tableFor(p event.Payload) string {
	switch p.(type) {
	case event.CategoryCreated, event.CategoryUpdated, event.CategoryDeleted:
		return "categories"
	case event.ActivityCreated, event.ActivityUpdated, event.ActivityArchived,
		event.ActivityUnarchived, event.ActivityDeleted:
		return "activities"
	case event.ActivityCategoryLinked, event.ActivityCategoryUnlinked:
		return "activity_categories"
	case event.TimeSessionStarted, event.TimeSessionStopped, event.TimeSessionUpdated,
		event.TimeSessionDeleted, event.TimeSessionCreated:
		return "time_sessions"
	case event.UIStateSet:
		return "ui_state"
	}
	return ""
}
