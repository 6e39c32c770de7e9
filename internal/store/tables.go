package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Row types mirror the materialized tables. Nullable columns are
// pointers; timestamps are Unix millis.

type CategoryRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
	UserID    string `json:"userId"`
	DeletedAt *int64 `json:"deletedAt"`
}

type ActivityRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	DailyGoal   *int64 `json:"dailyGoal"`
	WeeklyGoal  *int64 `json:"weeklyGoal"`
	MonthlyGoal *int64 `json:"monthlyGoal"`
	Archived    bool   `json:"archived"`
	UserID      string `json:"userId"`
	DeletedAt   *int64 `json:"deletedAt"`
}

type ActivityCategoryRow struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	CategoryID string `json:"categoryId"`
	DeletedAt  *int64 `json:"deletedAt"`
}

type TimeSessionRow struct {
	ID         string  `json:"id"`
	ActivityID string  `json:"activityId"`
	UserID     string  `json:"userId"`
	StartedAt  int64   `json:"startedAt"`
	StoppedAt  *int64  `json:"stoppedAt"`
	Duration   *int64  `json:"duration"`
	IsActive   bool    `json:"isActive"`
	Notes      *string `json:"notes"`
	DeletedAt  *int64  `json:"deletedAt"`
}

type UIStateRow struct {
	SelectedCategoryIDs []string `json:"selectedCategoryIds"`
	FilterMode          string   `json:"filterMode"`
	TimerActivityID     *string  `json:"timerActivityId"`
	TimerStartedAt      *int64   `json:"timerStartedAt"`
}

var (
	categoryColumns = []string{"id", "name", "color", "icon", "user_id", "deleted_at"}
	activityColumns = []string{"id", "name", "icon", "daily_goal", "weekly_goal",
		"monthly_goal", "archived", "user_id", "deleted_at"}
	activityCategoryColumns = []string{"id", "activity_id", "category_id", "deleted_at"}
	timeSessionColumns      = []string{"id", "activity_id", "user_id", "started_at",
		"stopped_at", "duration", "is_active", "notes", "deleted_at"}
	uiStateColumns = []string{"id", "selected_category_ids", "filter_mode",
		"timer_activity_id", "timer_started_at"}
)

func scanCategory(rows *sql.Rows) (CategoryRow, error) {
	var r CategoryRow
	err := rows.Scan(&r.ID, &r.Name, &r.Color, &r.Icon, &r.UserID, &r.DeletedAt)
	return r, err
}

func scanActivity(rows *sql.Rows) (ActivityRow, error) {
	var r ActivityRow
	err := rows.Scan(&r.ID, &r.Name, &r.Icon, &r.DailyGoal, &r.WeeklyGoal,
		&r.MonthlyGoal, &r.Archived, &r.UserID, &r.DeletedAt)
	return r, err
}

func scanActivityCategory(rows *sql.Rows) (ActivityCategoryRow, error) {
	var r ActivityCategoryRow
	err := rows.Scan(&r.ID, &r.ActivityID, &r.CategoryID, &r.DeletedAt)
	return r, err
}

func scanTimeSession(rows *sql.Rows) (TimeSessionRow, error) {
	var r TimeSessionRow
	err := rows.Scan(&r.ID, &r.ActivityID, &r.UserID, &r.StartedAt, &r.StoppedAt,
		&r.Duration, &r.IsActive, &r.Notes, &r.DeletedAt)
	return r, err
}

func scanUIState(rows *sql.Rows) (UIStateRow, error) {
	var r UIStateRow
	var id, encoded string
	if err := rows.Scan(&id, &encoded, &r.FilterMode, &r.TimerActivityID, &r.TimerStartedAt); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(encoded), &r.SelectedCategoryIDs); err != nil {
		return r, fmt.Errorf("decode selected category ids: %w", err)
	}
	return r, nil
}
