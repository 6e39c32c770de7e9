package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is a complete, unfiltered dump of the materialized tables,
// ordered by id. Two stores that folded the same events produce
// byte-identical marshaled snapshots - the working definition of the
// determinism invariant.
type Snapshot struct {
	Categories         []CategoryRow         `json:"categories"`
	Activities         []ActivityRow         `json:"activities"`
	ActivityCategories []ActivityCategoryRow `json:"activityCategories"`
	TimeSessions       []TimeSessionRow      `json:"timeSessions"`
	UIState            *UIStateRow           `json:"uiState"`
}

// Snapshot dumps every materialized table, including soft-deleted rows.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error

	if snap.Categories, err = readAll(ctx, s.db, Query{
		Table: "categories", Columns: categoryColumns, Label: "snapshot-categories",
	}, scanCategory); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if snap.Activities, err = readAll(ctx, s.db, Query{
		Table: "activities", Columns: activityColumns, Label: "snapshot-activities",
	}, scanActivity); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if snap.ActivityCategories, err = readAll(ctx, s.db, Query{
		Table: "activity_categories", Columns: activityCategoryColumns, Label: "snapshot-links",
	}, scanActivityCategory); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if snap.TimeSessions, err = readAll(ctx, s.db, Query{
		Table: "time_sessions", Columns: timeSessionColumns, Label: "snapshot-sessions",
	}, scanTimeSession); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if snap.UIState, err = readOne(ctx, s.db, Query{
		Table: "ui_state", Columns: uiStateColumns, Label: "snapshot-uistate",
	}, scanUIState); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return snap, nil
}

// Marshal renders the snapshot as stable, indented JSON without HTML
// escaping. Suitable for golden files and byte comparison.
func (s *Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
