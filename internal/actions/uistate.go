package actions

import (
	"context"

	"github.com/ZSmain/ordo/internal/event"
)

// UI state setters. Each commits a partial UIStateSet that patches only
// its own fields; the singleton's other fields keep their values.

func (a *Actions) SetSelectedCategories(ctx context.Context, categoryIDs []string) error {
	return a.commit(ctx, event.UIStateSet{
		SelectedCategoryIDs: event.Set(categoryIDs),
	})
}

func (a *Actions) SetFilterMode(ctx context.Context, mode string) error {
	return a.commit(ctx, event.UIStateSet{
		FilterMode: event.Set(mode),
	})
}

// SetTimer records which activity the UI timer shows, or clears it when
// activityID is nil.
func (a *Actions) SetTimer(ctx context.Context, activityID *string, startedAt *int64) error {
	ev := event.UIStateSet{}
	if activityID == nil {
		ev.TimerActivityID = event.Null[string]()
	} else {
		ev.TimerActivityID = event.Set(*activityID)
	}
	if startedAt == nil {
		ev.TimerStartedAt = event.Null[int64]()
	} else {
		ev.TimerStartedAt = event.Set(*startedAt)
	}
	return a.commit(ctx, ev)
}
