package actions

import (
	"context"

	"github.com/ZSmain/ordo/internal/event"
)

type ActivityInput struct {
	Name        string
	Icon        string
	CategoryIDs []string
	DailyGoal   *int64
	WeeklyGoal  *int64
	MonthlyGoal *int64
}

// CreateActivity creates an activity plus one link event per category,
// and returns the activity id.
func (a *Actions) CreateActivity(ctx context.Context, in ActivityInput) (string, error) {
	id := a.ids.Generate()
	err := a.commit(ctx, event.ActivityCreated{
		ID:          id,
		Name:        canon(in.Name),
		Icon:        canon(in.Icon),
		DailyGoal:   in.DailyGoal,
		WeeklyGoal:  in.WeeklyGoal,
		MonthlyGoal: in.MonthlyGoal,
		UserID:      a.store.UserID(),
		CategoryIDs: in.CategoryIDs,
	})
	if err != nil {
		return "", err
	}
	for _, categoryID := range in.CategoryIDs {
		if err := a.commit(ctx, event.ActivityCategoryLinked{
			ID:         a.ids.Generate(),
			ActivityID: id,
			CategoryID: categoryID,
		}); err != nil {
			return "", err
		}
	}
	return id, nil
}

// ActivityPatch carries the fields to change. Goal fields use patch
// semantics directly: event.Set changes, event.Null clears, zero keeps.
type ActivityPatch struct {
	Name        *string
	Icon        *string
	DailyGoal   event.Field[int64]
	WeeklyGoal  event.Field[int64]
	MonthlyGoal event.Field[int64]
}

func (a *Actions) UpdateActivity(ctx context.Context, id string, p ActivityPatch) error {
	ev := event.ActivityUpdated{
		ID:          id,
		DailyGoal:   p.DailyGoal,
		WeeklyGoal:  p.WeeklyGoal,
		MonthlyGoal: p.MonthlyGoal,
	}
	if p.Name != nil {
		ev.Name = event.Set(canon(*p.Name))
	}
	if p.Icon != nil {
		ev.Icon = event.Set(canon(*p.Icon))
	}
	return a.commit(ctx, ev)
}

func (a *Actions) ArchiveActivity(ctx context.Context, id string) error {
	return a.commit(ctx, event.ActivityArchived{ID: id})
}

func (a *Actions) UnarchiveActivity(ctx context.Context, id string) error {
	return a.commit(ctx, event.ActivityUnarchived{ID: id})
}

func (a *Actions) DeleteActivity(ctx context.Context, id string) error {
	return a.commit(ctx, event.ActivityDeleted{ID: id, DeletedAt: a.nowMilli()})
}

// SetActivityCategories reconciles an activity's links against the given
// category set. Junction rows are append-only, so removals are unlink
// events against the existing rows and additions are fresh link events;
// categories already linked are left alone.
func (a *Actions) SetActivityCategories(ctx context.Context, activityID string, categoryIDs []string) error {
	links, err := a.store.LinksForActivity(ctx, activityID)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		want[id] = true
	}

	have := make(map[string]bool, len(links))
	for _, link := range links {
		have[link.CategoryID] = true
		if want[link.CategoryID] {
			continue
		}
		if err := a.commit(ctx, event.ActivityCategoryUnlinked{
			ID:        link.ID,
			DeletedAt: a.nowMilli(),
		}); err != nil {
			return err
		}
	}

	// Additions in input order so identical calls yield identical logs.
	for _, categoryID := range categoryIDs {
		if have[categoryID] {
			continue
		}
		if err := a.commit(ctx, event.ActivityCategoryLinked{
			ID:         a.ids.Generate(),
			ActivityID: activityID,
			CategoryID: categoryID,
		}); err != nil {
			return err
		}
	}
	return nil
}
