package actions

import (
	"context"
	"strings"

	"github.com/ZSmain/ordo/internal/event"
)

type CategoryInput struct {
	Name  string
	Color string
	Icon  string
}

// CreateCategory creates a category and returns its id.
func (a *Actions) CreateCategory(ctx context.Context, in CategoryInput) (string, error) {
	id := a.ids.Generate()
	err := a.commit(ctx, event.CategoryCreated{
		ID:     id,
		Name:   canon(in.Name),
		Color:  strings.TrimSpace(in.Color),
		Icon:   canon(in.Icon),
		UserID: a.store.UserID(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// CategoryPatch carries the fields to change; nil means keep.
type CategoryPatch struct {
	Name  *string
	Color *string
	Icon  *string
}

func (a *Actions) UpdateCategory(ctx context.Context, id string, p CategoryPatch) error {
	ev := event.CategoryUpdated{ID: id}
	if p.Name != nil {
		ev.Name = event.Set(canon(*p.Name))
	}
	if p.Color != nil {
		ev.Color = event.Set(strings.TrimSpace(*p.Color))
	}
	if p.Icon != nil {
		ev.Icon = event.Set(canon(*p.Icon))
	}
	return a.commit(ctx, ev)
}

func (a *Actions) DeleteCategory(ctx context.Context, id string) error {
	return a.commit(ctx, event.CategoryDeleted{ID: id, DeletedAt: a.nowMilli()})
}
