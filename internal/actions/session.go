package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZSmain/ordo/internal/event"
)

// ActiveSessionError means a start command found a session already
// running. At most one session runs per user; the caller stops the
// current one first.
type ActiveSessionError struct {
	UserID string
}

func (e *ActiveSessionError) Error() string {
	return fmt.Sprintf("user %q already has an active session", e.UserID)
}

func IsActiveSession(err error) bool {
	var target *ActiveSessionError
	return errors.As(err, &target)
}

// durationSeconds is floor((stopped-started)/1s); timestamps are millis.
func durationSeconds(startedAt, stoppedAt int64) int64 {
	return (stoppedAt - startedAt) / 1000
}

// StartSession starts tracking the activity now and returns the session
// id. Rejected with ActiveSessionError while another session runs.
func (a *Actions) StartSession(ctx context.Context, activityID string) (string, error) {
	// The count and the commit must be one step; without the lock two
	// concurrent starts can both see zero and both commit.
	a.startMu.Lock()
	defer a.startMu.Unlock()

	active, err := a.store.ActiveSessionCount(ctx)
	if err != nil {
		return "", err
	}
	if active > 0 {
		return "", &ActiveSessionError{UserID: a.store.UserID()}
	}

	id := a.ids.Generate()
	err = a.commit(ctx, event.TimeSessionStarted{
		ID:         id,
		ActivityID: activityID,
		UserID:     a.store.UserID(),
		StartedAt:  a.nowMilli(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// StopSession stops the session now. The duration is recomputed here
// from the stored start time, never taken from the caller.
func (a *Actions) StopSession(ctx context.Context, id string) error {
	row, err := a.store.SessionByID(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("stop session: unknown session %q", id)
	}

	stoppedAt := a.nowMilli()
	return a.commit(ctx, event.TimeSessionStopped{
		ID:        id,
		StoppedAt: stoppedAt,
		Duration:  durationSeconds(row.StartedAt, stoppedAt),
	})
}

// SessionPatch carries the fields to change, with patch semantics on
// notes (event.Null clears them).
type SessionPatch struct {
	StartedAt event.Field[int64]
	StoppedAt event.Field[int64]
	Notes     event.Field[string]
}

// UpdateSession patches a session. Whenever both endpoints are known
// after the patch, the duration is recomputed and written with it.
func (a *Actions) UpdateSession(ctx context.Context, id string, p SessionPatch) error {
	row, err := a.store.SessionByID(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("update session: unknown session %q", id)
	}

	ev := event.TimeSessionUpdated{
		ID:        id,
		StartedAt: p.StartedAt,
		StoppedAt: p.StoppedAt,
		Notes:     p.Notes,
	}

	startedAt := row.StartedAt
	if v, ok := p.StartedAt.Get(); ok {
		startedAt = v
	}
	stoppedAt := row.StoppedAt
	if v, ok := p.StoppedAt.Get(); ok {
		stoppedAt = &v
	}
	if stoppedAt != nil {
		ev.Duration = event.Set(durationSeconds(startedAt, *stoppedAt))
	}
	return a.commit(ctx, ev)
}

type SessionInput struct {
	ActivityID string
	StartedAt  int64
	StoppedAt  int64
	Notes      *string
}

// CreateSession logs a completed session in one event (manual entry) and
// returns its id.
func (a *Actions) CreateSession(ctx context.Context, in SessionInput) (string, error) {
	id := a.ids.Generate()
	err := a.commit(ctx, event.TimeSessionCreated{
		ID:         id,
		ActivityID: in.ActivityID,
		UserID:     a.store.UserID(),
		StartedAt:  in.StartedAt,
		StoppedAt:  in.StoppedAt,
		Duration:   durationSeconds(in.StartedAt, in.StoppedAt),
		Notes:      in.Notes,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (a *Actions) DeleteSession(ctx context.Context, id string) error {
	return a.commit(ctx, event.TimeSessionDeleted{ID: id, DeletedAt: a.nowMilli()})
}
