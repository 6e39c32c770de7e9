package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZSmain/ordo/internal/event"
)

// createTestStore creates a store for userID backed by a temp-dir file.
func createTestStore(t *testing.T, userID string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), event.StoreID(userID)+".db")
	s, err := Open(path, userID)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustCommit commits a payload with a generated sequential event id.
func mustCommit(t *testing.T, s *Store, id string, p event.Payload) {
	t.Helper()
	if err := s.Commit(context.Background(), event.Event{ID: id, Payload: p}); err != nil {
		t.Fatalf("Commit(%s) failed: %v", p.EventName(), err)
	}
}

// scenarioEvents is the fixed event sequence shared by the determinism
/// and golden tests: one category, one linked activity, one timed session,
// one UI state change.
func scenarioEvents() []event.Event {
	return []event.Event{
		{ID: "ev-1", Payload: event.CategoryCreated{
			ID: "c1", Name: "Work", Color: "#3B82F6", Icon: "💼", UserID: "u1"}},
		{ID: "ev-2", Payload: event.ActivityCreated{
			ID: "a1", Name: "Writing", Icon: "✍️", UserID: "u1", CategoryIDs: []string{"c1"}}},
		{ID: "ev-3", Payload: event.ActivityCategoryLinked{
			ID: "l1", ActivityID: "a1", CategoryID: "c1"}},
		{ID: "ev-4", Payload: event.TimeSessionStarted{
			ID: "s1", ActivityID: "a1", UserID: "u1", StartedAt: 1700000000000}},
		{ID: "ev-5", Payload: event.TimeSessionStopped{
			ID: "s1", StoppedAt: 1700000125000, Duration: 125}},
		{ID: "ev-6", Payload: event.UIStateSet{
			FilterMode: event.Set(event.FilterModeAND)}},
	}
}

func commitScenario(t *testing.T, s *Store) {
	t.Helper()
	for i, ev := range scenarioEvents() {
		if err := s.Commit(context.Background(), ev); err != nil {
			t.Fatalf("Commit(scenario[%d]) failed: %v", i, err)
		}
	}
}
