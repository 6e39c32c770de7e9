package syncengine

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSmain/ordo/internal/authority"
	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/store"
)

const testCookieName = "ordo_session"

func testAuthority(t *testing.T) *httptest.Server {
	t.Helper()
	l, err := authority.OpenLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	auth := authority.StaticTokens(testCookieName, map[string]string{
		"tok-u1": "u1",
		"tok-u2": "u2",
	})
	// Short poll timeout so one-shot pulls with nothing new return fast.
	ts := httptest.NewServer(authority.NewServer(l, auth,
		authority.WithPollTimeout(100*time.Millisecond)).Router())
	t.Cleanup(ts.Close)
	return ts
}

func testStore(t *testing.T, userID string) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ordo.db"), userID)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func startEngine(t *testing.T, s *store.Store, ts *httptest.Server, token string) *Engine {
	t.Helper()
	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http")
	e := New(s, wsBase,
		&http.Cookie{Name: testCookieName, Value: token},
		WithBackoff(10*time.Millisecond, 100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		e.Stop()
		cancel()
	})
	return e
}

func commit(t *testing.T, s *store.Store, id string, p event.Payload) {
	t.Helper()
	require.NoError(t, s.Commit(context.Background(), event.Event{ID: id, Payload: p}))
}

func TestEngine_PushesAndConfirmsLocalCommits(t *testing.T) {
	ts := testAuthority(t)
	s := testStore(t, "u1")

	// Committed while offline; drained once the session opens.
	commit(t, s, "ev-1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#000000", Icon: "W", UserID: "u1"})

	startEngine(t, s, ts, "tok-u1")

	require.Eventually(t, func() bool {
		pending, err := s.Pending(context.Background())
		return err == nil && len(pending) == 0
	}, 5*time.Second, 10*time.Millisecond, "pending queue never drained")

	seq, err := s.LastConfirmedSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestEngine_LiveCommitWakesPushLoop(t *testing.T) {
	ts := testAuthority(t)
	s := testStore(t, "u1")
	e := startEngine(t, s, ts, "tok-u1")

	require.Eventually(t, func() bool {
		return e.Status() == StatusSynced
	}, 5*time.Second, 10*time.Millisecond)

	commit(t, s, "ev-1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#000000", Icon: "W", UserID: "u1"})

	require.Eventually(t, func() bool {
		seq, err := s.LastConfirmedSeq(context.Background())
		return err == nil && seq == 1
	}, 5*time.Second, 10*time.Millisecond, "live commit was never confirmed")
}

func TestEngine_TwoDevicesConverge(t *testing.T) {
	ts := testAuthority(t)
	a := testStore(t, "u1")
	b := testStore(t, "u1")
	startEngine(t, a, ts, "tok-u1")
	startEngine(t, b, ts, "tok-u1")

	commit(t, a, "ev-a1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#3B82F6", Icon: "W", UserID: "u1"})
	commit(t, b, "ev-b1", event.CategoryCreated{
		ID: "c2", Name: "Rest", Color: "#10B981", Icon: "R", UserID: "u1"})

	require.Eventually(t, func() bool {
		snapA, err := a.Snapshot(context.Background())
		if err != nil || len(snapA.Categories) != 2 {
			return false
		}
		snapB, err := b.Snapshot(context.Background())
		if err != nil || len(snapB.Categories) != 2 {
			return false
		}
		rawA, err := snapA.Marshal()
		if err != nil {
			return false
		}
		rawB, err := snapB.Marshal()
		return err == nil && bytes.Equal(rawA, rawB)
	}, 5*time.Second, 20*time.Millisecond, "device snapshots never converged")
}

func TestEngine_UIStateStaysDeviceLocal(t *testing.T) {
	ts := testAuthority(t)
	a := testStore(t, "u1")
	b := testStore(t, "u1")
	startEngine(t, a, ts, "tok-u1")
	startEngine(t, b, ts, "tok-u1")

	commit(t, a, "ev-ui", event.UIStateSet{
		FilterMode: event.Set(event.FilterModeAND)})
	commit(t, a, "ev-1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#000000", Icon: "W", UserID: "u1"})

	// The category syncs over; the UI state never does.
	require.Eventually(t, func() bool {
		snap, err := b.Snapshot(context.Background())
		return err == nil && len(snap.Categories) == 1
	}, 5*time.Second, 20*time.Millisecond)

	snap, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.UIState, "device-local UI state leaked to another device")
}

func TestEngine_StatusReachesSynced(t *testing.T) {
	ts := testAuthority(t)
	s := testStore(t, "u1")
	e := startEngine(t, s, ts, "tok-u1")

	require.Eventually(t, func() bool {
		return e.Status() == StatusSynced
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_UnreachableAuthorityKeepsRetrying(t *testing.T) {
	s := testStore(t, "u1")
	e := New(s, "ws://127.0.0.1:1",
		&http.Cookie{Name: testCookieName, Value: "tok-u1"},
		WithBackoff(5*time.Millisecond, 20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)
	defer e.Stop()

	// Offline commits still succeed and stay queued.
	commit(t, s, "ev-1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#000000", Icon: "W", UserID: "u1"})

	time.Sleep(50 * time.Millisecond)
	pending, err := s.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.NotEqual(t, StatusSynced, e.Status())
}

func TestFallback_SyncOnce(t *testing.T) {
	ts := testAuthority(t)
	a := testStore(t, "u1")
	b := testStore(t, "u1")
	cookie := &http.Cookie{Name: testCookieName, Value: "tok-u1"}

	commit(t, a, "ev-1", event.CategoryCreated{
		ID: "c1", Name: "Work", Color: "#000000", Icon: "W", UserID: "u1"})

	require.NoError(t, NewFallback(a, ts.URL, cookie, ts.Client()).SyncOnce(context.Background()))

	pending, err := a.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A second device pulls the confirmed history.
	require.NoError(t, NewFallback(b, ts.URL, cookie, ts.Client()).SyncOnce(context.Background()))
	snap, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "Work", snap.Categories[0].Name)
}
