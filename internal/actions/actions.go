// Package actions is the command layer: user intentions become validated
// events committed to the store. Commands read current rows to decide,
// then append; they never touch the materialized tables directly.
//
// The wall clock and the id generator are injected so that tests (and
// deterministic replays of command scenarios) produce identical event
// logs.
package actions

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/store"
)

// IDGenerator produces event and row ids.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Actions issues commands against one user's store.
type Actions struct {
	store *store.Store
	ids   IDGenerator
	now   func() time.Time

	// startMu serializes the active-session check with the commit that
	// follows it, so concurrent starts cannot both observe zero.
	startMu sync.Mutex
}

type Option func(*Actions)

// WithIDGenerator replaces the id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(a *Actions) { a.ids = g }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(a *Actions) { a.now = now }
}

func New(s *store.Store, opts ...Option) *Actions {
	a := &Actions{
		store: s,
		ids:   UUIDv7Generator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Actions) commit(ctx context.Context, p event.Payload) error {
	return a.store.Commit(ctx, event.Event{ID: a.ids.Generate(), Payload: p})
}

func (a *Actions) nowMilli() int64 {
	return a.now().UnixMilli()
}

// canon trims and NFC-normalizes user-entered text so the same visible
// string always stores as the same bytes.
func canon(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
