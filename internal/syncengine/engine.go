// Package syncengine runs the client side of the sync protocol: it keeps
// one partition's local store reconciled with the authority over a
// WebSocket session, pushing unconfirmed local events and folding pulled
// events back in.
//
// Commits never wait on the network. The engine observes the store's
// commit signal and drains the pending queue when connected; while
// offline, events simply accumulate as pending.
package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/protocol"
	"github.com/ZSmain/ordo/internal/store"
)

// Status is the engine's connection state, exposed for a UI sync
// indicator.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusSynced       Status = "synced"
	StatusReconciling  Status = "reconciling"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
)

// Engine reconciles one store with the authority.
//
// Run must be called from exactly one goroutine; all store writes on the
// sync path happen there or in the store's own serialized apply step.
type Engine struct {
	store      *store.Store
	baseURL    string // ws:// or wss:// base, no trailing slash
	credential *http.Cookie
	dialer     *websocket.Dialer

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu     sync.Mutex
	status Status
	subs   []chan Status

	stop     chan struct{}
	stopOnce sync.Once
}

type Option func(*Engine)

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(e *Engine) {
		e.initialBackoff = initial
		e.maxBackoff = max
	}
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(e *Engine) { e.dialer = d }
}

// New creates an engine for s against the authority at baseURL
// (e.g. "ws://localhost:8080"). credential is the session cookie sent
// with every exchange; nil means no credential.
func New(s *store.Store, baseURL string, credential *http.Cookie, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		baseURL:        baseURL,
		credential:     credential,
		dialer:         websocket.DefaultDialer,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		status:         StatusDisconnected,
		stop:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current connection state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// StatusNotify returns a channel receiving state transitions. Slow
// receivers lose transitions, never block the engine.
func (e *Engine) StatusNotify() <-chan Status {
	ch := make(chan Status, 8)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	if e.status == s {
		e.mu.Unlock()
		return
	}
	e.status = s
	subs := make([]chan Status, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-e.stop:
		return true
	default:
		return false
	}
}

// Run connects and reconciles until the context is cancelled or Stop is
// called. Transport failures are retried with capped exponential backoff
// and never surfaced to committing callers.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("sync engine starting", "store", e.store.StoreID())
	backoff := e.initialBackoff

	for {
		if e.stopped(ctx) {
			e.setStatus(StatusDisconnected)
			return ctx.Err()
		}

		e.setStatus(StatusConnecting)
		established, err := e.session(ctx)
		e.setStatus(StatusDisconnected)
		if e.stopped(ctx) {
			return ctx.Err()
		}
		if err != nil {
			slog.Warn("sync session ended", "store", e.store.StoreID(), "err", err)
		}
		if established {
			backoff = e.initialBackoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, e.maxBackoff)
	}
}

// session runs one connected exchange: hello with the confirmation
// cursor, push of everything pending, then a read loop folding events
// and acks until the connection drops. Returns whether the dial
// succeeded, which resets the backoff.
func (e *Engine) session(ctx context.Context) (bool, error) {
	after, err := e.store.LastConfirmedSeq(ctx)
	if err != nil {
		return false, err
	}

	url := e.baseURL + "/sync/" + e.store.StoreID() + "/ws"
	header := http.Header{}
	if e.credential != nil {
		header.Set("Cookie", e.credential.String())
	}
	conn, resp, err := e.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return false, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return false, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	// Unblock the read loop when the engine is told to stop.
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-e.stop:
		case <-sessionDone:
		}
		conn.Close()
	}()

	var writeMu sync.Mutex
	send := func(f protocol.Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	if err := send(protocol.Hello(e.store.StoreID(), after)); err != nil {
		return true, err
	}
	e.setStatus(StatusSynced)
	if err := e.push(ctx, send); err != nil {
		return true, err
	}

	// Wake the push path on every local commit of a syncable event.
	go func() {
		for {
			select {
			case <-sessionDone:
				return
			case <-e.store.CommitNotify():
				if err := e.push(ctx, send); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var f protocol.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if e.stopped(ctx) {
				return true, nil
			}
			return true, err
		}
		switch f.Type {
		case protocol.FrameEvents:
			if len(f.Batch) == 0 {
				continue
			}
			e.setStatus(StatusReconciling)
			if err := e.store.ApplyRemote(ctx, f.Batch); err != nil {
				return true, err
			}
			e.setStatus(StatusSynced)

		case protocol.FrameAck:
			if err := e.confirm(ctx, f.Seqs); err != nil {
				return true, err
			}

		case protocol.FrameError:
			slog.Warn("authority rejected exchange",
				"store", e.store.StoreID(), "code", f.Code, "message", f.Message)
			if f.Code == protocol.CodeUnauthorizedPartitionAccess {
				// Not transient; drop the session without retry pressure.
				return true, fmt.Errorf("authority: %s", f.Code)
			}

		default:
			return true, fmt.Errorf("unexpected %s frame from authority", f.Type)
		}
	}
}

// push sends everything pending, oldest first.
func (e *Engine) push(ctx context.Context, send func(protocol.Frame) error) error {
	pending, err := e.store.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	return send(protocol.Push(e.store.StoreID(), pending))
}

// confirm marks acked pending events at their assigned positions. A pure
// confirmation; ApplyRemote leaves tables alone for known ids.
func (e *Engine) confirm(ctx context.Context, seqs map[string]int64) error {
	if len(seqs) == 0 {
		return nil
	}
	pending, err := e.store.Pending(ctx)
	if err != nil {
		return err
	}
	var batch []event.Wire
	for _, w := range pending {
		if seq, ok := seqs[w.ID]; ok {
			w.Seq = seq
			batch = append(batch, w)
		}
	}
	return e.store.ApplyRemote(ctx, batch)
}
