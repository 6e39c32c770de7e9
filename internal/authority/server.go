// Package authority implements the remote side of the sync protocol: an
// append-only log assigning every accepted event a per-partition total
// order, served over a WebSocket duplex endpoint with an HTTP push/pull
// fallback.
package authority

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/protocol"
)

const maxPushBody = 1 << 20

// Server serves the sync endpoints for every partition backed by one
// authority log. Authorization is strict: a session may only address the
// partition named after its own user.
type Server struct {
	log     *Log
	auth    Authenticator
	hub     *hub
	metrics *Collector

	pushRate  rate.Limit
	pushBurst int

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	pollTimeout time.Duration
	upgrader    websocket.Upgrader
}

type Option func(*Server)

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithPushRate caps push exchanges per user. Zero disables limiting.
func WithPushRate(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.pushRate = r
		s.pushBurst = burst
	}
}

// WithPollTimeout bounds how long a long-poll pull waits for events.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Server) { s.pollTimeout = d }
}

func NewServer(log *Log, auth Authenticator, opts ...Option) *Server {
	s := &Server{
		log:         log,
		auth:        auth,
		hub:         newHub(),
		limiters:    make(map[string]*rate.Limiter),
		pollTimeout: 25 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the chi router serving the sync endpoints:
//
//	GET  /sync/{storeID}/ws    WebSocket duplex exchange
//	POST /sync/{storeID}/push  HTTP fallback push
//	GET  /sync/{storeID}/pull  HTTP fallback long-poll (?after=<seq>)
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Route("/sync/{storeID}", func(r chi.Router) {
		r.Get("/ws", s.handleWS)
		r.Post("/push", s.handlePush)
		r.Get("/pull", s.handlePull)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		slog.Info("handled",
			"method", r.Method, "url", r.URL.Path,
			"status", m.Code, "duration", m.Duration)
	})
}

func (s *Server) allowPush(userID string) bool {
	if s.pushRate == 0 {
		return true
	}
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	lim, ok := s.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(s.pushRate, s.pushBurst)
		s.limiters[userID] = lim
	}
	return lim.Allow()
}

// accept validates and appends one pushed batch, broadcasting whatever
// was newly assigned a position. Shared by the WebSocket and HTTP paths.
func (s *Server) accept(r *http.Request, storeID string, batch []event.Wire) (protocol.Frame, int) {
	start := time.Now()
	seqs, accepted, err := s.log.Append(r.Context(), storeID, batch)
	if err != nil {
		code, status := errorCode(err)
		s.metrics.RecordRejected(code)
		return protocol.Error(code, err.Error()), status
	}
	s.metrics.RecordAppendLatency(time.Since(start))
	s.metrics.RecordAccepted(len(accepted))
	s.hub.broadcast(storeID, accepted)
	return protocol.Ack(storeID, seqs), http.StatusOK
}

func errorCode(err error) (code string, status int) {
	switch {
	case event.IsUnknownKind(err):
		return protocol.CodeUnknownEventKind, http.StatusBadRequest
	case event.IsSchemaViolation(err):
		return protocol.CodeSchemaViolation, http.StatusBadRequest
	case IsUnauthorizedPartitionAccess(err):
		return protocol.CodeUnauthorizedPartitionAccess, http.StatusForbidden
	default:
		return protocol.CodeMalformedFrame, http.StatusInternalServerError
	}
}

func writeFrame(w http.ResponseWriter, status int, f protocol.Frame) {
	data, err := f.Encode()
	if err != nil {
		slog.Error("encode frame", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	userID, err := s.authorize(r, storeID)
	if err != nil {
		s.metrics.RecordRejected(protocol.CodeUnauthorizedPartitionAccess)
		writeFrame(w, http.StatusForbidden,
			protocol.Error(protocol.CodeUnauthorizedPartitionAccess, "partition mismatch"))
		return
	}
	if !s.allowPush(userID) {
		s.metrics.RecordRejected(protocol.CodeRateLimited)
		writeFrame(w, http.StatusTooManyRequests,
			protocol.Error(protocol.CodeRateLimited, "push rate exceeded"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBody))
	if err != nil {
		writeFrame(w, http.StatusBadRequest,
			protocol.Error(protocol.CodeMalformedFrame, "unreadable push body"))
		return
	}
	f, err := protocol.Decode(body)
	if err != nil || f.Type != protocol.FramePush || f.StoreID != storeID {
		writeFrame(w, http.StatusBadRequest,
			protocol.Error(protocol.CodeMalformedFrame, "expected push frame for this partition"))
		return
	}

	resp, status := s.accept(r, storeID, f.Batch)
	writeFrame(w, status, resp)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if _, err := s.authorize(r, storeID); err != nil {
		s.metrics.RecordRejected(protocol.CodeUnauthorizedPartitionAccess)
		writeFrame(w, http.StatusForbidden,
			protocol.Error(protocol.CodeUnauthorizedPartitionAccess, "partition mismatch"))
		return
	}

	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeFrame(w, http.StatusBadRequest,
				protocol.Error(protocol.CodeMalformedFrame, "bad after cursor"))
			return
		}
		after = v
	}

	// Subscribe before reading the backlog so nothing slips between the
	// two; the client deduplicates by id anyway.
	live, cancel := s.hub.subscribe(storeID)
	defer cancel()

	backlog, err := s.log.After(r.Context(), storeID, after)
	if err != nil {
		slog.Error("pull backlog", "store", storeID, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if len(backlog) > 0 {
		writeFrame(w, http.StatusOK, protocol.Events(storeID, backlog))
		return
	}

	select {
	case batch := <-live:
		writeFrame(w, http.StatusOK, protocol.Events(storeID, batch))
	case <-time.After(s.pollTimeout):
		writeFrame(w, http.StatusOK, protocol.Events(storeID, nil))
	case <-r.Context().Done():
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	userID, err := s.authorize(r, storeID)
	if err != nil {
		s.metrics.RecordRejected(protocol.CodeUnauthorizedPartitionAccess)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "store", storeID, "err", err)
		return
	}
	defer conn.Close()

	var hello protocol.Frame
	if err := conn.ReadJSON(&hello); err != nil {
		return
	}
	if hello.Type != protocol.FrameHello || hello.StoreID != storeID {
		_ = conn.WriteJSON(protocol.Error(protocol.CodeMalformedFrame, "expected hello"))
		return
	}

	s.metrics.SubscriberConnected()
	defer s.metrics.SubscriberDisconnected()
	slog.Info("sync session opened", "store", storeID, "after", hello.After)

	// Writes come from two places (ack replies and live broadcasts), so
	// they go through one mutex.
	var writeMu sync.Mutex
	send := func(f protocol.Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	live, cancel := s.hub.subscribe(storeID)
	defer cancel()

	backlog, err := s.log.After(r.Context(), storeID, hello.After)
	if err != nil {
		slog.Error("websocket backlog", "store", storeID, "err", err)
		return
	}
	if len(backlog) > 0 {
		if err := send(protocol.Events(storeID, backlog)); err != nil {
			return
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case batch, ok := <-live:
				if !ok {
					return
				}
				if err := send(protocol.Events(storeID, batch)); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var in protocol.Frame
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, io.EOF) {
				slog.Info("sync session closed", "store", storeID, "err", err)
			}
			return
		}
		if in.Type != protocol.FramePush || in.StoreID != storeID {
			_ = send(protocol.Error(protocol.CodeMalformedFrame, "expected push"))
			continue
		}
		if !s.allowPush(userID) {
			s.metrics.RecordRejected(protocol.CodeRateLimited)
			_ = send(protocol.Error(protocol.CodeRateLimited, "push rate exceeded"))
			continue
		}

		resp, _ := s.accept(r, storeID, in.Batch)
		if err := send(resp); err != nil {
			return
		}
	}
}
