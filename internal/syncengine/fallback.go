package syncengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/protocol"
	"github.com/ZSmain/ordo/internal/store"
)

// Fallback performs one-shot sync exchanges over the authority's HTTP
// endpoints. Used where a long-lived WebSocket is unavailable and by the
// CLI's single-shot sync.
type Fallback struct {
	store      *store.Store
	baseURL    string // http:// or https:// base, no trailing slash
	credential *http.Cookie
	client     *http.Client
}

func NewFallback(s *store.Store, baseURL string, credential *http.Cookie, client *http.Client) *Fallback {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fallback{store: s, baseURL: baseURL, credential: credential, client: client}
}

// SyncOnce pushes everything pending, folds the ack, then pulls and
// applies whatever the authority has beyond the local confirmation
// cursor.
func (f *Fallback) SyncOnce(ctx context.Context) error {
	if err := f.pushOnce(ctx); err != nil {
		return err
	}
	return f.pullOnce(ctx)
}

func (f *Fallback) pushOnce(ctx context.Context) error {
	pending, err := f.store.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	frame, err := f.exchange(ctx, http.MethodPost,
		f.baseURL+"/sync/"+f.store.StoreID()+"/push",
		protocol.Push(f.store.StoreID(), pending))
	if err != nil {
		return err
	}
	if frame.Type != protocol.FrameAck {
		return fmt.Errorf("push: authority answered %s (%s)", frame.Type, frame.Code)
	}

	var batch []event.Wire
	for _, w := range pending {
		if seq, ok := frame.Seqs[w.ID]; ok {
			w.Seq = seq
			batch = append(batch, w)
		}
	}
	return f.store.ApplyRemote(ctx, batch)
}

func (f *Fallback) pullOnce(ctx context.Context) error {
	after, err := f.store.LastConfirmedSeq(ctx)
	if err != nil {
		return err
	}

	frame, err := f.exchange(ctx, http.MethodGet,
		f.baseURL+"/sync/"+f.store.StoreID()+"/pull?after="+strconv.FormatInt(after, 10),
		protocol.Frame{})
	if err != nil {
		return err
	}
	if frame.Type != protocol.FrameEvents {
		return fmt.Errorf("pull: authority answered %s (%s)", frame.Type, frame.Code)
	}
	return f.store.ApplyRemote(ctx, frame.Batch)
}

func (f *Fallback) exchange(ctx context.Context, method, url string, out protocol.Frame) (protocol.Frame, error) {
	var body io.Reader
	if method == http.MethodPost {
		data, err := out.Encode()
		if err != nil {
			return protocol.Frame{}, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return protocol.Frame{}, err
	}
	if f.credential != nil {
		req.AddCookie(f.credential)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return protocol.Frame{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Frame{}, err
	}
	frame, err := protocol.Decode(data)
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("%s %s: status %d: %w", method, url, resp.StatusCode, err)
	}
	return frame, nil
}
