// Package notify retrieves notification lists and their derived unread
// counts. Three fetcher variants (general, chat, admin) share one
// implementation; each owns its items exclusively and merges are read-only
// projections.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/api"
	"github.com/mazadclick/clientsync/internal/bridge"
	"github.com/mazadclick/clientsync/internal/errs"
	"github.com/mazadclick/clientsync/internal/model"
	"github.com/mazadclick/clientsync/internal/pending"
	"github.com/mazadclick/clientsync/internal/session"
)

// Source identifies which backend listing a fetcher draws from.
type Source string

const (
	// SourceGeneral is the bell feed (bid/offer lifecycle).
	SourceGeneral Source = "general"
	// SourceChat is the per-conversation thread listing with unread counts.
	SourceChat Source = "chat"
	// SourceAdmin is the chat-relevant feed pre-filtered server-side.
	SourceAdmin Source = "admin"
)

// Fetcher retrieves one notification list and exposes its unread count.
// Refresh replaces items wholesale; the last response wins.
type Fetcher struct {
	source Source
	api    api.NotificationAPI
	sess   *session.Reader
	pend   *pending.Table
	log    *zap.Logger

	mu          sync.Mutex
	items       []model.Notification
	loading     bool
	errMsg      string
	markAllBusy bool
	subs        []busSub
	bus         *bridge.Bus
}

type busSub struct {
	event string
	id    int
}

// New constructs a Fetcher for the given source.
func New(source Source, napi api.NotificationAPI, sess *session.Reader, pend *pending.Table, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if pend == nil {
		pend = pending.NewTable()
	}
	return &Fetcher{source: source, api: napi, sess: sess, pend: pend, log: log}
}

// Attach subscribes to realtime notification events; new notifications are
// patched in locally (id-deduplicated) without a full re-fetch.
func (f *Fetcher) Attach(bus *bridge.Bus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) > 0 {
		return
	}
	f.bus = bus
	for _, name := range []string{bridge.EventNotification, bridge.EventNotificationChatNew} {
		id := bus.On(name, f.onEvent)
		f.subs = append(f.subs, busSub{event: name, id: id})
	}
}

// Detach removes the realtime subscriptions registered by Attach.
func (f *Fetcher) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		f.bus.Off(s.event, s.id)
	}
	f.subs = nil
	f.bus = nil
}

func (f *Fetcher) onEvent(ev bridge.Event) {
	if ev.Notification == nil {
		return
	}
	n := *ev.Notification
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == n.ID {
			return // duplicate delivery
		}
	}
	f.items = append([]model.Notification{n}, f.items...)
}

// Source reports which listing this fetcher draws from.
func (f *Fetcher) Source() Source { return f.source }

// Refresh replaces the item list from the backend. While auth is not ready
// it is a no-op that leaves items untouched; with a session but no access
// token the list empties (logged out, not an error).
func (f *Fetcher) Refresh(ctx context.Context) error {
	s, err := f.sess.Current()
	if err != nil {
		return nil // not authenticated yet; skip fetch
	}
	if s.Tokens.AccessToken == "" {
		f.mu.Lock()
		f.items = []model.Notification{}
		f.errMsg = ""
		f.mu.Unlock()
		return nil
	}

	f.mu.Lock()
	f.loading = true
	f.mu.Unlock()

	items, err := f.list(ctx, s)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.errMsg = err.Error()
		return fmt.Errorf("refresh %s notifications: %w", f.source, err)
	}
	f.items = items
	f.errMsg = ""
	return nil
}

func (f *Fetcher) list(ctx context.Context, s *model.Session) ([]model.Notification, error) {
	switch f.source {
	case SourceChat:
		return f.api.ListChatThreads(ctx, s.User.ID, s.Tokens.AccessToken)
	case SourceAdmin:
		return f.api.ListChat(ctx, s.Tokens.AccessToken)
	default:
		return f.api.List(ctx, s.User.ID, s.Tokens.AccessToken)
	}
}

// Items returns a copy of the current list.
func (f *Fetcher) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.items...)
}

// UnreadCount derives the unread total from the current items: unread flags
// for feed variants, summed per-conversation counters for the chat variant.
func (f *Fetcher) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.items {
		if f.source == SourceChat {
			n += f.items[i].Unread
		} else if !f.items[i].Read {
			n++
		}
	}
	return n
}

// Loading reports whether a refresh is in flight.
func (f *Fetcher) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Err returns the last surfaced failure, empty when healthy.
func (f *Fetcher) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// MarkRead flips one item to read before the network call resolves; a
// failed call rolls the flag back.
func (f *Fetcher) MarkRead(ctx context.Context, id string) error {
	s, err := f.sess.Current()
	if err != nil {
		return err
	}

	f.mu.Lock()
	idx := -1
	for i := range f.items {
		if f.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return errs.ErrNotFound
	}
	if f.items[idx].Read {
		f.mu.Unlock()
		return nil
	}
	op := f.pend.Begin("mark-read", id)
	f.items[idx].Read = true
	f.mu.Unlock()

	if err := f.api.MarkRead(ctx, s.Tokens.AccessToken, id); err != nil {
		f.pend.Reject(op.ID)
		f.mu.Lock()
		for i := range f.items {
			if f.items[i].ID == id {
				f.items[i].Read = false
			}
		}
		f.errMsg = err.Error()
		f.mu.Unlock()
		return fmt.Errorf("mark read: %w", err)
	}
	f.pend.Resolve(op.ID)
	return nil
}

// MarkAllRead flips every item to read before the single network call. The
// in-flight flag rejects overlapping calls so the affordance can be
// disabled without time-based debouncing. Failure restores the prior flags.
func (f *Fetcher) MarkAllRead(ctx context.Context) error {
	s, err := f.sess.Current()
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.markAllBusy {
		f.mu.Unlock()
		return errs.ErrMarkAllInFlight
	}
	f.markAllBusy = true
	prior := make(map[string]bool, len(f.items))
	for i := range f.items {
		prior[f.items[i].ID] = f.items[i].Read
		f.items[i].Read = true
	}
	op := f.pend.Begin("mark-all-read", prior)
	f.mu.Unlock()

	err = f.api.MarkAllRead(ctx, s.Tokens.AccessToken)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllBusy = false
	if err != nil {
		f.pend.Reject(op.ID)
		for i := range f.items {
			if was, ok := prior[f.items[i].ID]; ok {
				f.items[i].Read = was
			}
		}
		f.errMsg = err.Error()
		return fmt.Errorf("mark all read: %w", err)
	}
	f.pend.Resolve(op.ID)
	return nil
}
