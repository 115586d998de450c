// Package chat owns the active conversation: history fetch, optimistic
// sends with rollback, realtime appends with id dedupe, and per-chat unread
// counters for conversations that are not on screen.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/api"
	"github.com/mazadclick/clientsync/internal/bridge"
	"github.com/mazadclick/clientsync/internal/errs"
	"github.com/mazadclick/clientsync/internal/model"
	"github.com/mazadclick/clientsync/internal/pending"
	"github.com/mazadclick/clientsync/internal/session"
)

// State is the widget lifecycle of the manager.
type State int

const (
	// StateNone means no conversation is selected.
	StateNone State = iota
	// StateLoading means a conversation is selected and history is in flight.
	StateLoading
	// StateReady means history is loaded and sends are allowed.
	StateReady
)

// tempPrefix marks optimistic message ids awaiting server confirmation.
const tempPrefix = "tmp-"

// Rooms controls socket room membership for the selected chat.
type Rooms interface {
	JoinRoom(chatID string) error
	LeaveRoom(chatID string) error
}

// Manager reconciles one conversation view against the backend.
type Manager struct {
	chats  api.ChatAPI
	msgs   api.MessageAPI
	notifs api.NotificationAPI
	sess   *session.Reader
	bus    *bridge.Bus
	rooms  Rooms
	pend   *pending.Table
	log    *zap.Logger

	mu       sync.Mutex
	state    State
	active   *model.Chat
	gen      int // selection generation; stale history responses are dropped
	selfID   string
	messages []model.Message
	draft    string
	unread   map[string]int
	lastErr  string
	subs     []busSub
}

type busSub struct {
	event string
	id    int
}

// NewManager constructs a Manager. rooms may be nil when no socket is up
// (e.g. one-shot CLI commands).
func NewManager(chats api.ChatAPI, msgs api.MessageAPI, notifs api.NotificationAPI,
	sess *session.Reader, bus *bridge.Bus, rooms Rooms, pend *pending.Table, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if pend == nil {
		pend = pending.NewTable()
	}
	return &Manager{
		chats:  chats,
		msgs:   msgs,
		notifs: notifs,
		sess:   sess,
		bus:    bus,
		rooms:  rooms,
		pend:   pend,
		log:    log,
		unread: map[string]int{},
	}
}

// Attach subscribes to every message-bearing bridge event. Call Detach on
// teardown; listener counts must return to baseline.
func (m *Manager) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) > 0 {
		return
	}
	for _, name := range bridge.MessageEvents {
		id := m.bus.On(name, m.onEvent)
		m.subs = append(m.subs, busSub{event: name, id: id})
	}
}

// Detach removes every bridge subscription registered by Attach.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		m.bus.Off(s.event, s.id)
	}
	m.subs = nil
}

// Chats lists the user's conversations.
func (m *Manager) Chats(ctx context.Context) ([]model.Chat, error) {
	s, err := m.sess.Current()
	if err != nil {
		return nil, err
	}
	return m.chats.GetChats(ctx, s.Tokens.AccessToken, s.User.ID, s.User.Type)
}

// Select makes the chat active: its unread counter drops to zero
// immediately, full history is fetched (ascending CreatedAt), and the
// socket room subscription moves over. A history response that arrives
// after another Select wins the race is discarded.
func (m *Manager) Select(ctx context.Context, chat model.Chat) error {
	s, err := m.sess.Current()
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev := m.active
	m.active = &chat
	m.selfID = s.User.ID
	m.state = StateLoading
	m.gen++
	gen := m.gen
	m.unread[chat.ID] = 0
	m.messages = nil
	m.lastErr = ""
	m.mu.Unlock()

	if m.rooms != nil {
		if prev != nil && prev.ID != chat.ID {
			if err := m.rooms.LeaveRoom(prev.ID); err != nil {
				m.log.Warn("leave room", zap.String("chat", prev.ID), zap.Error(err))
			}
		}
		if err := m.rooms.JoinRoom(chat.ID); err != nil {
			m.log.Warn("join room", zap.String("chat", chat.ID), zap.Error(err))
		}
	}

	history, err := m.msgs.ByConversation(ctx, s.Tokens.AccessToken, chat.ID)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return nil // a newer selection owns the view now
	}
	if err != nil {
		m.state = StateNone
		m.active = nil
		m.lastErr = err.Error()
		m.mu.Unlock()
		return fmt.Errorf("load history: %w", err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
	m.messages = history
	m.state = StateReady
	m.mu.Unlock()

	// Best-effort read receipts; failures only log.
	if err := m.msgs.MarkConversationRead(ctx, s.Tokens.AccessToken, chat.ID); err != nil {
		m.log.Warn("mark conversation read", zap.String("chat", chat.ID), zap.Error(err))
	}
	if err := m.notifs.MarkChatRead(ctx, s.Tokens.AccessToken, chat.ID); err != nil {
		m.log.Warn("mark chat notifications read", zap.String("chat", chat.ID), zap.Error(err))
	}
	return nil
}

// Send delivers text to the active chat. The message appears in the list
// with a temporary id and the draft clears before the network call; on
// success the temporary entry is replaced by the server-confirmed one, on
// failure it is removed and the draft restored.
func (m *Manager) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errs.ErrEmptyMessage
	}
	s, err := m.sess.Current()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.active == nil || m.state != StateReady {
		m.mu.Unlock()
		return errs.ErrNoActiveChat
	}
	chat := *m.active
	op := m.pend.Begin("send", text)
	tempID := tempPrefix + op.ID.String()
	now := time.Now()
	m.messages = append(m.messages, model.Message{
		ID:        tempID,
		ChatID:    chat.ID,
		Text:      text,
		SenderID:  s.User.ID,
		CreatedAt: now,
		Pending:   true,
	})
	m.draft = ""
	m.mu.Unlock()

	receiver, _ := chat.Peer(s.User.ID)
	confirmed, err := m.msgs.Send(ctx, s.Tokens.AccessToken, model.SendMessage{
		ChatID:     chat.ID,
		Text:       text,
		SenderID:   s.User.ID,
		ReceiverID: receiver.ID,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.pend.Reject(op.ID)
		m.removeLocked(tempID)
		m.draft = text
		m.lastErr = err.Error()
		return fmt.Errorf("send message: %w", err)
	}
	m.pend.Resolve(op.ID)
	if m.containsLocked(confirmed.ID) {
		// realtime delivery beat the HTTP response; drop the temp entry only
		m.removeLocked(tempID)
		return nil
	}
	for i := range m.messages {
		if m.messages[i].ID == tempID {
			m.messages[i] = *confirmed
			m.sortLocked()
			return nil
		}
	}
	// temp entry vanished (chat switched away); nothing to reconcile
	return nil
}

// onEvent applies a realtime message. Active-chat messages append unless
// the id is already present; other chats only bump their unread counter.
func (m *Manager) onEvent(ev bridge.Event) {
	if ev.Message == nil {
		return
	}
	msg := *ev.Message

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && msg.ChatID == m.active.ID {
		if m.containsLocked(msg.ID) {
			return
		}
		m.messages = append(m.messages, msg)
		m.sortLocked()
		return
	}
	if msg.SenderID != m.selfID {
		m.unread[msg.ChatID]++
	}
}

// Close deselects the chat (mobile back action / logout) and leaves its room.
func (m *Manager) Close() {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.state = StateNone
	m.messages = nil
	m.gen++
	m.mu.Unlock()

	if active != nil && m.rooms != nil {
		if err := m.rooms.LeaveRoom(active.ID); err != nil {
			m.log.Warn("leave room", zap.String("chat", active.ID), zap.Error(err))
		}
	}
}

// Reset clears all state including unread counters (logout).
func (m *Manager) Reset() {
	m.Close()
	m.mu.Lock()
	m.unread = map[string]int{}
	m.draft = ""
	m.lastErr = ""
	m.selfID = ""
	m.mu.Unlock()
}

// State reports the selection lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the selected chat, if any.
func (m *Manager) Active() *model.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	c := *m.active
	return &c
}

// Messages returns the rendered list in ascending CreatedAt order.
func (m *Manager) Messages() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.messages...)
}

// Draft returns the compose input contents.
func (m *Manager) Draft() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// SetDraft replaces the compose input contents.
func (m *Manager) SetDraft(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = text
}

// Unread reports the unread counter of a non-active chat.
func (m *Manager) Unread(chatID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread[chatID]
}

// Err returns the last surfaced failure, empty when healthy.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) containsLocked(id string) bool {
	for i := range m.messages {
		if m.messages[i].ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) removeLocked(id string) {
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

func (m *Manager) sortLocked() {
	sort.SliceStable(m.messages, func(i, j int) bool {
		return m.messages[i].CreatedAt.Before(m.messages[j].CreatedAt)
	})
}
