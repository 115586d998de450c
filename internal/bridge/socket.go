package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ResyncPolicy decides what happens after the socket reconnects: either
// registered resync hooks fire immediately, or consumers catch up on their
// next interaction-driven refresh.
type ResyncPolicy int

const (
	// ResyncOnInteraction performs no catch-up on reconnect; consumers
	// refresh when next opened. Matches the observed production behavior.
	ResyncOnInteraction ResyncPolicy = iota
	// ResyncOnReconnect fires registered resync hooks after each reconnect.
	ResyncOnReconnect
)

const maxRedialBackoff = 30 * time.Second

// roomAction is the wire message for chat room membership changes.
type roomAction struct {
	Action string `json:"action"` // "join" or "leave"
	Room   string `json:"room"`
}

// Socket maintains a websocket connection to the backend, decodes incoming
// frames onto the Bus, and tracks joined chat rooms so they are re-joined
// after a redial.
type Socket struct {
	url    string
	bus    *Bus
	log    *zap.Logger
	policy ResyncPolicy
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[string]bool
	hooks  []func()
	dialed bool // at least one successful connect happened
}

// NewSocket constructs a Socket; Run must be called to connect.
func NewSocket(url string, bus *Bus, policy ResyncPolicy, log *zap.Logger) *Socket {
	if log == nil {
		log = zap.NewNop()
	}
	return &Socket{
		url:    url,
		bus:    bus,
		log:    log,
		policy: policy,
		dialer: websocket.DefaultDialer,
		rooms:  map[string]bool{},
	}
}

// OnResync registers a hook invoked after reconnect under ResyncOnReconnect.
func (s *Socket) OnResync(h func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Run dials and reads until ctx is cancelled, redialing with backoff on
// connection loss. It returns ctx.Err() on cancellation.
func (s *Socket) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("socket dial failed", zap.Error(err), zap.Duration("retry", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < maxRedialBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		s.mu.Lock()
		s.conn = conn
		reconnected := s.dialed
		s.dialed = true
		rooms := make([]string, 0, len(s.rooms))
		for r := range s.rooms {
			rooms = append(rooms, r)
		}
		hooks := append([]func(){}, s.hooks...)
		s.mu.Unlock()

		for _, r := range rooms {
			if err := s.write(roomAction{Action: "join", Room: r}); err != nil {
				s.log.Warn("rejoin room failed", zap.String("room", r), zap.Error(err))
			}
		}
		if reconnected && s.policy == ResyncOnReconnect {
			for _, h := range hooks {
				h()
			}
		}

		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Info("socket disconnected, redialing")
	}
}

// readLoop decodes frames until the connection fails or ctx is cancelled.
func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.log.Warn("socket read", zap.Error(err))
			}
			return
		}
		ev, err := DecodeFrame(raw)
		if err != nil {
			s.log.Debug("frame dropped", zap.Error(err))
			continue
		}
		s.bus.Emit(ev)
	}
}

// JoinRoom subscribes to a chat room. Membership is remembered and restored
// on reconnect; joining while disconnected only records the intent.
func (s *Socket) JoinRoom(chatID string) error {
	s.mu.Lock()
	s.rooms[chatID] = true
	s.mu.Unlock()
	return s.write(roomAction{Action: "join", Room: chatID})
}

// LeaveRoom unsubscribes from a chat room.
func (s *Socket) LeaveRoom(chatID string) error {
	s.mu.Lock()
	delete(s.rooms, chatID)
	s.mu.Unlock()
	return s.write(roomAction{Action: "leave", Room: chatID})
}

// write sends one JSON message if connected; a nil connection is not an
// error so callers can express intent before Run establishes the link.
func (s *Socket) write(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("socket write: %w", err)
	}
	return nil
}
