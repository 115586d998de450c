package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/mazadclick/clientsync/internal/model"
)

// Event names pushed by the backend socket.
const (
	EventSendMessage         = "sendMessage"
	EventBuyerToSeller       = "buyerToSellerMessage"
	EventChatMessageUpdate   = "chatMessageUpdate"
	EventNewMessage          = "newMessage"
	EventAdminMessage        = "adminMessage"
	EventNotification        = "notification"
	EventNotificationChatNew = "sendNotificationChatCreate"
	EventMessageRead         = "messageRead"
)

// MessageEvents lists every event name that carries a chat message payload.
var MessageEvents = []string{
	EventSendMessage,
	EventBuyerToSeller,
	EventChatMessageUpdate,
	EventNewMessage,
	EventAdminMessage,
}

// Event is one decoded realtime frame. Exactly one payload field is set,
// matching the event name.
type Event struct {
	Name         string
	Message      *model.Message
	Notification *model.Notification
	ChatID       string // messageRead only
}

// frame is the wire envelope for every socket payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeFrame translates one raw socket frame into an Event.
// Unknown event names are an error; the socket drops and logs them.
func DecodeFrame(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("frame envelope: %w", err)
	}
	ev := Event{Name: f.Event}
	switch f.Event {
	case EventSendMessage, EventBuyerToSeller, EventChatMessageUpdate, EventNewMessage, EventAdminMessage:
		var m model.Message
		if err := json.Unmarshal(f.Data, &m); err != nil {
			return Event{}, fmt.Errorf("frame %s: %w", f.Event, err)
		}
		ev.Message = &m
	case EventNotification, EventNotificationChatNew:
		var n model.Notification
		if err := json.Unmarshal(f.Data, &n); err != nil {
			return Event{}, fmt.Errorf("frame %s: %w", f.Event, err)
		}
		ev.Notification = &n
	case EventMessageRead:
		var body struct {
			ChatID string `json:"idChat"`
		}
		if err := json.Unmarshal(f.Data, &body); err != nil {
			return Event{}, fmt.Errorf("frame %s: %w", f.Event, err)
		}
		ev.ChatID = body.ChatID
	default:
		return Event{}, fmt.Errorf("frame: unknown event %q", f.Event)
	}
	return ev, nil
}
