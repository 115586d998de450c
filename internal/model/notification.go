package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType enumerates server-assigned notification kinds.
type NotificationType string

const (
	TypeBidCreated      NotificationType = "BID_CREATED"
	TypeBidEnded        NotificationType = "BID_ENDED"
	TypeBidWon          NotificationType = "BID_WON"
	TypeNewOffer        NotificationType = "NEW_OFFER"
	TypeChatCreated     NotificationType = "CHAT_CREATED"
	TypeMessageAdmin    NotificationType = "MESSAGE_ADMIN"
	TypeMessageReceived NotificationType = "MESSAGE_RECEIVED"
)

// Notification is a server-owned alert. The client mutates only the Read
// flag, optimistically, via mark-read calls.
type Notification struct {
	ID        string           `json:"_id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`

	// Unread is a per-conversation message count; only the chat-thread
	// listing populates it.
	Unread int `json:"unread,omitempty"`
}

// Typed payloads carried in Notification.Data, discriminated by Type.

// BidPayload accompanies BID_CREATED / BID_ENDED / BID_WON.
type BidPayload struct {
	AuctionID  string  `json:"auctionId"`
	Title      string  `json:"auctionTitle"`
	FinalPrice float64 `json:"finalPrice,omitempty"`
}

// OfferPayload accompanies NEW_OFFER.
type OfferPayload struct {
	TenderID string  `json:"tenderId"`
	Amount   float64 `json:"amount"`
	SenderID string  `json:"senderId"`
}

// ChatPayload accompanies CHAT_CREATED / MESSAGE_ADMIN / MESSAGE_RECEIVED.
type ChatPayload struct {
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Preview    string `json:"messageText,omitempty"`
}

// Payload decodes Data into the variant matching Type. A notification with
// no Data yields (nil, nil).
func (n Notification) Payload() (any, error) {
	if len(n.Data) == 0 {
		return nil, nil
	}
	var out any
	switch n.Type {
	case TypeBidCreated, TypeBidEnded, TypeBidWon:
		out = &BidPayload{}
	case TypeNewOffer:
		out = &OfferPayload{}
	case TypeChatCreated, TypeMessageAdmin, TypeMessageReceived:
		out = &ChatPayload{}
	default:
		return nil, fmt.Errorf("payload: unknown type %q", n.Type)
	}
	if err := json.Unmarshal(n.Data, out); err != nil {
		return nil, fmt.Errorf("payload %s: %w", n.Type, err)
	}
	return out, nil
}
