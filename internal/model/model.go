// Package model defines domain entities shared by the session, chat and
// notification layers. All entities are server-owned; the client holds
// invalidatable copies and a refetch is always authoritative.
package model

import (
	"strings"
	"time"
)

// User is the account behind the current session or a chat participant.
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Type      string `json:"type"` // CLIENT, PROFESSIONAL, RESELLER, ADMIN
	Banned    bool   `json:"isBanned"`
}

// FullName joins the name fields, tolerating empty halves.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"-"` // access token expiry (for diagnostics)
}

// Session is the persisted auth blob: current user plus issued tokens.
// Single shared instance per client; last write wins.
type Session struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// Chat is a two-party conversation. Created server-side; read-only here.
type Chat struct {
	ID           string    `json:"_id"`
	Participants []User    `json:"users"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Peer returns the participant that is not selfID, if any.
func (c Chat) Peer(selfID string) (User, bool) {
	for _, u := range c.Participants {
		if u.ID != selfID {
			return u, true
		}
	}
	return User{}, false
}

// Message is a single chat entry. Optimistically inserted messages carry a
// temporary id until the server-confirmed entry replaces them; no two
// messages with a final id may coexist within one chat's list.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"idChat"`
	Text      string    `json:"message"`
	SenderID  string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"isRead"`

	// Pending marks an optimistic insert awaiting server confirmation.
	Pending bool `json:"-"`
}

// SendMessage is the wire request for MessageAPI.Send. Field names follow
// the backend contract, including its spelling of "reciver".
type SendMessage struct {
	ChatID     string `json:"idChat"`
	Text       string `json:"message"`
	SenderID   string `json:"sender"`
	ReceiverID string `json:"reciver"`
}
