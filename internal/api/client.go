// Package api implements the backend REST contract used by the chat and
// notification layers. Interfaces are consumed by those layers; Client is
// the HTTP implementation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/errs"
	"github.com/mazadclick/clientsync/internal/model"
)

// AuthAPI validates handed-off tokens.
type AuthAPI interface {
	// ValidateToken resolves the account an access token belongs to.
	ValidateToken(ctx context.Context, token string) (*model.User, error)
}

// ChatAPI lists conversations.
type ChatAPI interface {
	// GetChats returns the conversations the user participates in.
	GetChats(ctx context.Context, token, userID, from string) ([]model.Chat, error)
}

// MessageAPI reads and writes conversation messages.
type MessageAPI interface {
	// ByConversation returns the full message history of one chat.
	ByConversation(ctx context.Context, token, chatID string) ([]model.Message, error)
	// Send delivers a message and returns the server-confirmed entry.
	Send(ctx context.Context, token string, req model.SendMessage) (*model.Message, error)
	// MarkConversationRead flags every message of a chat as read.
	MarkConversationRead(ctx context.Context, token, chatID string) error
}

// NotificationAPI lists notifications and flips read flags.
type NotificationAPI interface {
	// List returns the general notification feed.
	List(ctx context.Context, userID, token string) ([]model.Notification, error)
	// ListChat returns notifications pre-filtered to chat-relevant types.
	ListChat(ctx context.Context, token string) ([]model.Notification, error)
	// ListChatThreads returns per-conversation entries with unread counts.
	ListChatThreads(ctx context.Context, userID, token string) ([]model.Notification, error)
	// MarkRead flags a single notification as read.
	MarkRead(ctx context.Context, token, id string) error
	// MarkAllRead flags every notification as read.
	MarkAllRead(ctx context.Context, token string) error
	// MarkChatRead flags a conversation's chat notifications as read.
	MarkChatRead(ctx context.Context, token, chatID string) error
}

// Client talks HTTP to the MazadClick backend.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

var _ AuthAPI = (*Client)(nil)
var _ ChatAPI = (*Client)(nil)
var _ MessageAPI = (*Client)(nil)
var _ NotificationAPI = (*Client)(nil)

// New constructs a Client for the given base URL, e.g. "https://api.mazad.click".
func New(base string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: base, http: hc, log: log}
}

// do issues one request and decodes the response into out (if non-nil).
// Responses are logged with method, path, status and duration only.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("http",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.ErrNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// Response envelopes used by the backend.
type notificationsEnvelope struct {
	Notifications []model.Notification `json:"notifications"`
}

type dataEnvelope[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/validate-token", token, nil, &out); err != nil {
		return nil, err
	}
	if out.User.ID == "" {
		return nil, errs.ErrNotAuthenticated
	}
	return &out.User, nil
}

func (c *Client) GetChats(ctx context.Context, token, userID, from string) ([]model.Chat, error) {
	body := map[string]string{"id": userID, "from": from}
	var out dataEnvelope[model.Chat]
	if err := c.do(ctx, http.MethodPost, "/api/chat/get", token, body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) ByConversation(ctx context.Context, token, chatID string) ([]model.Message, error) {
	var out dataEnvelope[model.Message]
	if err := c.do(ctx, http.MethodGet, "/api/message/"+chatID, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Send(ctx context.Context, token string, req model.SendMessage) (*model.Message, error) {
	var out model.Message
	if err := c.do(ctx, http.MethodPost, "/api/message/send", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkConversationRead(ctx context.Context, token, chatID string) error {
	return c.do(ctx, http.MethodPut, "/api/message/read/"+chatID, token, nil, nil)
}

func (c *Client) List(ctx context.Context, userID, token string) ([]model.Notification, error) {
	body := map[string]string{"userId": userID, "token": token}
	var out notificationsEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/notifications", token, body, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) ListChat(ctx context.Context, token string) ([]model.Notification, error) {
	var out notificationsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/notifications/chat", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) ListChatThreads(ctx context.Context, userID, token string) ([]model.Notification, error) {
	body := map[string]string{"userId": userID, "token": token}
	var out notificationsEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/chat-notifications", token, body, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) MarkRead(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/"+id+"/read", token, nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/mark-all-read", token, nil, nil)
}

func (c *Client) MarkChatRead(ctx context.Context, token, chatID string) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/chat/"+chatID+"/read", token, nil, nil)
}
