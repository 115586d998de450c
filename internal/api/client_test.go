package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazadclick/clientsync/internal/errs"
	"github.com/mazadclick/clientsync/internal/model"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestClient(t *testing.T, status int, respBody string, captured *capturedRequest) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&captured.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, nil, nil)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"user":{"_id":"u1","firstName":"Lina","type":"CLIENT"}}`, &rec)

	user, err := c.ValidateToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/auth/validate-token", rec.path)
	assert.Equal(t, "Bearer tok", rec.auth)
}

func TestValidateToken_EmptyUserRejected(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"user":{}}`, &rec)

	_, err := c.ValidateToken(context.Background(), "tok")
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
}

func TestList_PostsUserAndTokenBody(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"notifications":[{"_id":"n1","type":"BID_WON","read":false}]}`, &rec)

	items, err := c.List(context.Background(), "u1", "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, model.TypeBidWon, items[0].Type)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/notifications", rec.path)
	assert.Equal(t, "u1", rec.body["userId"])
	assert.Equal(t, "tok", rec.body["token"])
}

func TestListChat_UsesBearerOnly(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"notifications":[]}`, &rec)

	_, err := c.ListChat(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/notifications/chat", rec.path)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Nil(t, rec.body)
}

func TestSend_WireFieldNames(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	resp, _ := json.Marshal(model.Message{ID: "m1", ChatID: "c1", Text: "hello", SenderID: "u1", CreatedAt: created})
	var rec capturedRequest
	c := newTestClient(t, 200, string(resp), &rec)

	out, err := c.Send(context.Background(), "tok", model.SendMessage{
		ChatID: "c1", Text: "hello", SenderID: "u1", ReceiverID: "u2",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", out.ID)
	assert.Equal(t, "/api/message/send", rec.path)
	// backend contract spells the receiver field "reciver"
	assert.Equal(t, "u2", rec.body["reciver"])
	assert.Equal(t, "c1", rec.body["idChat"])
	assert.Equal(t, "hello", rec.body["message"])
}

func TestMarkAllRead_PutNoBody(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, ``, &rec)

	require.NoError(t, c.MarkAllRead(context.Background(), "tok"))
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/notifications/mark-all-read", rec.path)
}

func TestMarkRead_PathCarriesID(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, ``, &rec)

	require.NoError(t, c.MarkRead(context.Background(), "tok", "n42"))
	assert.Equal(t, "/api/notifications/n42/read", rec.path)
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, errs.ErrNotAuthenticated},
		{http.StatusForbidden, errs.ErrNotAuthenticated},
		{http.StatusNotFound, errs.ErrNotFound},
	}
	for _, tc := range cases {
		var rec capturedRequest
		c := newTestClient(t, tc.status, ``, &rec)
		_, err := c.List(context.Background(), "u1", "tok")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}

	var rec capturedRequest
	c := newTestClient(t, http.StatusInternalServerError, ``, &rec)
	_, err := c.List(context.Background(), "u1", "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrNotAuthenticated))
}

func TestGetChats_DataEnvelope(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"data":[{"_id":"c1","users":[{"_id":"u1"},{"_id":"u2"}]}]}`, &rec)

	chats, err := c.GetChats(context.Background(), "tok", "u1", "CLIENT")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "c1", chats[0].ID)
	peer, ok := chats[0].Peer("u1")
	require.True(t, ok)
	assert.Equal(t, "u2", peer.ID)
	assert.Equal(t, "u1", rec.body["id"])
	assert.Equal(t, "CLIENT", rec.body["from"])
}

func TestByConversation(t *testing.T) {
	t.Parallel()
	var rec capturedRequest
	c := newTestClient(t, 200, `{"data":[{"_id":"m1","idChat":"c1","message":"hi","sender":"u2"}]}`, &rec)

	msgs, err := c.ByConversation(context.Background(), "tok", "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "/api/message/c1", rec.path)
}
