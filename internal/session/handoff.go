package session

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/model"
)

// TokenValidator checks a handed-off access token against the backend and
// resolves the account it belongs to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.User, error)
}

// ConsumeHandoff processes a one-shot auth handoff embedded in a URL: the
// token, refreshToken and from query parameters are read once, the token is
// validated against the backend, and on success the session is persisted.
// The returned URL always has the handoff parameters stripped, so they are
// consumed exactly once regardless of outcome. A URL without a token
// parameter is returned unchanged with a nil session.
func (r *Reader) ConsumeHandoff(ctx context.Context, v TokenValidator, rawURL string) (string, *model.Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, nil, fmt.Errorf("handoff url: %w", err)
	}
	q := u.Query()
	token := q.Get("token")
	if token == "" {
		return rawURL, nil, nil
	}
	refresh := q.Get("refreshToken")
	from := q.Get("from")

	q.Del("token")
	q.Del("refreshToken")
	q.Del("from")
	u.RawQuery = q.Encode()
	clean := u.String()

	user, err := v.ValidateToken(ctx, token)
	if err != nil {
		r.log.Warn("handoff token rejected", zap.String("from", from), zap.Error(err))
		return clean, nil, fmt.Errorf("validate handoff token: %w", err)
	}

	s := &model.Session{
		User: *user,
		Tokens: model.Tokens{
			AccessToken:  token,
			RefreshToken: refresh,
			ExpiresAt:    TokenExpiry(token),
		},
	}
	if err := r.Save(s); err != nil {
		return clean, nil, fmt.Errorf("persist handoff session: %w", err)
	}
	r.log.Info("session established via handoff",
		zap.String("user", user.ID),
		zap.String("from", from),
	)
	return clean, s, nil
}
