package session

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/errs"
	"github.com/mazadclick/clientsync/internal/model"
)

// defaultTokenTTL is assumed when the access token carries no exp claim.
const defaultTokenTTL = 15 * time.Minute

// Reader exposes point-in-time session snapshots. Callers read the latest
// value at call time, not at construction, so a login or logout elsewhere is
// picked up by the next call without push-based invalidation.
type Reader struct {
	store Store
	log   *zap.Logger
}

// NewReader constructs a Reader over the given store.
func NewReader(store Store, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{store: store, log: log}
}

// Current returns the session as persisted right now. Absent or malformed
// storage yields errs.ErrNotAuthenticated; callers treat that as "logged
// out, skip fetch" rather than an error to surface.
func (r *Reader) Current() (*model.Session, error) {
	blob, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		r.log.Debug("session blob malformed", zap.Error(err))
		return nil, errs.ErrNotAuthenticated
	}
	if s.User.ID == "" {
		return nil, errs.ErrNotAuthenticated
	}
	s.Tokens.ExpiresAt = TokenExpiry(s.Tokens.AccessToken)
	return &s, nil
}

// Save persists the session, replacing any previous one.
func (r *Reader) Save(s *model.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.store.Save(blob)
}

// Clear removes the persisted session.
func (r *Reader) Clear() error {
	return r.store.Clear()
}

// TokenExpiry extracts the exp claim without validating the signature; the
// client holds no signing key. Tokens without exp get a short default TTL.
func TokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(defaultTokenTTL)
}
