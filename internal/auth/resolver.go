package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/logger"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/validation"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidAPIKey   = errors.New("invalid api key")
)

// Credentials is either a Session or an APIKey.
type Credentials interface {
	isCredentials()
}

// Session is a browser session token plus the user id the body claims.
// An empty ClaimedUserID accepts whatever user the token names.
type Session struct {
	Token         string
	ClaimedUserID string
}

// APIKey is a plugin key sent in the request body.
type APIKey struct {
	Key string
}

func (Session) isCredentials() {}
func (APIKey) isCredentials()  {}

type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// KeyLookup finds the user owning an API key digest.
type KeyLookup interface {
	UserIDByAPIKeyDigest(ctx context.Context, digest string) (userID string, found bool, err error)
}

type Resolver struct {
	sessions SessionAuthenticator
	keys     KeyLookup
}

func NewResolver(sessions SessionAuthenticator, keys KeyLookup) *Resolver {
	return &Resolver{sessions: sessions, keys: keys}
}

// Resolve returns the user id the credentials prove. Errors other than
// ErrUnauthenticated and ErrInvalidAPIKey come from the key store.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (string, error) {
	switch c := creds.(type) {
	case Session:
		return r.resolveSession(ctx, c)
	case APIKey:
		return r.resolveAPIKey(ctx, c)
	default:
		return "", ErrUnauthenticated
	}
}

func (r *Resolver) resolveSession(ctx context.Context, s Session) (string, error) {
	if s.Token == "" || r.sessions == nil {
		return "", ErrUnauthenticated
	}
	uid, err := r.sessions.Authenticate(ctx, s.Token)
	if err != nil {
		logger.From(ctx).WithError(err).Debug("[Auth] session rejected")
		return "", ErrUnauthenticated
	}
	if s.ClaimedUserID != "" && s.ClaimedUserID != uid {
		observe.SecurityEvent(ctx, "user_id does not match session", logrus.Fields{
			"user_id":    uid,
			"claimed_id": s.ClaimedUserID,
		})
		return "", ErrUnauthenticated
	}
	return uid, nil
}

func (r *Resolver) resolveAPIKey(ctx context.Context, k APIKey) (string, error) {
	if !validation.ValidAPIKeyFormat(k.Key) {
		observe.SecurityEvent(ctx, "malformed api key", nil)
		return "", ErrInvalidAPIKey
	}
	uid, found, err := r.keys.UserIDByAPIKeyDigest(ctx, DigestAPIKey(k.Key))
	if err != nil {
		return "", err
	}
	if !found {
		observe.SecurityEvent(ctx, "unknown api key", nil)
		return "", ErrInvalidAPIKey
	}
	return uid, nil
}
