package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const sessionIDBytes = 32

// ErrNoSession is returned when a session id has no bound identity.
var ErrNoSession = errors.New("session not found")

// Flash kinds understood by the session endpoints.
const (
	FlashError = "error"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
	FlashKey(sessionID, kind string) string
}

// Manager binds browser session ids to user identities. The session payload
// holds nothing but the identity; the principal is resolved per request.
type Manager struct {
	store    sessionStore
	keyer    sessionKeyer
	ttl      time.Duration
	flashTTL time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, client, cfg)
}

func newManager(store sessionStore, keyer sessionKeyer, cfg config.SessionConfig) (*Manager, error) {
	ttl := cfg.TTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	flashTTL := cfg.FlashTTL
	if flashTTL <= 0 {
		flashTTL = 5 * time.Minute
	}
	return &Manager{store: store, keyer: keyer, ttl: ttl, flashTTL: flashTTL}, nil
}

// TTL reports how long a bound session lives.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewID returns a fresh opaque session id.
func NewID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create issues a new session id bound to identity. A new id is minted on
// every login so pre-auth ids are never promoted.
func (m *Manager) Create(ctx context.Context, identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", fmt.Errorf("identity is required")
	}
	sid, err := NewID()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.SessionKey(sid), identity, m.ttl); err != nil {
		return "", err
	}
	return sid, nil
}

// Load returns the identity bound to sid or ErrNoSession.
func (m *Manager) Load(ctx context.Context, sid string) (string, error) {
	if strings.TrimSpace(sid) == "" {
		return "", ErrNoSession
	}
	identity, err := m.store.Get(ctx, m.keyer.SessionKey(sid))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", ErrNoSession
		}
		return "", err
	}
	return identity, nil
}

// Destroy removes the session binding and any pending flash state.
func (m *Manager) Destroy(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return nil
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sid), m.keyer.FlashKey(sid, FlashError))
}

// AddFlash records a one-shot message for sid. Anonymous ids are allowed.
func (m *Manager) AddFlash(ctx context.Context, sid, kind, msg string) error {
	if strings.TrimSpace(sid) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Set(ctx, m.keyer.FlashKey(sid, kind), msg, m.flashTTL)
}

// PopFlash returns and clears the flash message, or "" when none is pending.
func (m *Manager) PopFlash(ctx context.Context, sid, kind string) (string, error) {
	if strings.TrimSpace(sid) == "" {
		return "", nil
	}
	msg, err := m.store.GetDel(ctx, m.keyer.FlashKey(sid, kind))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", nil
		}
		return "", err
	}
	return msg, nil
}
