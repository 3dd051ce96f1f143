// Package session gates the admin surface behind a PIN and short-lived
// session tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTTL = 30 * time.Minute

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions until their expiry. Load reports false for
// unknown ids.
type Store interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

type Manager struct {
	store   Store
	pinHash []byte
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// HashPIN bcrypt-hashes a plaintext PIN for use with NewManager.
func HashPIN(pin string) ([]byte, error) {
	if !ValidPIN(pin) {
		return nil, ErrPINFormat
	}
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

func NewManager(store Store, pinHash []byte, options Options) (*Manager, error) {
	if _, err := bcrypt.Cost(pinHash); err != nil {
		return nil, fmt.Errorf("admin pin hash: %w", err)
	}
	m := &Manager{
		store:   store,
		pinHash: pinHash,
		ttl:     options.TTL,
		now:     options.Now,
		logger:  options.Logger,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m, nil
}

func (m *Manager) Login(ctx context.Context, pin string) (Session, error) {
	if !ValidPIN(pin) {
		return Session{}, ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword(m.pinHash, []byte(pin)); err != nil {
		m.logger.Warn("admin login rejected")
		return Session{}, ErrInvalidPIN
	}

	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	m.logger.Info("admin session started", zap.Time("expires_at", s.ExpiresAt))
	return s, nil
}

// Validate returns the live session for id. Expiry is checked here as well
// as by the store so a store without native TTLs cannot extend a session.
func (m *Manager) Validate(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrSessionNotFound
	}
	s, ok, err := m.store.Load(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || !m.now().Before(s.ExpiresAt) {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return ErrSessionNotFound
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
