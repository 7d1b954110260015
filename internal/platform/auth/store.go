package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store errors. Consume distinguishes reuse from plain invalidity so the
// service can revoke the family on reuse.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenConsumed = errors.New("refresh token already consumed")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// RefreshRecord is one stored refresh token. FamilyID groups every rotation
// descended from a single login so reuse detection can revoke the chain.
type RefreshRecord struct {
	TokenHash  string
	FamilyID   uuid.UUID
	UserID     uuid.UUID
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// RefreshTokenStore persists refresh tokens. Consume must be atomic: of N
// concurrent calls with the same hash, exactly one succeeds and the rest see
// ErrTokenConsumed.
type RefreshTokenStore interface {
	Save(ctx context.Context, rec *RefreshRecord) error
	// Consume marks the token used and returns its record. Implementations
	// use a conditional write on consumed_at so concurrent refreshes race
	// safely.
	Consume(ctx context.Context, tokenHash string) (*RefreshRecord, error)
	// RevokeFamily invalidates every token in a family (reuse detection).
	RevokeFamily(ctx context.Context, familyID uuid.UUID) error
	// RevokeUser invalidates every token belonging to a user (logout all).
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// MemoryStore is the in-memory RefreshTokenStore used by tests and dev mode.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*RefreshRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*RefreshRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec *RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.TokenHash] = &cp
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, tokenHash string) (*RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if rec.RevokedAt != nil {
		return nil, ErrTokenRevoked
	}
	if rec.ConsumedAt != nil {
		cp := *rec
		return &cp, ErrTokenConsumed
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	now := time.Now().UTC()
	rec.ConsumedAt = &now
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) RevokeFamily(_ context.Context, familyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range s.records {
		if rec.FamilyID == familyID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
		}
	}
	return nil
}

func (s *MemoryStore) RevokeUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range s.records {
		if rec.UserID == userID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
		}
	}
	return nil
}
