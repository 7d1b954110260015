package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct{ pool *pgxpool.Pool }

// NewPGStore returns the PostgreSQL-backed RefreshTokenStore.
func NewPGStore(pool *pgxpool.Pool) RefreshTokenStore { return &pgStore{pool: pool} }

func (s *pgStore) Save(ctx context.Context, rec *RefreshRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, family_id, user_id, expires_at)
		VALUES ($1, $2, $3, $4)`,
		rec.TokenHash, rec.FamilyID, rec.UserID, rec.ExpiresAt)
	return err
}

// Consume atomically marks the token consumed. The conditional UPDATE is the
// serialization point: under concurrent refreshes with the same token, one
// UPDATE matches and the rest fall through to the diagnosis SELECT.
func (s *pgStore) Consume(ctx context.Context, tokenHash string) (*RefreshRecord, error) {
	rec := &RefreshRecord{}
	var consumedAt, revokedAt *time.Time
	err := s.pool.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET consumed_at = NOW()
		WHERE token_hash = $1
		  AND consumed_at IS NULL
		  AND revoked_at IS NULL
		  AND expires_at > NOW()
		RETURNING token_hash, family_id, user_id, expires_at, consumed_at, revoked_at, created_at`,
		tokenHash).Scan(&rec.TokenHash, &rec.FamilyID, &rec.UserID,
		&rec.ExpiresAt, &consumedAt, &revokedAt, &rec.CreatedAt)
	if err == nil {
		rec.ConsumedAt = consumedAt
		rec.RevokedAt = revokedAt
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// The update matched nothing; find out why.
	err = s.pool.QueryRow(ctx, `
		SELECT token_hash, family_id, user_id, expires_at, consumed_at, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash).Scan(&rec.TokenHash, &rec.FamilyID, &rec.UserID,
		&rec.ExpiresAt, &consumedAt, &revokedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.ConsumedAt = consumedAt
	rec.RevokedAt = revokedAt
	switch {
	case revokedAt != nil:
		return nil, ErrTokenRevoked
	case consumedAt != nil:
		return rec, ErrTokenConsumed
	default:
		return nil, ErrTokenExpired
	}
}

func (s *pgStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`, familyID)
	return err
}

func (s *pgStore) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}
