package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/superonehealth/api/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, password_hash, name, date_of_birth, gender,
	height_cm, weight_kg, activity_level,
	health_goals, medical_conditions, medications, allergies,
	emergency_contact, preferences,
	email_verified, phone_verified, two_factor_enabled,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, name, date_of_birth, gender,
			height_cm, weight_kg, activity_level,
			health_goals, medical_conditions, medications, allergies,
			emergency_contact, preferences
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
		)`,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.Name, u.DateOfBirth, u.Gender,
		u.HeightCm, u.WeightKg, u.ActivityLevel,
		u.HealthGoals, u.MedicalConditions, u.Medications, u.Allergies,
		u.EmergencyContact, u.Preferences,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET
			name=$2, date_of_birth=$3, gender=$4, height_cm=$5, weight_kg=$6,
			activity_level=$7, health_goals=$8, medical_conditions=$9,
			medications=$10, allergies=$11, emergency_contact=$12,
			preferences=$13, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.DateOfBirth, u.Gender, u.HeightCm, u.WeightKg,
		u.ActivityLevel, u.HealthGoals, u.MedicalConditions,
		u.Medications, u.Allergies, u.EmergencyContact,
		u.Preferences,
	)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.DateOfBirth, &u.Gender,
		&u.HeightCm, &u.WeightKg, &u.ActivityLevel,
		&u.HealthGoals, &u.MedicalConditions, &u.Medications, &u.Allergies,
		&u.EmergencyContact, &u.Preferences,
		&u.EmailVerified, &u.PhoneVerified, &u.TwoFactorEnabled,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
