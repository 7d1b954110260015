package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/internal/platform/validate"
	"github.com/superonehealth/api/pkg/apitypes"
)

type Service struct {
	repo    Repository
	issuer  *auth.Issuer
	refresh auth.RefreshTokenStore
	logger  zerolog.Logger
}

func NewService(repo Repository, issuer *auth.Issuer, refresh auth.RefreshTokenStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, refresh: refresh, logger: logger}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthSession, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, respond.Internal(err)
	}

	u := &User{
		Email:             req.Email,
		PasswordHash:      hash,
		Name:              req.Name,
		HealthGoals:       []string{},
		MedicalConditions: []string{},
		Medications:       []string{},
		Allergies:         []string{},
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, respond.ErrDuplicateEmail
		}
		return nil, respond.Internal(err)
	}

	return s.issueSession(ctx, u, uuid.New())
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthSession, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same response as a bad password: account existence is
			// never revealed.
			return nil, respond.ErrInvalidCredentials
		}
		return nil, respond.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, respond.ErrInvalidCredentials
	}

	// Each login starts a fresh token family.
	return s.issueSession(ctx, u, uuid.New())
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// pair in the same family is issued. Reuse of an already-consumed token
// revokes the entire family.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*AuthSession, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	rec, err := s.refresh.Consume(ctx, auth.HashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, auth.ErrTokenConsumed) {
			if rec != nil {
				if revokeErr := s.refresh.RevokeFamily(ctx, rec.FamilyID); revokeErr != nil {
					s.logger.Error().Err(revokeErr).Msg("revoke token family")
				}
				s.logger.Warn().
					Str("family_id", rec.FamilyID.String()).
					Msg("refresh token reuse detected, family revoked")
			}
			return nil, respond.ErrRefreshReused
		}
		if errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenExpired) ||
			errors.Is(err, auth.ErrTokenRevoked) {
			return nil, respond.ErrRefreshReused
		}
		return nil, respond.Internal(err)
	}

	u, err := s.repo.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, respond.ErrRefreshReused
	}

	return s.issueSession(ctx, u, rec.FamilyID)
}

// Logout revokes the presented refresh token's family, or every session when
// allDevices is set. Always succeeds from the client's perspective.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, req LogoutRequest) error {
	if req.AllDevices {
		if err := s.refresh.RevokeUser(ctx, userID); err != nil {
			return respond.Internal(err)
		}
		return nil
	}
	if req.RefreshToken == "" {
		return nil
	}
	rec, err := s.refresh.Consume(ctx, auth.HashToken(req.RefreshToken))
	if rec != nil && rec.UserID == userID {
		if err := s.refresh.RevokeFamily(ctx, rec.FamilyID); err != nil {
			return respond.Internal(err)
		}
	} else if err != nil && !isTokenError(err) {
		return respond.Internal(err)
	}
	return nil
}

// ForgotPassword always reports success. Whether the account exists is
// deliberately not observable from the response.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Msg("forgot password lookup")
		}
		return nil
	}
	// Reset email delivery is handled out of band.
	s.logger.Info().Msg("password reset requested")
	return nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, respond.NotFound("user", userID.String())
		}
		return nil, respond.Internal(err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.DateOfBirth != nil {
		d, err := apitypes.ParseDate(*req.DateOfBirth)
		if err != nil {
			return nil, respond.Validation([]apitypes.FieldError{{
				Field: "date_of_birth", Rule: "dateonly", Message: err.Error(),
			}})
		}
		u.DateOfBirth = &d
	}
	if req.Gender != nil {
		u.Gender = req.Gender
	}
	if req.HeightCm != nil {
		u.HeightCm = req.HeightCm
	}
	if req.WeightKg != nil {
		u.WeightKg = req.WeightKg
	}
	if req.ActivityLevel != nil {
		u.ActivityLevel = req.ActivityLevel
	}
	if req.HealthGoals != nil {
		u.HealthGoals = req.HealthGoals
	}
	if req.MedicalConditions != nil {
		u.MedicalConditions = req.MedicalConditions
	}
	if req.Medications != nil {
		u.Medications = req.Medications
	}
	if req.Allergies != nil {
		u.Allergies = req.Allergies
	}
	if req.EmergencyContact != nil {
		u.EmergencyContact = req.EmergencyContact
	}
	if req.Preferences != nil {
		u.Preferences = *req.Preferences
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, respond.Internal(err)
	}
	u.UpdatedAt = time.Now().UTC()
	return u, nil
}

func (s *Service) issueSession(ctx context.Context, u *User, familyID uuid.UUID) (*AuthSession, error) {
	access, expires, err := s.issuer.MintAccess(u.ID, u.Email)
	if err != nil {
		return nil, respond.Internal(err)
	}
	raw, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, respond.Internal(err)
	}
	rec := &auth.RefreshRecord{
		TokenHash: hash,
		FamilyID:  familyID,
		UserID:    u.ID,
		ExpiresAt: time.Now().UTC().Add(s.issuer.RefreshTTL()),
	}
	if err := s.refresh.Save(ctx, rec); err != nil {
		return nil, respond.Internal(err)
	}
	return &AuthSession{
		User: u,
		Tokens: &auth.TokenPair{
			AccessToken:  access,
			RefreshToken: raw,
			TokenType:    "Bearer",
			ExpiresAt:    expires,
		},
	}, nil
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenConsumed) ||
		errors.Is(err, auth.ErrTokenRevoked) || errors.Is(err, auth.ErrTokenExpired)
}
