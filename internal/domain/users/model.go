package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/pkg/apitypes"
)

// User is an account with its health profile. The password hash never
// leaves the service.
type User struct {
	ID                uuid.UUID         `json:"id"`
	Email             string            `json:"email"`
	PasswordHash      string            `json:"-"`
	Name              string            `json:"name"`
	DateOfBirth       *apitypes.Date    `json:"date_of_birth,omitempty"`
	Gender            *string           `json:"gender,omitempty"`
	HeightCm          *float64          `json:"height_cm,omitempty"`
	WeightKg          *float64          `json:"weight_kg,omitempty"`
	ActivityLevel     *string           `json:"activity_level,omitempty"`
	HealthGoals       []string          `json:"health_goals"`
	MedicalConditions []string          `json:"medical_conditions"`
	Medications       []string          `json:"medications"`
	Allergies         []string          `json:"allergies"`
	EmergencyContact  *EmergencyContact `json:"emergency_contact,omitempty"`
	Preferences       Preferences       `json:"preferences"`
	EmailVerified     bool              `json:"email_verified"`
	PhoneVerified     bool              `json:"phone_verified"`
	TwoFactorEnabled  bool              `json:"two_factor_enabled"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// Preferences are client-facing settings stored verbatim.
type Preferences struct {
	Units                    string `json:"units,omitempty"`
	Language                 string `json:"language,omitempty"`
	EmailNotifications       bool   `json:"email_notifications"`
	PushNotifications        bool   `json:"push_notifications"`
	PromotionalNotifications bool   `json:"promotional_notifications"`
}

// AuthSession is the login/register/refresh response: the account plus a
// fresh token pair.
type AuthSession struct {
	User   *User           `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	AllDevices   bool   `json:"all_devices,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateProfileRequest patches the profile. Nil fields are left untouched;
// email and verification flags are not client-writable.
type UpdateProfileRequest struct {
	Name              *string           `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	DateOfBirth       *string           `json:"date_of_birth,omitempty" validate:"omitempty,dateonly"`
	Gender            *string           `json:"gender,omitempty"`
	HeightCm          *float64          `json:"height_cm,omitempty" validate:"omitempty,gt=0,lt=300"`
	WeightKg          *float64          `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=700"`
	ActivityLevel     *string           `json:"activity_level,omitempty"`
	HealthGoals       []string          `json:"health_goals,omitempty"`
	MedicalConditions []string          `json:"medical_conditions,omitempty"`
	Medications       []string          `json:"medications,omitempty"`
	Allergies         []string          `json:"allergies,omitempty"`
	EmergencyContact  *EmergencyContact `json:"emergency_contact,omitempty"`
	Preferences       *Preferences      `json:"preferences,omitempty"`
}
