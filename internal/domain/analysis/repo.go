package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAnalysisNotFound = errors.New("health analysis not found")

// Repository persists analyses and serves the cross-domain dashboard reads.
// The dashboard queries other services' tables read-only; all writes stay
// with their owning service.
type Repository interface {
	Create(ctx context.Context, a *HealthAnalysis) error
	Get(ctx context.Context, id uuid.UUID) (*HealthAnalysis, error)
	Latest(ctx context.Context, userID uuid.UUID) (*HealthAnalysis, error)

	// Series returns analyses since the cutoff, oldest first.
	Series(ctx context.Context, userID uuid.UUID, since time.Time) ([]*HealthAnalysis, error)

	// CategorySamples returns biomarker observations from the user's
	// completed reports since the cutoff, for category trend computation.
	CategorySamples(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategorySample, error)

	RecentReports(ctx context.Context, userID uuid.UUID, limit int) ([]*ReportSummary, error)
	UpcomingAppointment(ctx context.Context, userID uuid.UUID) (*AppointmentSummary, error)
	UnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error)
}
