package labreports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/pagination"
)

var ErrReportNotFound = errors.New("lab report not found")

// Repository persists report metadata and extracted biomarkers. Document
// bytes never pass through here.
type Repository interface {
	Create(ctx context.Context, r *LabReport) error
	Get(ctx context.Context, id uuid.UUID) (*LabReport, error)
	List(ctx context.Context, userID uuid.UUID, f Filters, pg pagination.Params) ([]*LabReport, int, error)

	// UpdateProcessing persists the pipeline-mutable fields: status,
	// extracted text, confidence, attempts and the error list.
	UpdateProcessing(ctx context.Context, r *LabReport) error

	// ReplaceBiomarkers swaps the report's extracted measurements for a new
	// set. Re-runs of the pipeline replace, never append.
	ReplaceBiomarkers(ctx context.Context, reportID uuid.UUID, marks []*Biomarker) error
	ListBiomarkers(ctx context.Context, reportID uuid.UUID) ([]*Biomarker, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// StuckReports returns reports sitting in a non-terminal state whose last
	// update is older than the cutoff. The watchdog fails them.
	StuckReports(ctx context.Context, cutoff time.Time) ([]*LabReport, error)
}
