// Package ocr is the boundary to the external OCR/analysis pipeline. The
// pipeline is a collaborator, not part of this service: documents are
// submitted by reference and the pipeline reports status transitions and
// extracted biomarkers back asynchronously over Kafka.
package ocr

import (
	"context"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Submission references a stored document for the pipeline to process.
type Submission struct {
	ReportID uuid.UUID `json:"report_id"`
	UserID   uuid.UUID `json:"user_id"`
	BlobKey  string    `json:"blob_key"`
	MimeType string    `json:"mime_type"`
}

// Gateway hands documents to the pipeline.
type Gateway interface {
	Submit(ctx context.Context, sub Submission) error
	Cancel(ctx context.Context, reportID uuid.UUID) error
}

// Event is one pipeline report: a status transition, optionally carrying
// step errors, extracted text/biomarkers (on completion), and analysis
// output.
type Event struct {
	ReportID      uuid.UUID                 `json:"report_id"`
	Status        apitypes.ProcessingStatus `json:"status"`
	Step          string                    `json:"step,omitempty"`
	Error         string                    `json:"error,omitempty"`
	Recoverable   bool                      `json:"recoverable,omitempty"`
	ExtractedText string                    `json:"extracted_text,omitempty"`
	OCRConfidence *float64                  `json:"ocr_confidence,omitempty"`
	Biomarkers    []EventBiomarker          `json:"biomarkers,omitempty"`
	Analysis      *EventAnalysis            `json:"analysis,omitempty"`
}

// EventAnalysis is the pipeline's health assessment of a completed report.
// Trend and risk tolerate values this binary doesn't know; the recording
// side defaults them.
type EventAnalysis struct {
	OverallHealthScore int                  `json:"overall_health_score"`
	HealthTrend        apitypes.HealthTrend `json:"health_trend"`
	RiskLevel          apitypes.RiskLevel   `json:"risk_level"`
	PrimaryConcerns    []string             `json:"primary_concerns,omitempty"`
	ImmediateActions   []string             `json:"immediate_actions,omitempty"`
	Confidence         *float64             `json:"confidence,omitempty"`
}

// EventBiomarker is one extracted measurement in a pipeline event.
type EventBiomarker struct {
	Name             string                   `json:"name"`
	Value            string                   `json:"value"`
	Unit             string                   `json:"unit,omitempty"`
	ReferenceRange   string                   `json:"reference_range,omitempty"`
	Status           apitypes.BiomarkerStatus `json:"status"`
	Confidence       *float64                 `json:"confidence,omitempty"`
	ExtractionMethod string                   `json:"extraction_method,omitempty"`
	Category         apitypes.HealthCategory  `json:"category"`
}

// Applier receives pipeline events. The labreports service implements it.
type Applier interface {
	ApplyPipelineEvent(ctx context.Context, ev Event) error
}

// NopGateway accepts submissions without doing anything. Used in tests and
// when no broker is configured.
type NopGateway struct{}

func (NopGateway) Submit(context.Context, Submission) error { return nil }
func (NopGateway) Cancel(context.Context, uuid.UUID) error { return nil }
