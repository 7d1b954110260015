package labreports

import (
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// LabReport is the metadata record for one uploaded document. The bytes live
// in the blob store under BlobKey; the OCR pipeline mutates the processing
// fields, nothing else does.
type LabReport struct {
	ID               uuid.UUID                 `json:"id"`
	UserID           uuid.UUID                 `json:"user_id"`
	FileName         string                    `json:"file_name"`
	FileSize         int64                     `json:"file_size"`
	MimeType         string                    `json:"mime_type"`
	BlobKey          string                    `json:"-"`
	DocumentType     apitypes.DocumentType     `json:"document_type"`
	HealthCategory   apitypes.HealthCategory   `json:"health_category"`
	ProcessingStatus apitypes.ProcessingStatus `json:"processing_status"`
	Progress         float64                   `json:"progress"`
	ExtractedText    string                    `json:"extracted_text,omitempty"`
	OCRConfidence    *float64                  `json:"ocr_confidence,omitempty"`
	Attempts         int                       `json:"attempts"`
	ProcessingErrors []ProcessingError         `json:"processing_errors"`
	UploadDate       time.Time                 `json:"upload_date"`
	UpdatedAt        time.Time                 `json:"updated_at"`

	// Biomarkers is populated on detail reads for completed reports.
	Biomarkers []*Biomarker `json:"biomarkers,omitempty"`
}

func (r *LabReport) deriveProgress() {
	r.Progress = r.ProcessingStatus.Progress()
}

// ProcessingError is one per-step failure reported by the pipeline. The list
// is stored as JSONB on the report.
type ProcessingError struct {
	Step        string    `json:"step"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Biomarker is one measurement extracted from a report. It belongs to
// exactly one report and is replaced wholesale when the pipeline re-runs.
type Biomarker struct {
	ID               uuid.UUID                `json:"id"`
	ReportID         uuid.UUID                `json:"report_id"`
	Name             string                   `json:"name"`
	Value            string                   `json:"value"`
	Unit             string                   `json:"unit,omitempty"`
	ReferenceRange   string                   `json:"reference_range,omitempty"`
	Status           apitypes.BiomarkerStatus `json:"status"`
	Confidence       *float64                 `json:"confidence,omitempty"`
	ExtractionMethod string                   `json:"extraction_method,omitempty"`
	Category         apitypes.HealthCategory  `json:"category"`
	CreatedAt        time.Time                `json:"created_at"`
}

// Upload carries one file through validation and storage. Content is
// consumed exactly once.
type Upload struct {
	FileName     string
	Size         int64
	MimeType     string
	DocumentType string
	Category     string
	Content      []byte
}

// BatchResult is the per-file outcome of a batch upload. Exactly one of
// Report or Errors is set.
type BatchResult struct {
	FileName string                `json:"file_name"`
	Accepted bool                  `json:"accepted"`
	Report   *LabReport            `json:"report,omitempty"`
	Errors   []apitypes.FieldError `json:"errors,omitempty"`
}

// UploadStatus is the polling view of a report in flight.
type UploadStatus struct {
	ReportID uuid.UUID                 `json:"report_id"`
	Status   apitypes.ProcessingStatus `json:"status"`
	Progress float64                   `json:"progress"`
	Attempts int                       `json:"attempts"`
	Errors   []ProcessingError         `json:"errors"`
}

// Filters narrows upload history listings.
type Filters struct {
	Status   string
	Category string
}
