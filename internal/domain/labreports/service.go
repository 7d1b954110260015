package labreports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/blobstore"
	"github.com/superonehealth/api/internal/platform/db"
	"github.com/superonehealth/api/internal/platform/ocr"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/internal/platform/validate"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

// analysisTimeout is how long a report may sit in one active pipeline state
// before the watchdog fails it.
const analysisTimeout = 5 * time.Minute

// Notifier receives report lifecycle events. The notifications service
// implements it; a nil notifier is skipped.
type Notifier interface {
	ReportCompleted(ctx context.Context, rpt *LabReport)
	ReportFailed(ctx context.Context, rpt *LabReport)
}

// Analyst records the pipeline's health assessment of a completed report.
// The analysis service implements it; a nil analyst is skipped.
type Analyst interface {
	ReportAnalyzed(ctx context.Context, rpt *LabReport, out *ocr.EventAnalysis)
}

type Service struct {
	repo    Repository
	pool    *pgxpool.Pool
	blobs   blobstore.Store
	gateway ocr.Gateway
	notify  Notifier
	analyst Analyst
	logger  zerolog.Logger
}

func NewService(repo Repository, pool *pgxpool.Pool, blobs blobstore.Store, gateway ocr.Gateway, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pool: pool, blobs: blobs, gateway: gateway, logger: logger}
}

func (s *Service) SetNotifier(n Notifier) { s.notify = n }

func (s *Service) SetAnalyst(a Analyst) { s.analyst = a }

// UploadReport validates and stores one document: bytes to the blob store,
// metadata to Postgres, then a submission to the pipeline. Pipeline submit
// failures are logged, not returned. The report stays pending and the
// pipeline retries from the bucket.
func (s *Service) UploadReport(ctx context.Context, userID uuid.UUID, up Upload) (*LabReport, error) {
	if fields := validate.Upload(up.FileName, up.Size, up.MimeType); len(fields) > 0 {
		return nil, respond.Validation(fields)
	}

	docType := apitypes.DocumentLabReport
	if up.DocumentType != "" {
		dt, ok := apitypes.ParseDocumentType(up.DocumentType)
		if !ok {
			return nil, respond.Validation([]apitypes.FieldError{{
				Field: "document_type", Rule: "oneof", Message: "unknown document type",
			}})
		}
		docType = dt
	}
	category := apitypes.CategoryGeneral
	if up.Category != "" {
		hc, ok := apitypes.ParseHealthCategory(up.Category)
		if !ok {
			return nil, respond.Validation([]apitypes.FieldError{{
				Field: "category", Rule: "oneof", Message: "unknown health category",
			}})
		}
		category = hc
	}

	rpt := &LabReport{
		ID:               uuid.New(),
		UserID:           userID,
		FileName:         up.FileName,
		FileSize:         up.Size,
		MimeType:         up.MimeType,
		DocumentType:     docType,
		HealthCategory:   category,
		ProcessingStatus: apitypes.ProcessingPending,
		Attempts:         1,
		ProcessingErrors: []ProcessingError{},
		UploadDate:       time.Now().UTC(),
	}
	rpt.BlobKey = fmt.Sprintf("users/%s/reports/%s", userID, rpt.ID)

	if err := s.blobs.Put(ctx, rpt.BlobKey, up.MimeType, bytes.NewReader(up.Content)); err != nil {
		return nil, respond.Unavailable("document storage", err)
	}
	if err := s.repo.Create(ctx, rpt); err != nil {
		// Orphaned blobs are cheap; a report row without bytes is not.
		if delErr := s.blobs.Delete(ctx, rpt.BlobKey); delErr != nil {
			s.logger.Warn().Err(delErr).Str("blob_key", rpt.BlobKey).Msg("orphan blob cleanup failed")
		}
		return nil, respond.Internal(err)
	}

	s.submit(ctx, rpt)
	rpt.deriveProgress()
	return rpt, nil
}

// UploadBatch handles up to MaxBatchFiles documents, accepting and rejecting
// each independently.
func (s *Service) UploadBatch(ctx context.Context, userID uuid.UUID, ups []Upload) ([]BatchResult, error) {
	if len(ups) == 0 {
		return nil, respond.Validation([]apitypes.FieldError{{
			Field: "files", Rule: "required", Message: "at least one file is required",
		}})
	}
	if len(ups) > validate.MaxBatchFiles {
		return nil, respond.Validation([]apitypes.FieldError{{
			Field: "files", Rule: "max",
			Message: fmt.Sprintf("at most %d files per batch", validate.MaxBatchFiles),
		}})
	}

	out := make([]BatchResult, 0, len(ups))
	for _, up := range ups {
		rpt, err := s.UploadReport(ctx, userID, up)
		if err != nil {
			respErr := respond.AsError(err)
			out = append(out, BatchResult{FileName: up.FileName, Accepted: false, Errors: respErr.Fields})
			continue
		}
		out = append(out, BatchResult{FileName: up.FileName, Accepted: true, Report: rpt})
	}
	return out, nil
}

func (s *Service) Status(ctx context.Context, userID, id uuid.UUID) (*UploadStatus, error) {
	rpt, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &UploadStatus{
		ReportID: rpt.ID,
		Status:   rpt.ProcessingStatus,
		Progress: rpt.Progress,
		Attempts: rpt.Attempts,
		Errors:   rpt.ProcessingErrors,
	}, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, f Filters, pg pagination.Params) ([]*LabReport, int, error) {
	if f.Status != "" {
		if _, ok := apitypes.ParseProcessingStatus(f.Status); !ok {
			return nil, 0, respond.Validation([]apitypes.FieldError{{
				Field: "status", Rule: "oneof", Message: "unknown processing status",
			}})
		}
	}
	if f.Category != "" {
		if _, ok := apitypes.ParseHealthCategory(f.Category); !ok {
			return nil, 0, respond.Validation([]apitypes.FieldError{{
				Field: "category", Rule: "oneof", Message: "unknown health category",
			}})
		}
	}
	reports, total, err := s.repo.List(ctx, userID, f, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	return reports, total, nil
}

// Get returns one report with its biomarkers.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*LabReport, error) {
	rpt, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	marks, err := s.repo.ListBiomarkers(ctx, id)
	if err != nil {
		return nil, respond.Internal(err)
	}
	rpt.Biomarkers = marks
	return rpt, nil
}

// Delete removes the report row, its biomarkers (cascade) and the stored
// bytes. An in-flight report is cancelled with the pipeline first.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rpt, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !rpt.ProcessingStatus.Terminal() {
		if err := s.gateway.Cancel(ctx, rpt.ID); err != nil {
			s.logger.Warn().Err(err).Str("report_id", rpt.ID.String()).Msg("pipeline cancel failed")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return respond.NotFound("report", id.String())
		}
		return respond.Internal(err)
	}
	if err := s.blobs.Delete(ctx, rpt.BlobKey); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn().Err(err).Str("blob_key", rpt.BlobKey).Msg("blob delete failed")
	}
	return nil
}

// Resubmit resets a failed report to pending and hands it back to the
// pipeline with a bumped attempt counter.
func (s *Service) Resubmit(ctx context.Context, userID, id uuid.UUID) (*LabReport, error) {
	rpt, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rpt.ProcessingStatus != apitypes.ProcessingFailed {
		return nil, respond.Unprocessable(
			fmt.Sprintf("only failed reports can be resubmitted; report is %q", rpt.ProcessingStatus), nil)
	}

	rpt.ProcessingStatus = apitypes.ProcessingPending
	rpt.Attempts++
	if err := s.repo.UpdateProcessing(ctx, rpt); err != nil {
		return nil, respond.Internal(err)
	}
	s.submit(ctx, rpt)
	rpt.deriveProgress()
	return rpt, nil
}

// ApplyPipelineEvent records one status transition reported by the pipeline.
// Invalid transitions are logged and dropped; the pipeline resends terminal
// states and the watchdog covers losses.
func (s *Service) ApplyPipelineEvent(ctx context.Context, ev ocr.Event) error {
	rpt, err := s.repo.Get(ctx, ev.ReportID)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			s.logger.Warn().Str("report_id", ev.ReportID.String()).Msg("pipeline event for unknown report")
			return nil
		}
		return err
	}

	if !transitionAllowed(rpt.ProcessingStatus, ev.Status) {
		s.logger.Warn().
			Str("report_id", rpt.ID.String()).
			Str("from", string(rpt.ProcessingStatus)).
			Str("to", string(ev.Status)).
			Msg("dropping invalid pipeline transition")
		return nil
	}

	rpt.ProcessingStatus = ev.Status
	if ev.Error != "" {
		rpt.ProcessingErrors = append(rpt.ProcessingErrors, ProcessingError{
			Step:        ev.Step,
			Message:     ev.Error,
			Recoverable: ev.Recoverable,
			OccurredAt:  time.Now().UTC(),
		})
	}
	if ev.Status == apitypes.ProcessingCompleted {
		rpt.ExtractedText = ev.ExtractedText
		rpt.OCRConfidence = ev.OCRConfidence
	}

	err = s.withTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateProcessing(txCtx, rpt); err != nil {
			return err
		}
		if ev.Status == apitypes.ProcessingCompleted {
			return s.repo.ReplaceBiomarkers(txCtx, rpt.ID, eventBiomarkers(rpt.ID, ev.Biomarkers))
		}
		return nil
	})
	if err != nil {
		return err
	}

	rpt.deriveProgress()
	if ev.Status == apitypes.ProcessingCompleted && ev.Analysis != nil && s.analyst != nil {
		s.analyst.ReportAnalyzed(ctx, rpt, ev.Analysis)
	}
	if s.notify != nil {
		switch ev.Status {
		case apitypes.ProcessingCompleted:
			s.notify.ReportCompleted(ctx, rpt)
		case apitypes.ProcessingFailed:
			s.notify.ReportFailed(ctx, rpt)
		}
	}
	return nil
}

// ExpireStalled fails every report stuck in an active pipeline state past
// the analysis timeout. Returns how many reports were failed.
func (s *Service) ExpireStalled(ctx context.Context) (int, error) {
	stuck, err := s.repo.StuckReports(ctx, time.Now().UTC().Add(-analysisTimeout))
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, rpt := range stuck {
		rpt.ProcessingErrors = append(rpt.ProcessingErrors, ProcessingError{
			Step:        string(rpt.ProcessingStatus),
			Message:     fmt.Sprintf("no pipeline progress for %s", analysisTimeout),
			Recoverable: true,
			OccurredAt:  time.Now().UTC(),
		})
		rpt.ProcessingStatus = apitypes.ProcessingFailed
		if err := s.repo.UpdateProcessing(ctx, rpt); err != nil {
			s.logger.Error().Err(err).Str("report_id", rpt.ID.String()).Msg("watchdog fail-over update failed")
			continue
		}
		failed++
		s.logger.Warn().Str("report_id", rpt.ID.String()).Msg("report failed by analysis watchdog")
		if s.notify != nil {
			s.notify.ReportFailed(ctx, rpt)
		}
	}
	return failed, nil
}

// RunWatchdog polls for stalled reports until the context is cancelled.
func (s *Service) RunWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireStalled(ctx); err != nil {
				s.logger.Error().Err(err).Msg("analysis watchdog sweep failed")
			}
		}
	}
}

func (s *Service) get(ctx context.Context, userID, id uuid.UUID) (*LabReport, error) {
	rpt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return nil, respond.NotFound("report", id.String())
		}
		return nil, respond.Internal(err)
	}
	if rpt.UserID != userID {
		// Not distinguishable from nonexistence.
		return nil, respond.NotFound("report", id.String())
	}
	return rpt, nil
}

func (s *Service) submit(ctx context.Context, rpt *LabReport) {
	err := s.gateway.Submit(ctx, ocr.Submission{
		ReportID: rpt.ID,
		UserID:   rpt.UserID,
		BlobKey:  rpt.BlobKey,
		MimeType: rpt.MimeType,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", rpt.ID.String()).Msg("pipeline submit failed")
	}
}

func (s *Service) withTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func eventBiomarkers(reportID uuid.UUID, in []ocr.EventBiomarker) []*Biomarker {
	out := make([]*Biomarker, len(in))
	for i, b := range in {
		out[i] = &Biomarker{
			ID:               uuid.New(),
			ReportID:         reportID,
			Name:             b.Name,
			Value:            b.Value,
			Unit:             b.Unit,
			ReferenceRange:   b.ReferenceRange,
			Status:           b.Status,
			Confidence:       b.Confidence,
			ExtractionMethod: b.ExtractionMethod,
			Category:         b.Category,
			CreatedAt:        time.Now().UTC(),
		}
	}
	return out
}

// stateOrder indexes the forward path of the pipeline. Side branches and
// terminals are handled separately in transitionAllowed.
var stateOrder = map[apitypes.ProcessingStatus]int{
	apitypes.ProcessingPending:       0,
	apitypes.ProcessingUploading:     1,
	apitypes.ProcessingPreprocessing: 2,
	apitypes.ProcessingProcessing:    3,
	apitypes.ProcessingAnalyzing:     4,
	apitypes.ProcessingExtracting:    5,
	apitypes.ProcessingValidating:    6,
	apitypes.ProcessingCompleted:     7,
}

func transitionAllowed(from, to apitypes.ProcessingStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case apitypes.ProcessingFailed, apitypes.ProcessingCancelled:
		return true
	case apitypes.ProcessingRetrying, apitypes.ProcessingPaused:
		// Side branches from any active state.
		return from != to
	case apitypes.ProcessingUnknown:
		return false
	}
	if from == apitypes.ProcessingRetrying || from == apitypes.ProcessingPaused {
		// Resuming lands anywhere on the forward path.
		_, ok := stateOrder[to]
		return ok
	}
	fromIdx, okFrom := stateOrder[from]
	toIdx, okTo := stateOrder[to]
	return okFrom && okTo && toIdx > fromIdx
}
