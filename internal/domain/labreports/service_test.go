package labreports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/blobstore"
	"github.com/superonehealth/api/internal/platform/ocr"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	mu         sync.Mutex
	reports    map[uuid.UUID]*LabReport
	biomarkers map[uuid.UUID][]*Biomarker
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		reports:    make(map[uuid.UUID]*LabReport),
		biomarkers: make(map[uuid.UUID][]*Biomarker),
	}
}

func (m *mockRepo) Create(_ context.Context, r *LabReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*LabReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	cp := *r
	cp.deriveProgress()
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, f Filters, _ pagination.Params) ([]*LabReport, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*LabReport
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		if f.Status != "" && string(r.ProcessingStatus) != f.Status {
			continue
		}
		if f.Category != "" && string(r.HealthCategory) != f.Category {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) UpdateProcessing(_ context.Context, r *LabReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reports[r.ID]
	if !ok {
		return ErrReportNotFound
	}
	stored.ProcessingStatus = r.ProcessingStatus
	stored.ExtractedText = r.ExtractedText
	stored.OCRConfidence = r.OCRConfidence
	stored.Attempts = r.Attempts
	stored.ProcessingErrors = append([]ProcessingError(nil), r.ProcessingErrors...)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockRepo) ReplaceBiomarkers(_ context.Context, reportID uuid.UUID, marks []*Biomarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.biomarkers[reportID] = marks
	return nil
}

func (m *mockRepo) ListBiomarkers(_ context.Context, reportID uuid.UUID) ([]*Biomarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.biomarkers[reportID], nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(m.reports, id)
	delete(m.biomarkers, id)
	return nil
}

func (m *mockRepo) StuckReports(_ context.Context, cutoff time.Time) ([]*LabReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*LabReport
	for _, r := range m.reports {
		if r.ProcessingStatus.Terminal() || r.ProcessingStatus == apitypes.ProcessingPending {
			continue
		}
		if r.UpdatedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -- Collaborator doubles --

type recordingGateway struct {
	mu          sync.Mutex
	submissions []ocr.Submission
	cancels     []uuid.UUID
}

func (g *recordingGateway) Submit(_ context.Context, sub ocr.Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submissions = append(g.submissions, sub)
	return nil
}

func (g *recordingGateway) Cancel(_ context.Context, reportID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, reportID)
	return nil
}

type recordingNotifier struct {
	completed []uuid.UUID
	failed    []uuid.UUID
}

func (n *recordingNotifier) ReportCompleted(_ context.Context, rpt *LabReport) {
	n.completed = append(n.completed, rpt.ID)
}

func (n *recordingNotifier) ReportFailed(_ context.Context, rpt *LabReport) {
	n.failed = append(n.failed, rpt.ID)
}

type recordingAnalyst struct {
	reports  []uuid.UUID
	analyses []*ocr.EventAnalysis
}

func (a *recordingAnalyst) ReportAnalyzed(_ context.Context, rpt *LabReport, out *ocr.EventAnalysis) {
	a.reports = append(a.reports, rpt.ID)
	a.analyses = append(a.analyses, out)
}

func newTestService() (*Service, *mockRepo, *blobstore.Memory, *recordingGateway, *recordingNotifier) {
	repo := newMockRepo()
	blobs := blobstore.NewMemory()
	gw := &recordingGateway{}
	notifier := &recordingNotifier{}
	svc := NewService(repo, nil, blobs, gw, zerolog.Nop())
	svc.SetNotifier(notifier)
	return svc, repo, blobs, gw, notifier
}

func pdfUpload(name string) Upload {
	return Upload{
		FileName: name,
		Size:     1024,
		MimeType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake"),
	}
}

func TestUploadStoresAndSubmits(t *testing.T) {
	svc, _, blobs, gw, _ := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rpt.ProcessingStatus != apitypes.ProcessingPending {
		t.Errorf("status = %s, want pending", rpt.ProcessingStatus)
	}
	if rpt.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", rpt.Attempts)
	}
	if blobs.Len() != 1 {
		t.Errorf("blob count = %d, want 1", blobs.Len())
	}
	if len(gw.submissions) != 1 || gw.submissions[0].ReportID != rpt.ID {
		t.Errorf("pipeline submission missing: %+v", gw.submissions)
	}
	if gw.submissions[0].BlobKey != rpt.BlobKey {
		t.Error("submission references wrong blob key")
	}
}

func TestUploadRejectsBadFiles(t *testing.T) {
	svc, _, blobs, _, _ := newTestService()

	up := Upload{FileName: "", Size: 20 * 1024 * 1024, MimeType: "application/zip"}
	_, err := svc.UploadReport(context.Background(), uuid.New(), up)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(respErr.Fields) != 3 {
		t.Errorf("expected all 3 violations reported, got %+v", respErr.Fields)
	}
	if blobs.Len() != 0 {
		t.Error("rejected upload must not store bytes")
	}
}

func TestUploadBatchPerFileResults(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	ups := []Upload{
		pdfUpload("a.pdf"),
		{FileName: "b.zip", Size: 100, MimeType: "application/zip", Content: []byte("x")},
		pdfUpload("c.pdf"),
	}
	results, err := svc.UploadBatch(context.Background(), userID, ups)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results[0].Accepted || results[1].Accepted || !results[2].Accepted {
		t.Fatalf("accept pattern wrong: %+v", results)
	}
	if results[1].Report != nil || len(results[1].Errors) == 0 {
		t.Errorf("rejected entry must carry errors only: %+v", results[1])
	}
	if results[0].Report == nil {
		t.Error("accepted entry missing the created report")
	}
}

func TestUploadBatchTooManyFiles(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	ups := make([]Upload, 6)
	for i := range ups {
		ups[i] = pdfUpload("f.pdf")
	}
	_, err := svc.UploadBatch(context.Background(), uuid.New(), ups)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 400 {
		t.Fatalf("expected 400 for oversized batch, got %v", err)
	}
}

func TestPipelineEventAdvancesStatus(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	for _, status := range []apitypes.ProcessingStatus{
		apitypes.ProcessingUploading,
		apitypes.ProcessingProcessing,
		apitypes.ProcessingAnalyzing,
	} {
		if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: rpt.ID, Status: status}); err != nil {
			t.Fatalf("apply %s: %v", status, err)
		}
	}

	status, err := svc.Status(context.Background(), userID, rpt.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != apitypes.ProcessingAnalyzing {
		t.Errorf("status = %s, want analyzing", status.Status)
	}
	if status.Progress <= 0 || status.Progress >= 1 {
		t.Errorf("progress = %v, want a mid-pipeline fraction", status.Progress)
	}
}

func TestPipelineCompletionStoresBiomarkers(t *testing.T) {
	svc, _, _, _, notifier := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("lipids.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	conf := 0.93
	ev := ocr.Event{
		ReportID:      rpt.ID,
		Status:        apitypes.ProcessingCompleted,
		ExtractedText: "LDL 130 mg/dL",
		OCRConfidence: &conf,
		Biomarkers: []ocr.EventBiomarker{
			{Name: "LDL", Value: "130", Unit: "mg/dL", Status: apitypes.BiomarkerHigh, Category: apitypes.CategoryCardiovascular},
			{Name: "HDL", Value: "55", Unit: "mg/dL", Status: apitypes.BiomarkerOptimal, Category: apitypes.CategoryCardiovascular},
		},
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ev); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := svc.Get(context.Background(), userID, rpt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProcessingStatus != apitypes.ProcessingCompleted {
		t.Errorf("status = %s", got.ProcessingStatus)
	}
	if got.ExtractedText != "LDL 130 mg/dL" || got.OCRConfidence == nil {
		t.Error("extraction results not persisted")
	}
	if len(got.Biomarkers) != 2 {
		t.Fatalf("got %d biomarkers, want 2", len(got.Biomarkers))
	}
	if got.Progress != 1.0 {
		t.Errorf("progress = %v, want 1.0", got.Progress)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != rpt.ID {
		t.Error("completion notification missing")
	}
}

func TestPipelineDropsInvalidTransitions(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: rpt.ID, Status: apitypes.ProcessingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// A completed report is immutable.
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: rpt.ID, Status: apitypes.ProcessingProcessing}); err != nil {
		t.Fatalf("stale event must be dropped silently: %v", err)
	}
	status, err := svc.Status(context.Background(), userID, rpt.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != apitypes.ProcessingCompleted {
		t.Errorf("terminal status mutated to %s", status.Status)
	}
}

func TestPipelineFailureRecordsError(t *testing.T) {
	svc, _, _, _, notifier := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	ev := ocr.Event{
		ReportID: rpt.ID, Status: apitypes.ProcessingFailed,
		Step: "ocr", Error: "document too blurry", Recoverable: true,
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ev); err != nil {
		t.Fatalf("apply: %v", err)
	}

	status, err := svc.Status(context.Background(), userID, rpt.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != apitypes.ProcessingFailed {
		t.Errorf("status = %s", status.Status)
	}
	if len(status.Errors) != 1 || !status.Errors[0].Recoverable || status.Errors[0].Step != "ocr" {
		t.Errorf("error list wrong: %+v", status.Errors)
	}
	if len(notifier.failed) != 1 {
		t.Error("failure notification missing")
	}
}

func TestResubmitFromFailed(t *testing.T) {
	svc, _, _, gw, _ := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: rpt.ID, Status: apitypes.ProcessingFailed, Error: "timeout", Recoverable: true}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	re, err := svc.Resubmit(context.Background(), userID, rpt.ID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if re.ProcessingStatus != apitypes.ProcessingPending {
		t.Errorf("status = %s, want pending", re.ProcessingStatus)
	}
	if re.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", re.Attempts)
	}
	if len(gw.submissions) != 2 {
		t.Errorf("expected a second pipeline submission, got %d", len(gw.submissions))
	}

	// Only failed reports can be resubmitted.
	_, err = svc.Resubmit(context.Background(), userID, rpt.ID)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 422 {
		t.Fatalf("expected 422 for pending report, got %v", err)
	}
}

func TestDeleteRemovesBlobAndCancelsPipeline(t *testing.T) {
	svc, _, blobs, gw, _ := newTestService()
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(context.Background(), userID, rpt.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if blobs.Len() != 0 {
		t.Error("blob not removed")
	}
	if len(gw.cancels) != 1 || gw.cancels[0] != rpt.ID {
		t.Error("in-flight report not cancelled with the pipeline")
	}
	_, err = svc.Status(context.Background(), userID, rpt.ID)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 404 {
		t.Fatalf("deleted report must 404, got %v", err)
	}
}

func TestDeleteHidesForeignReports(t *testing.T) {
	svc, _, blobs, _, _ := newTestService()

	rpt, err := svc.UploadReport(context.Background(), uuid.New(), pdfUpload("cbc.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	err = svc.Delete(context.Background(), uuid.New(), rpt.ID)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 404 {
		t.Fatalf("foreign report must 404, got %v", err)
	}
	if blobs.Len() != 1 {
		t.Error("foreign delete must not touch the blob")
	}
}

func TestWatchdogFailsStalledReports(t *testing.T) {
	svc, repo, _, _, notifier := newTestService()
	userID := uuid.New()

	stalled, err := svc.UploadReport(context.Background(), userID, pdfUpload("old.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: stalled.ID, Status: apitypes.ProcessingAnalyzing}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	repo.mu.Lock()
	repo.reports[stalled.ID].UpdatedAt = time.Now().UTC().Add(-10 * time.Minute)
	repo.mu.Unlock()

	fresh, err := svc.UploadReport(context.Background(), userID, pdfUpload("new.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: fresh.ID, Status: apitypes.ProcessingAnalyzing}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	n, err := svc.ExpireStalled(context.Background())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d reports, want 1", n)
	}

	got, err := svc.Status(context.Background(), userID, stalled.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Status != apitypes.ProcessingFailed {
		t.Errorf("stalled report status = %s, want failed", got.Status)
	}
	if len(got.Errors) != 1 || !got.Errors[0].Recoverable {
		t.Errorf("watchdog error must be recoverable: %+v", got.Errors)
	}
	freshStatus, err := svc.Status(context.Background(), userID, fresh.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if freshStatus.Status != apitypes.ProcessingAnalyzing {
		t.Errorf("fresh report touched by watchdog: %s", freshStatus.Status)
	}
	if len(notifier.failed) != 1 {
		t.Error("watchdog failure notification missing")
	}
}

func TestHistoryFilters(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	userID := uuid.New()

	a, err := svc.UploadReport(context.Background(), userID, pdfUpload("a.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.UploadReport(context.Background(), userID, pdfUpload("b.pdf")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ocr.Event{ReportID: a.ID, Status: apitypes.ProcessingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	completed, total, err := svc.History(context.Background(), userID, Filters{Status: "completed"}, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 1 || len(completed) != 1 || completed[0].ID != a.ID {
		t.Fatalf("filtered history wrong: total=%d len=%d", total, len(completed))
	}

	_, _, err = svc.History(context.Background(), userID, Filters{Status: "exploded"}, pagination.Params{Limit: 20})
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 400 {
		t.Fatalf("expected 400 for unknown status filter, got %v", err)
	}
}

func TestTransitionRules(t *testing.T) {
	cases := []struct {
		from, to apitypes.ProcessingStatus
		want     bool
	}{
		{apitypes.ProcessingPending, apitypes.ProcessingUploading, true},
		{apitypes.ProcessingUploading, apitypes.ProcessingAnalyzing, true}, // skipping forward is fine
		{apitypes.ProcessingAnalyzing, apitypes.ProcessingUploading, false},
		{apitypes.ProcessingProcessing, apitypes.ProcessingRetrying, true},
		{apitypes.ProcessingRetrying, apitypes.ProcessingProcessing, true},
		{apitypes.ProcessingPaused, apitypes.ProcessingExtracting, true},
		{apitypes.ProcessingAnalyzing, apitypes.ProcessingFailed, true},
		{apitypes.ProcessingPending, apitypes.ProcessingCancelled, true},
		{apitypes.ProcessingCompleted, apitypes.ProcessingProcessing, false},
		{apitypes.ProcessingFailed, apitypes.ProcessingRetrying, false},
		{apitypes.ProcessingCancelled, apitypes.ProcessingFailed, false},
		{apitypes.ProcessingProcessing, apitypes.ProcessingUnknown, false},
	}
	for _, tc := range cases {
		if got := transitionAllowed(tc.from, tc.to); got != tc.want {
			t.Errorf("transition %s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPipelineCompletionRoutesAnalysis(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	analyst := &recordingAnalyst{}
	svc.SetAnalyst(analyst)
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("panel.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	conf := 0.88
	ev := ocr.Event{
		ReportID:      rpt.ID,
		Status:        apitypes.ProcessingCompleted,
		ExtractedText: "ok",
		Analysis: &ocr.EventAnalysis{
			OverallHealthScore: 74,
			HealthTrend:        apitypes.TrendImproving,
			RiskLevel:          apitypes.RiskModerate,
			PrimaryConcerns:    []string{"elevated LDL"},
			ImmediateActions:   []string{"repeat lipid panel in 3 months"},
			Confidence:         &conf,
		},
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ev); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(analyst.reports) != 1 || analyst.reports[0] != rpt.ID {
		t.Fatalf("analysis not routed: %+v", analyst.reports)
	}
	out := analyst.analyses[0]
	if out.OverallHealthScore != 74 || out.RiskLevel != apitypes.RiskModerate {
		t.Errorf("analysis payload mangled: %+v", out)
	}
	if len(out.PrimaryConcerns) != 1 || out.PrimaryConcerns[0] != "elevated LDL" {
		t.Errorf("concerns mangled: %v", out.PrimaryConcerns)
	}
}

func TestPipelineCompletionWithoutAnalysis(t *testing.T) {
	svc, _, _, _, notifier := newTestService()
	analyst := &recordingAnalyst{}
	svc.SetAnalyst(analyst)
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("scan.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	ev := ocr.Event{ReportID: rpt.ID, Status: apitypes.ProcessingCompleted, ExtractedText: "ok"}
	if err := svc.ApplyPipelineEvent(context.Background(), ev); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(analyst.reports) != 0 {
		t.Errorf("analyst called without an analysis payload: %+v", analyst.reports)
	}
	if len(notifier.completed) != 1 {
		t.Error("completion notification missing")
	}
}

func TestPipelineFailureSkipsAnalyst(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	analyst := &recordingAnalyst{}
	svc.SetAnalyst(analyst)
	userID := uuid.New()

	rpt, err := svc.UploadReport(context.Background(), userID, pdfUpload("blur.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	ev := ocr.Event{
		ReportID: rpt.ID,
		Status:   apitypes.ProcessingFailed,
		Error:    "unreadable scan",
		Analysis: &ocr.EventAnalysis{OverallHealthScore: 50},
	}
	if err := svc.ApplyPipelineEvent(context.Background(), ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(analyst.reports) != 0 {
		t.Errorf("analyst must only see completed reports: %+v", analyst.reports)
	}
}
