package analysis

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
)

const (
	defaultTrendMonths = 6
	maxTrendMonths     = 24
	recentReportLimit  = 5

	// categoryTrendDelta is the minimum change in abnormal share between the
	// two halves of the window before a category counts as moving.
	categoryTrendDelta = 0.1
)

// Notifier receives the analysis-ready event. The notifications service
// implements it.
type Notifier interface {
	AnalysisReady(ctx context.Context, a *HealthAnalysis)
}

type Service struct {
	repo   Repository
	notify Notifier
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) SetNotifier(n Notifier) { s.notify = n }

// Record inserts a new analysis snapshot. Snapshots are immutable; callers
// never update an existing one.
func (s *Service) Record(ctx context.Context, a *HealthAnalysis) (*HealthAnalysis, error) {
	if a.OverallHealthScore < 0 || a.OverallHealthScore > 100 {
		return nil, respond.Validation([]apitypes.FieldError{{
			Field: "overall_health_score", Rule: "range", Message: "score must be between 0 and 100",
		}})
	}
	if !a.HealthTrend.Known() {
		a.HealthTrend = apitypes.TrendStable
	}
	if !a.RiskLevel.Known() {
		a.RiskLevel = apitypes.RiskLow
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PrimaryConcerns == nil {
		a.PrimaryConcerns = []string{}
	}
	if a.ImmediateActions == nil {
		a.ImmediateActions = []string{}
	}
	if a.ReportIDs == nil {
		a.ReportIDs = []uuid.UUID{}
	}
	a.AnalysisDate = time.Now().UTC()

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, respond.Internal(err)
	}
	if s.notify != nil {
		s.notify.AnalysisReady(ctx, a)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*HealthAnalysis, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAnalysisNotFound) {
			return nil, respond.NotFound("health analysis", id.String())
		}
		return nil, respond.Internal(err)
	}
	if a.UserID != userID {
		// Not distinguishable from nonexistence.
		return nil, respond.NotFound("health analysis", id.String())
	}
	return a, nil
}

func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (*HealthAnalysis, error) {
	a, err := s.repo.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAnalysisNotFound) {
			return nil, respond.NotFound("health analysis", "latest")
		}
		return nil, respond.Internal(err)
	}
	return a, nil
}

// Trends builds the score series and per-category direction over the last N
// months. months defaults to 6, capped at 24.
func (s *Service) Trends(ctx context.Context, userID uuid.UUID, months int) (*TrendReport, error) {
	if months == 0 {
		months = defaultTrendMonths
	}
	if months < 1 || months > maxTrendMonths {
		return nil, respond.Validation([]apitypes.FieldError{{
			Field: "months", Rule: "range", Message: "months must be between 1 and 24",
		}})
	}
	since := time.Now().UTC().AddDate(0, -months, 0)

	series, err := s.repo.Series(ctx, userID, since)
	if err != nil {
		return nil, respond.Internal(err)
	}
	samples, err := s.repo.CategorySamples(ctx, userID, since)
	if err != nil {
		return nil, respond.Internal(err)
	}

	report := &TrendReport{
		Months:     months,
		Scores:     make([]TrendPoint, 0, len(series)),
		Categories: categoryTrends(samples, since, time.Now().UTC()),
	}
	for _, a := range series {
		report.Scores = append(report.Scores, TrendPoint{Date: a.AnalysisDate, Score: a.OverallHealthScore})
	}
	return report, nil
}

// Dashboard aggregates the overview in one response. A user with no data
// gets an empty-but-valid overview, never an error.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardOverview, error) {
	out := &DashboardOverview{RecentReports: []*ReportSummary{}}

	latest, err := s.repo.Latest(ctx, userID)
	if err != nil && !errors.Is(err, ErrAnalysisNotFound) {
		return nil, respond.Internal(err)
	}
	out.LatestAnalysis = latest

	reports, err := s.repo.RecentReports(ctx, userID, recentReportLimit)
	if err != nil {
		return nil, respond.Internal(err)
	}
	if reports != nil {
		out.RecentReports = reports
	}

	appt, err := s.repo.UpcomingAppointment(ctx, userID)
	if err != nil {
		return nil, respond.Internal(err)
	}
	out.UpcomingAppointment = appt

	unread, err := s.repo.UnreadNotifications(ctx, userID)
	if err != nil {
		return nil, respond.Internal(err)
	}
	out.UnreadNotifications = unread

	return out, nil
}

// categoryTrends splits the window in half and compares each category's
// abnormal-result share across the halves.
func categoryTrends(samples []CategorySample, since, now time.Time) []CategoryTrend {
	mid := since.Add(now.Sub(since) / 2)

	type bucket struct {
		earlyAbnormal, earlyTotal int
		lateAbnormal, lateTotal   int
	}
	buckets := make(map[apitypes.HealthCategory]*bucket)
	for _, s := range samples {
		b := buckets[s.Category]
		if b == nil {
			b = &bucket{}
			buckets[s.Category] = b
		}
		if s.ReportDate.Before(mid) {
			b.earlyTotal++
			if s.Abnormal {
				b.earlyAbnormal++
			}
		} else {
			b.lateTotal++
			if s.Abnormal {
				b.lateAbnormal++
			}
		}
	}

	out := make([]CategoryTrend, 0, len(buckets))
	for cat, b := range buckets {
		trend := apitypes.TrendStable
		if b.earlyTotal > 0 && b.lateTotal > 0 {
			early := float64(b.earlyAbnormal) / float64(b.earlyTotal)
			late := float64(b.lateAbnormal) / float64(b.lateTotal)
			switch {
			case late < early-categoryTrendDelta:
				trend = apitypes.TrendImproving
			case late > early+categoryTrendDelta:
				trend = apitypes.TrendDeclining
			}
		}
		out = append(out, CategoryTrend{Category: cat, Trend: trend})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
