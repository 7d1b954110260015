package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// HealthAnalysis is one immutable AI-assessment snapshot. Re-analysis never
// updates a row; it inserts a new one and "latest" moves forward.
type HealthAnalysis struct {
	ID                 uuid.UUID            `json:"id"`
	UserID             uuid.UUID            `json:"user_id"`
	OverallHealthScore int                  `json:"overall_health_score"`
	HealthTrend        apitypes.HealthTrend `json:"health_trend"`
	RiskLevel          apitypes.RiskLevel   `json:"risk_level"`
	PrimaryConcerns    []string             `json:"primary_concerns"`
	ImmediateActions   []string             `json:"immediate_actions"`
	Confidence         *float64             `json:"confidence,omitempty"`
	ReportIDs          []uuid.UUID          `json:"report_ids"`
	AnalysisDate       time.Time            `json:"analysis_date"`
}

// TrendPoint is one entry in the health score series.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// CategoryTrend is the direction of one health category over the window.
type CategoryTrend struct {
	Category apitypes.HealthCategory `json:"category"`
	Trend    apitypes.HealthTrend    `json:"trend"`
}

// TrendReport is the response of the trends endpoint.
type TrendReport struct {
	Months     int             `json:"months"`
	Scores     []TrendPoint    `json:"scores"`
	Categories []CategoryTrend `json:"categories"`
}

// CategorySample is one biomarker observation used for category trends:
// which category, when the report was uploaded, and whether the value was
// out of range.
type CategorySample struct {
	Category   apitypes.HealthCategory
	ReportDate time.Time
	Abnormal   bool
}

// ReportSummary is the dashboard's compact view of a recent upload.
type ReportSummary struct {
	ID               uuid.UUID                 `json:"id"`
	FileName         string                    `json:"file_name"`
	ProcessingStatus apitypes.ProcessingStatus `json:"processing_status"`
	UploadDate       time.Time                 `json:"upload_date"`
}

// AppointmentSummary is the dashboard's view of the next appointment.
type AppointmentSummary struct {
	ID           uuid.UUID                  `json:"id"`
	FacilityName string                     `json:"facility_name"`
	Date         apitypes.Date              `json:"date"`
	TimeSlot     string                     `json:"time_slot"`
	Status       apitypes.AppointmentStatus `json:"status"`
}

// DashboardOverview aggregates the home screen in one round trip.
type DashboardOverview struct {
	LatestAnalysis      *HealthAnalysis     `json:"latest_analysis"`
	RecentReports       []*ReportSummary    `json:"recent_reports"`
	UpcomingAppointment *AppointmentSummary `json:"upcoming_appointment"`
	UnreadNotifications int                 `json:"unread_notifications"`
}
