package notifications

import (
	"context"
	"fmt"

	"github.com/superonehealth/api/internal/domain/analysis"
	"github.com/superonehealth/api/internal/domain/appointments"
	"github.com/superonehealth/api/internal/domain/labreports"
	"github.com/superonehealth/api/pkg/apitypes"
)

// Producer adapts the other services' notifier hooks onto the notification
// store. Creation failures are logged inside Create; producers never fail
// the triggering operation.
type Producer struct {
	svc *Service
}

func NewProducer(svc *Service) *Producer {
	return &Producer{svc: svc}
}

var (
	_ appointments.Notifier = (*Producer)(nil)
	_ labreports.Notifier   = (*Producer)(nil)
	_ analysis.Notifier     = (*Producer)(nil)
)

func (p *Producer) AppointmentBooked(ctx context.Context, a *appointments.Appointment) {
	p.create(ctx, &Notification{
		UserID:     a.UserID,
		Category:   apitypes.NotificationAppointment,
		Priority:   apitypes.PriorityMedium,
		Title:      "Appointment confirmed",
		Body:       fmt.Sprintf("Your appointment on %s at %s is confirmed (%s).", a.Date, a.TimeSlot, a.ConfirmationNumber),
		ActionType: "view_appointment",
		Metadata:   map[string]string{"appointment_id": a.ID.String()},
	})
}

func (p *Producer) AppointmentCancelled(ctx context.Context, a *appointments.Appointment) {
	p.create(ctx, &Notification{
		UserID:     a.UserID,
		Category:   apitypes.NotificationAppointment,
		Priority:   apitypes.PriorityMedium,
		Title:      "Appointment cancelled",
		Body:       fmt.Sprintf("Your appointment on %s at %s has been cancelled.", a.Date, a.TimeSlot),
		ActionType: "view_appointments",
		Metadata:   map[string]string{"appointment_id": a.ID.String()},
	})
}

func (p *Producer) ReportCompleted(ctx context.Context, rpt *labreports.LabReport) {
	p.create(ctx, &Notification{
		UserID:     rpt.UserID,
		Category:   apitypes.NotificationReport,
		Priority:   apitypes.PriorityMedium,
		Title:      "Lab report ready",
		Body:       fmt.Sprintf("Your report %q has been processed and results are available.", rpt.FileName),
		ActionType: "view_report",
		Metadata:   map[string]string{"report_id": rpt.ID.String()},
	})
}

func (p *Producer) ReportFailed(ctx context.Context, rpt *labreports.LabReport) {
	priority := apitypes.PriorityMedium
	action := "contact_support"
	if recoverable(rpt) {
		action = "resubmit_report"
	} else {
		priority = apitypes.PriorityHigh
	}
	p.create(ctx, &Notification{
		UserID:     rpt.UserID,
		Category:   apitypes.NotificationReport,
		Priority:   priority,
		Title:      "Report processing failed",
		Body:       fmt.Sprintf("We couldn't process your report %q.", rpt.FileName),
		ActionType: action,
		Metadata:   map[string]string{"report_id": rpt.ID.String()},
	})
}

func (p *Producer) AnalysisReady(ctx context.Context, a *analysis.HealthAnalysis) {
	priority := apitypes.PriorityMedium
	if a.RiskLevel == apitypes.RiskHigh {
		priority = apitypes.PriorityUrgent
	}
	p.create(ctx, &Notification{
		UserID:     a.UserID,
		Category:   apitypes.NotificationHealth,
		Priority:   priority,
		Title:      "New health analysis available",
		Body:       fmt.Sprintf("Your health score is %d. Open the app for details.", a.OverallHealthScore),
		ActionType: "view_analysis",
		Metadata:   map[string]string{"analysis_id": a.ID.String()},
	})
}

func (p *Producer) create(ctx context.Context, n *Notification) {
	if _, err := p.svc.Create(ctx, n); err != nil {
		p.svc.logger.Error().Err(err).
			Str("user_id", n.UserID.String()).
			Str("category", string(n.Category)).
			Msg("producing notification failed")
	}
}

func recoverable(rpt *labreports.LabReport) bool {
	for _, e := range rpt.ProcessingErrors {
		if e.Recoverable {
			return true
		}
	}
	return false
}
