package appointments

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/cache"
	"github.com/superonehealth/api/internal/platform/db"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/internal/platform/validate"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

const facilityDetailTTL = 2 * time.Hour

// Notifier receives appointment lifecycle events. The notifications service
// implements it; a nil Notifier disables the hand-off.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

type Service struct {
	repo   Repository
	pool   *pgxpool.Pool
	cache  *cache.TTL
	notify Notifier
	logger zerolog.Logger
}

func NewService(repo Repository, pool *pgxpool.Pool, c *cache.TTL, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pool: pool, cache: c, logger: logger}
}

// SetNotifier attaches the notification hand-off.
func (s *Service) SetNotifier(n Notifier) { s.notify = n }

func (s *Service) ListFacilities(ctx context.Context, f FacilityFilters, pg pagination.Params) ([]*Facility, int, error) {
	if f.RatingMin != nil && (*f.RatingMin < 0 || *f.RatingMin > 5) {
		return nil, 0, respond.Validation([]apitypes.FieldError{{
			Field: "rating_min", Rule: "range", Message: "rating_min must be between 0 and 5",
		}})
	}
	out, total, err := s.repo.ListFacilities(ctx, f, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	return out, total, nil
}

func (s *Service) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	key := "facility:" + id.String()
	if hit, ok := s.cache.Get(key); ok {
		return hit.(*Facility), nil
	}
	f, err := s.repo.GetFacility(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFacilityNotFound) {
			return nil, respond.NotFound("facility", id.String())
		}
		return nil, respond.Internal(err)
	}
	s.cache.Set(key, f, facilityDetailTTL)
	return f, nil
}

// TimeSlots generates the bookable slots for a facility day from its working
// hours, marking reserved ones unavailable.
func (s *Service) TimeSlots(ctx context.Context, facilityID uuid.UUID, dateStr string) ([]TimeSlot, error) {
	date, err := apitypes.ParseDate(dateStr)
	if err != nil {
		return nil, respond.Validation([]apitypes.FieldError{{
			Field: "date", Rule: "dateonly", Message: err.Error(),
		}})
	}

	f, err := s.GetFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	reserved, err := s.repo.ReservedSlots(ctx, facilityID, date)
	if err != nil {
		return nil, respond.Internal(err)
	}
	taken := make(map[string]bool, len(reserved))
	for _, slot := range reserved {
		taken[slot] = true
	}

	slots := generateSlots(f.WorkingHours, f.SlotMinutes)
	out := make([]TimeSlot, len(slots))
	for i, slot := range slots {
		out[i] = TimeSlot{Time: slot, Available: !taken[slot]}
	}
	return out, nil
}

func (s *Service) Book(ctx context.Context, userID uuid.UUID, req BookRequest) (*Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	serviceType, _ := apitypes.ParseServiceType(req.ServiceType)
	date, _ := apitypes.ParseDate(req.Date)

	f, err := s.GetFacility(ctx, req.FacilityID)
	if err != nil {
		return nil, err
	}
	if !slotWithinHours(f.WorkingHours, f.SlotMinutes, req.TimeSlot) {
		return nil, respond.Unprocessable("requested time slot is outside facility working hours", []apitypes.FieldError{{
			Field: "time_slot", Rule: "working_hours",
			Message: fmt.Sprintf("facility is open %s to %s", f.WorkingHours.OpensAt, f.WorkingHours.ClosesAt),
		}})
	}

	confirmation, err := confirmationNumber()
	if err != nil {
		return nil, respond.Internal(err)
	}
	appt := &Appointment{
		ID:                 uuid.New(),
		UserID:             userID,
		FacilityID:         req.FacilityID,
		ServiceType:        serviceType,
		Date:               date,
		TimeSlot:           req.TimeSlot,
		Status:             apitypes.AppointmentScheduled,
		ConfirmationNumber: confirmation,
		Notes:              req.Notes,
	}

	err = s.withTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ReserveSlot(txCtx, appt.FacilityID, appt.Date, appt.TimeSlot, appt.ID); err != nil {
			return err
		}
		return s.repo.CreateAppointment(txCtx, appt)
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, respond.ErrSlotUnavailable
		}
		return nil, respond.Internal(err)
	}

	appt.deriveActions()
	if s.notify != nil {
		s.notify.AppointmentBooked(ctx, appt)
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, respond.NotFound("appointment", id.String())
		}
		return nil, respond.Internal(err)
	}
	if a.UserID != userID {
		// Not distinguishable from nonexistence.
		return nil, respond.NotFound("appointment", id.String())
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f AppointmentFilters, pg pagination.Params) ([]*Appointment, int, error) {
	out, total, err := s.repo.ListAppointments(ctx, userID, f, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	return out, total, nil
}

// Cancel is idempotent: cancelling an already-cancelled appointment succeeds
// without touching anything.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == apitypes.AppointmentCancelled {
		return a, nil
	}
	if !a.Status.CanCancel() {
		return nil, respond.Unprocessable(
			fmt.Sprintf("appointment in status %q cannot be cancelled", a.Status), nil)
	}

	err = s.withTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateAppointmentStatus(txCtx, a.ID, apitypes.AppointmentCancelled); err != nil {
			return err
		}
		return s.repo.ReleaseSlot(txCtx, a.FacilityID, a.Date, a.TimeSlot)
	})
	if err != nil {
		return nil, respond.Internal(err)
	}

	a.Status = apitypes.AppointmentCancelled
	a.deriveActions()
	if s.notify != nil {
		s.notify.AppointmentCancelled(ctx, a)
	}
	return a, nil
}

// Reschedule never mutates the original appointment's booking details: the
// new slot is reserved first (the 409 point), a fresh appointment is created
// pointing back at the original, and only then does the original transition
// to rescheduled and give up its slot.
func (s *Service) Reschedule(ctx context.Context, userID, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	orig, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !orig.Status.CanReschedule() {
		return nil, respond.Unprocessable(
			fmt.Sprintf("appointment in status %q cannot be rescheduled", orig.Status), nil)
	}

	date, _ := apitypes.ParseDate(req.Date)
	f, err := s.GetFacility(ctx, orig.FacilityID)
	if err != nil {
		return nil, err
	}
	if !slotWithinHours(f.WorkingHours, f.SlotMinutes, req.TimeSlot) {
		return nil, respond.Unprocessable("requested time slot is outside facility working hours", nil)
	}

	confirmation, err := confirmationNumber()
	if err != nil {
		return nil, respond.Internal(err)
	}
	origID := orig.ID
	next := &Appointment{
		ID:                 uuid.New(),
		UserID:             userID,
		FacilityID:         orig.FacilityID,
		ServiceType:        orig.ServiceType,
		Date:               date,
		TimeSlot:           req.TimeSlot,
		Status:             apitypes.AppointmentScheduled,
		ConfirmationNumber: confirmation,
		RescheduledFrom:    &origID,
		Notes:              orig.Notes,
	}

	err = s.withTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ReserveSlot(txCtx, next.FacilityID, next.Date, next.TimeSlot, next.ID); err != nil {
			return err
		}
		if err := s.repo.CreateAppointment(txCtx, next); err != nil {
			return err
		}
		if err := s.repo.UpdateAppointmentStatus(txCtx, orig.ID, apitypes.AppointmentRescheduled); err != nil {
			return err
		}
		return s.repo.ReleaseSlot(txCtx, orig.FacilityID, orig.Date, orig.TimeSlot)
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, respond.ErrSlotUnavailable
		}
		return nil, respond.Internal(err)
	}

	next.deriveActions()
	if s.notify != nil {
		s.notify.AppointmentBooked(ctx, next)
	}
	return next, nil
}

// withTx wraps multi-statement operations in a transaction. A nil pool (unit
// tests with mock repositories) runs the function directly.
func (s *Service) withTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// confirmationNumber builds the client-facing booking reference.
func confirmationNumber() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation number: %w", err)
	}
	return "SO-" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// generateSlots expands working hours into "HH:MM" slot starts.
func generateSlots(wh WorkingHours, slotMinutes int) []string {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	open, err1 := parseClock(wh.OpensAt)
	close_, err2 := parseClock(wh.ClosesAt)
	if err1 != nil || err2 != nil || close_ <= open {
		return nil
	}
	var slots []string
	for m := open; m+slotMinutes <= close_; m += slotMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

func slotWithinHours(wh WorkingHours, slotMinutes int, slot string) bool {
	for _, s := range generateSlots(wh, slotMinutes) {
		if s == slot {
			return true
		}
	}
	return false
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}
