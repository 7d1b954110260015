package appointments

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

var (
	ErrFacilityNotFound    = errors.New("facility not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotTaken signals the reservation insert found the slot already
	// claimed. Exactly one of N concurrent bookings avoids it.
	ErrSlotTaken = errors.New("slot already reserved")
)

type Repository interface {
	ListFacilities(ctx context.Context, f FacilityFilters, pg pagination.Params) ([]*Facility, int, error)
	GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error)

	// ReservedSlots returns the claimed "HH:MM" slots for a facility day.
	ReservedSlots(ctx context.Context, facilityID uuid.UUID, date apitypes.Date) ([]string, error)
	// ReserveSlot claims a slot atomically; ErrSlotTaken when already held.
	ReserveSlot(ctx context.Context, facilityID uuid.UUID, date apitypes.Date, slot string, appointmentID uuid.UUID) error
	ReleaseSlot(ctx context.Context, facilityID uuid.UUID, date apitypes.Date, slot string) error

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, userID uuid.UUID, f AppointmentFilters, pg pagination.Params) ([]*Appointment, int, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status apitypes.AppointmentStatus) error
}
