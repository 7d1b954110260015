package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Facility is a bookable location: hospital, lab, or collection center.
type Facility struct {
	ID              uuid.UUID              `json:"id"`
	Name            string                 `json:"name"`
	Type            apitypes.FacilityType  `json:"type"`
	Address         string                 `json:"address"`
	Latitude        *float64               `json:"latitude,omitempty"`
	Longitude       *float64               `json:"longitude,omitempty"`
	Rating          float64                `json:"rating"`
	PriceRange      apitypes.PriceRange    `json:"price_range"`
	WorkingHours    WorkingHours           `json:"working_hours"`
	SlotMinutes     int                    `json:"slot_minutes"`
	ServicesOffered []apitypes.ServiceType `json:"services_offered"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// WorkingHours bound the bookable day, "HH:MM" 24h.
type WorkingHours struct {
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

// TimeSlot is one bookable interval on a given day.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Appointment is one booked visit. Reschedules never mutate the original:
// the old row transitions to rescheduled and a new row points back via
// RescheduledFrom.
type Appointment struct {
	ID                 uuid.UUID                  `json:"id"`
	UserID             uuid.UUID                  `json:"user_id"`
	FacilityID         uuid.UUID                  `json:"facility_id"`
	ServiceType        apitypes.ServiceType       `json:"service_type"`
	Date               apitypes.Date              `json:"date"`
	TimeSlot           string                     `json:"time_slot"`
	Status             apitypes.AppointmentStatus `json:"status"`
	ConfirmationNumber string                     `json:"confirmation_number"`
	RescheduledFrom    *uuid.UUID                 `json:"rescheduled_from,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	CanCancel          bool                       `json:"can_cancel"`
	CanReschedule      bool                       `json:"can_reschedule"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// deriveActions fills the client-facing action flags from the status.
func (a *Appointment) deriveActions() {
	a.CanCancel = a.Status.CanCancel()
	a.CanReschedule = a.Status.CanReschedule()
}

type FacilityFilters struct {
	Search    string
	Type      string
	Service   string
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	RatingMin *float64
}

type AppointmentFilters struct {
	Status   string
	Upcoming bool
	From     *apitypes.Date
	To       *apitypes.Date
}

type BookRequest struct {
	FacilityID  uuid.UUID `json:"facility_id" validate:"required"`
	ServiceType string    `json:"service_type" validate:"required"`
	Date        string    `json:"date" validate:"required,dateonly"`
	TimeSlot    string    `json:"time_slot" validate:"required,timeslot"`
	Notes       string    `json:"notes,omitempty" validate:"max=2000"`
}

type RescheduleRequest struct {
	Date     string `json:"date" validate:"required,dateonly"`
	TimeSlot string `json:"time_slot" validate:"required,timeslot"`
}
