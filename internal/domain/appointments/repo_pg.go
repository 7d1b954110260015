package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/superonehealth/api/internal/platform/db"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const facilityCols = `id, name, type, address, latitude, longitude, rating,
	price_range, opens_at, closes_at, slot_minutes, services_offered,
	created_at, updated_at`

func facilityWhere(f FacilityFilters) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		where += fmt.Sprintf(" AND (name ILIKE '%%' || $%d || '%%' OR address ILIKE '%%' || $%d || '%%')", n, n)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Service != "" {
		// Marshal keeps the containment argument valid jsonb whatever the
		// query param contains.
		svc, _ := json.Marshal([]string{f.Service})
		add("services_offered @> $%d", string(svc))
	}
	if f.RatingMin != nil {
		add("rating >= $%d", *f.RatingMin)
	}
	if f.Latitude != nil && f.Longitude != nil && f.RadiusKm != nil {
		args = append(args, *f.Latitude, *f.Longitude, *f.RadiusKm)
		lat, lng, rad := len(args)-2, len(args)-1, len(args)
		// Great-circle distance; facilities without coordinates never match.
		where += fmt.Sprintf(` AND latitude IS NOT NULL AND longitude IS NOT NULL
			AND 6371 * acos(least(1.0,
				cos(radians($%d)) * cos(radians(latitude)) * cos(radians(longitude) - radians($%d))
				+ sin(radians($%d)) * sin(radians(latitude)))) <= $%d`, lat, lng, lat, rad)
	}
	return where, args
}

func (r *repoPG) ListFacilities(ctx context.Context, f FacilityFilters, pg pagination.Params) ([]*Facility, int, error) {
	where, args := facilityWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facilities `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+facilityCols+` FROM facilities `+where+` ORDER BY rating DESC, name `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Facility
	for rows.Next() {
		fac, err := scanFacility(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, fac)
	}
	return out, total, rows.Err()
}

func (r *repoPG) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	fac, err := scanFacility(r.conn(ctx).QueryRow(ctx,
		`SELECT `+facilityCols+` FROM facilities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFacilityNotFound
	}
	return fac, err
}

func (r *repoPG) ReservedSlots(ctx context.Context, facilityID uuid.UUID, date apitypes.Date) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT time_slot FROM slot_reservations
		WHERE facility_id = $1 AND slot_date = $2
		ORDER BY time_slot`, facilityID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ReserveSlot is the booking serialization point: the primary key on
// (facility_id, slot_date, time_slot) makes the insert race-free, and
// ON CONFLICT DO NOTHING turns the loser into zero affected rows.
func (r *repoPG) ReserveSlot(ctx context.Context, facilityID uuid.UUID, date apitypes.Date, slot string, appointmentID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO slot_reservations (facility_id, slot_date, time_slot, appointment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`, facilityID, date, slot, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}

func (r *repoPG) ReleaseSlot(ctx context.Context, facilityID uuid.UUID, date apitypes.Date, slot string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM slot_reservations
		WHERE facility_id = $1 AND slot_date = $2 AND time_slot = $3`, facilityID, date, slot)
	return err
}

const apptCols = `id, user_id, facility_id, service_type, appointment_date,
	time_slot, status, confirmation_number, rescheduled_from, COALESCE(notes, '') AS notes,
	created_at, updated_at`

func (r *repoPG) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (
			id, user_id, facility_id, service_type, appointment_date,
			time_slot, status, confirmation_number, rescheduled_from, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.UserID, a.FacilityID, a.ServiceType, a.Date,
		a.TimeSlot, a.Status, a.ConfirmationNumber, a.RescheduledFrom, a.Notes,
	)
	return err
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *repoPG) ListAppointments(ctx context.Context, userID uuid.UUID, f AppointmentFilters, pg pagination.Params) ([]*Appointment, int, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Upcoming {
		where += " AND appointment_date >= CURRENT_DATE AND status IN ('pending','scheduled','confirmed')"
	}
	if f.From != nil {
		add("appointment_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("appointment_date <= $%d", *f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointments `+where+` ORDER BY appointment_date, time_slot `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status apitypes.AppointmentStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(
		&f.ID, &f.Name, &f.Type, &f.Address, &f.Latitude, &f.Longitude, &f.Rating,
		&f.PriceRange, &f.WorkingHours.OpensAt, &f.WorkingHours.ClosesAt,
		&f.SlotMinutes, &f.ServicesOffered,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.UserID, &a.FacilityID, &a.ServiceType, &a.Date,
		&a.TimeSlot, &a.Status, &a.ConfirmationNumber, &a.RescheduledFrom, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.deriveActions()
	return &a, nil
}
