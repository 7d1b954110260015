package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/superonehealth/api/internal/platform/db"
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

const analysisCols = `id, user_id, overall_health_score, health_trend, risk_level,
	primary_concerns, immediate_actions, confidence, report_ids, analysis_date`

func (r *repoPG) Create(ctx context.Context, a *HealthAnalysis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO health_analyses (
			id, user_id, overall_health_score, health_trend, risk_level,
			primary_concerns, immediate_actions, confidence, report_ids
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.UserID, a.OverallHealthScore, a.HealthTrend, a.RiskLevel,
		a.PrimaryConcerns, a.ImmediateActions, a.Confidence, a.ReportIDs,
	)
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*HealthAnalysis, error) {
	return scanAnalysis(r.conn(ctx).QueryRow(ctx,
		`SELECT `+analysisCols+` FROM health_analyses WHERE id = $1`, id))
}

func (r *repoPG) Latest(ctx context.Context, userID uuid.UUID) (*HealthAnalysis, error) {
	return scanAnalysis(r.conn(ctx).QueryRow(ctx,
		`SELECT `+analysisCols+` FROM health_analyses
		 WHERE user_id = $1 ORDER BY analysis_date DESC LIMIT 1`, userID))
}

func (r *repoPG) Series(ctx context.Context, userID uuid.UUID, since time.Time) ([]*HealthAnalysis, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+analysisCols+` FROM health_analyses
		 WHERE user_id = $1 AND analysis_date >= $2 ORDER BY analysis_date ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HealthAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repoPG) CategorySamples(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategorySample, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT b.category, r.upload_date,
			b.status NOT IN ('optimal','normal') AS abnormal
		FROM biomarkers b
		JOIN lab_reports r ON r.id = b.report_id
		WHERE r.user_id = $1
		  AND r.processing_status = 'completed'
		  AND r.upload_date >= $2`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategorySample
	for rows.Next() {
		var s CategorySample
		if err := rows.Scan(&s.Category, &s.ReportDate, &s.Abnormal); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) RecentReports(ctx context.Context, userID uuid.UUID, limit int) ([]*ReportSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, file_name, processing_status, upload_date
		FROM lab_reports WHERE user_id = $1
		ORDER BY upload_date DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ReportSummary
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.FileName, &s.ProcessingStatus, &s.UploadDate); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *repoPG) UpcomingAppointment(ctx context.Context, userID uuid.UUID) (*AppointmentSummary, error) {
	var s AppointmentSummary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id, f.name, a.appointment_date, a.time_slot, a.status
		FROM appointments a
		JOIN facilities f ON f.id = a.facility_id
		WHERE a.user_id = $1
		  AND a.appointment_date >= CURRENT_DATE
		  AND a.status IN ('pending','scheduled','confirmed')
		ORDER BY a.appointment_date ASC, a.time_slot ASC
		LIMIT 1`, userID).
		Scan(&s.ID, &s.FacilityName, &s.Date, &s.TimeSlot, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) UnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID).Scan(&n)
	return n, err
}

func scanAnalysis(row pgx.Row) (*HealthAnalysis, error) {
	var a HealthAnalysis
	err := row.Scan(
		&a.ID, &a.UserID, &a.OverallHealthScore, &a.HealthTrend, &a.RiskLevel,
		&a.PrimaryConcerns, &a.ImmediateActions, &a.Confidence, &a.ReportIDs,
		&a.AnalysisDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
