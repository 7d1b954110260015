package labreports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/superonehealth/api/internal/platform/db"
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

const reportCols = `id, user_id, file_name, file_size, mime_type, blob_key,
	document_type, health_category, processing_status,
	COALESCE(extracted_text, ''), ocr_confidence, attempts, processing_errors,
	upload_date, updated_at`

func (r *repoPG) Create(ctx context.Context, rpt *LabReport) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_reports (
			id, user_id, file_name, file_size, mime_type, blob_key,
			document_type, health_category, processing_status,
			attempts, processing_errors
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rpt.ID, rpt.UserID, rpt.FileName, rpt.FileSize, rpt.MimeType, rpt.BlobKey,
		rpt.DocumentType, rpt.HealthCategory, rpt.ProcessingStatus,
		rpt.Attempts, rpt.ProcessingErrors,
	)
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM lab_reports WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID, f Filters, pg pagination.Params) ([]*LabReport, int, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if f.Status != "" {
		add("processing_status = $%d", f.Status)
	}
	if f.Category != "" {
		add("health_category = $%d", f.Category)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, pg.Limit, pg.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM lab_reports %s ORDER BY upload_date DESC LIMIT $%d OFFSET $%d`,
		reportCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*LabReport
	for rows.Next() {
		rpt, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rpt)
	}
	return out, total, rows.Err()
}

func (r *repoPG) UpdateProcessing(ctx context.Context, rpt *LabReport) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_reports SET
			processing_status=$2, extracted_text=NULLIF($3,''), ocr_confidence=$4,
			attempts=$5, processing_errors=$6, updated_at=NOW()
		WHERE id = $1`,
		rpt.ID, rpt.ProcessingStatus, rpt.ExtractedText, rpt.OCRConfidence,
		rpt.Attempts, rpt.ProcessingErrors,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *repoPG) ReplaceBiomarkers(ctx context.Context, reportID uuid.UUID, marks []*Biomarker) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM biomarkers WHERE report_id = $1`, reportID); err != nil {
		return err
	}
	for _, m := range marks {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.ReportID = reportID
		if _, err := q.Exec(ctx, `
			INSERT INTO biomarkers (
				id, report_id, name, value, unit, reference_range,
				status, confidence, extraction_method, category
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			m.ID, m.ReportID, m.Name, m.Value, m.Unit, m.ReferenceRange,
			m.Status, m.Confidence, m.ExtractionMethod, m.Category,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListBiomarkers(ctx context.Context, reportID uuid.UUID) ([]*Biomarker, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, report_id, name, value, COALESCE(unit,''), COALESCE(reference_range,''),
			status, confidence, COALESCE(extraction_method,''), category, created_at
		FROM biomarkers WHERE report_id = $1 ORDER BY name`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Biomarker
	for rows.Next() {
		var m Biomarker
		if err := rows.Scan(
			&m.ID, &m.ReportID, &m.Name, &m.Value, &m.Unit, &m.ReferenceRange,
			&m.Status, &m.Confidence, &m.ExtractionMethod, &m.Category, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *repoPG) StuckReports(ctx context.Context, cutoff time.Time) ([]*LabReport, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reportCols+` FROM lab_reports
		WHERE processing_status NOT IN ('pending','completed','failed','cancelled')
		  AND updated_at < $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LabReport
	for rows.Next() {
		rpt, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rpt)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (*LabReport, error) {
	var rpt LabReport
	err := row.Scan(
		&rpt.ID, &rpt.UserID, &rpt.FileName, &rpt.FileSize, &rpt.MimeType, &rpt.BlobKey,
		&rpt.DocumentType, &rpt.HealthCategory, &rpt.ProcessingStatus,
		&rpt.ExtractedText, &rpt.OCRConfidence, &rpt.Attempts, &rpt.ProcessingErrors,
		&rpt.UploadDate, &rpt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	rpt.deriveProgress()
	return &rpt, nil
}
