package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bizreport/api/internal/models"
)

var ErrReportNotFound = errors.New("report not found")

const reportColumns = `r.id, r.business_id, COALESCE(b.business_name, ''), r.created_by_user_id, r.report_type,
	r.data, r.notes, r.photo_key, r.video_key, r.created_at, r.updated_at`

const reportFrom = ` FROM reports r LEFT JOIN businesses b ON b.id = r.business_id`

// ReportFilter narrows report queries. CreatedByUserID scopes to a
// submitter, OwnerUserID to the businesses a user owns.
type ReportFilter struct {
	CreatedByUserID string
	OwnerUserID     string
	BusinessID      string
	ReportType      *models.ReportType
	From            *time.Time
	To              *time.Time
	Search          string
	Limit           int
	Offset          int
}

func (f ReportFilter) where() *where {
	w := &where{}
	if f.CreatedByUserID != "" {
		w.add("r.created_by_user_id = ?", f.CreatedByUserID)
	}
	if f.OwnerUserID != "" {
		w.add("b.owner_user_id = ?", f.OwnerUserID)
	}
	if f.BusinessID != "" {
		w.add("r.business_id = ?", f.BusinessID)
	}
	if f.ReportType != nil {
		w.add("r.report_type = ?", *f.ReportType)
	}
	if f.From != nil {
		w.add("r.created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("r.created_at < ?", *f.To)
	}
	w.addSearch(f.Search, "r.notes", "b.business_name")
	return w
}

type ReportRepository struct {
	db DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

func scanReport(row scanner) (models.Report, error) {
	var report models.Report
	var data []byte
	err := row.Scan(
		&report.ID,
		&report.BusinessID,
		&report.BusinessName,
		&report.CreatedByUserID,
		&report.ReportType,
		&data,
		&report.Notes,
		&report.PhotoKey,
		&report.VideoKey,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	report.Data = data
	return report, err
}

func (r *ReportRepository) Create(ctx context.Context, report models.Report) error {
	const query = `
		INSERT INTO reports (
			id, business_id, created_by_user_id, report_type, data, notes, photo_key, video_key, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`
	data := string(report.Data)
	if data == "" {
		data = "{}"
	}
	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.BusinessID,
		report.CreatedByUserID,
		report.ReportType,
		data,
		report.Notes,
		report.PhotoKey,
		report.VideoKey,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (models.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE r.id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, int, error) {
	w := filter.where()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+reportFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	suffix, args := w.page(filter.Limit, filter.Offset)
	query := `SELECT ` + reportColumns + reportFrom + w.sql() + ` ORDER BY r.created_at DESC, r.id DESC` + suffix

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// CountByType counts matching reports per type, ignoring paging and the
// type filter.
func (r *ReportRepository) CountByType(ctx context.Context, filter ReportFilter) (map[models.ReportType]int, error) {
	filter.ReportType = nil
	w := filter.where()
	query := `SELECT r.report_type, COUNT(*)` + reportFrom + w.sql() + ` GROUP BY r.report_type`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("count reports by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ReportType]int, len(models.ReportTypes))
	for _, t := range models.ReportTypes {
		counts[t] = 0
	}
	for rows.Next() {
		var t models.ReportType
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return nil, err
		}
		counts[t] = count
	}
	return counts, rows.Err()
}

// Data returns the payloads of every matching report, unpaged.
func (r *ReportRepository) Data(ctx context.Context, filter ReportFilter) ([]models.ReportDatum, error) {
	w := filter.where()
	query := `SELECT r.business_id, r.data, r.created_at` + reportFrom + w.sql()

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query report data: %w", err)
	}
	defer rows.Close()

	var out []models.ReportDatum
	for rows.Next() {
		var d models.ReportDatum
		var data []byte
		if err := rows.Scan(&d.BusinessID, &data, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Data = data
		out = append(out, d)
	}
	return out, rows.Err()
}
