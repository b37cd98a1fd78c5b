package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bizreport/api/internal/models"
)

var ErrBusinessNotFound = errors.New("business not found")

const businessColumns = `id, owner_user_id, business_name, owner_name, owner_phone, category, city, is_active, created_at, updated_at`

type BusinessFilter struct {
	Search      string
	OwnerUserID string
	Limit       int
	Offset      int
}

type BusinessRepository struct {
	db DBTX
}

func NewBusinessRepository(db DBTX) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func scanBusiness(row scanner) (models.Business, error) {
	var b models.Business
	err := row.Scan(
		&b.ID,
		&b.OwnerUserID,
		&b.BusinessName,
		&b.OwnerName,
		&b.OwnerPhone,
		&b.Category,
		&b.City,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (r *BusinessRepository) Create(ctx context.Context, b models.Business) error {
	const query = `
		INSERT INTO businesses (
			id, owner_user_id, business_name, owner_name, owner_phone, category, city, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.OwnerUserID,
		b.BusinessName,
		b.OwnerName,
		b.OwnerPhone,
		b.Category,
		b.City,
		b.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

func (r *BusinessRepository) GetByID(ctx context.Context, id string) (models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetOwned loads a business only if ownerUserID owns it.
func (r *BusinessRepository) GetOwned(ctx context.Context, id string, ownerUserID string) (models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1 AND owner_user_id = $2`
	return r.get(ctx, query, id, ownerUserID)
}

func (r *BusinessRepository) get(ctx context.Context, query string, args ...any) (models.Business, error) {
	b, err := scanBusiness(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Business{}, ErrBusinessNotFound
		}
		return models.Business{}, err
	}
	return b, nil
}

func (r *BusinessRepository) List(ctx context.Context, filter BusinessFilter) ([]models.Business, int, error) {
	w := filter.where()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count businesses: %w", err)
	}

	suffix, args := w.page(filter.Limit, filter.Offset)
	query := `SELECT ` + businessColumns + ` FROM businesses` + w.sql() + ` ORDER BY created_at DESC, id DESC` + suffix
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (f BusinessFilter) where() *where {
	w := &where{}
	if f.OwnerUserID != "" {
		w.add("owner_user_id = ?", f.OwnerUserID)
	}
	w.addSearch(f.Search, "business_name", "owner_name", "owner_phone", "category", "city")
	return w
}

func (r *BusinessRepository) Update(ctx context.Context, b models.Business) error {
	const query = `
		UPDATE businesses
		SET owner_user_id = $2,
		    business_name = $3,
		    owner_name = $4,
		    owner_phone = $5,
		    category = $6,
		    city = $7,
		    is_active = $8,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.OwnerUserID,
		b.BusinessName,
		b.OwnerName,
		b.OwnerPhone,
		b.Category,
		b.City,
		b.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// Count returns the number of businesses, restricted to one owner when
// ownerUserID is set.
func (r *BusinessRepository) Count(ctx context.Context, ownerUserID string) (int, error) {
	w := BusinessFilter{OwnerUserID: ownerUserID}.where()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`+w.sql(), w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count businesses: %w", err)
	}
	return total, nil
}

func (r *BusinessRepository) Options(ctx context.Context, limit int) ([]models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses ORDER BY business_name ASC LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *BusinessRepository) Recent(ctx context.Context, ownerUserID string, limit int) ([]models.Business, error) {
	w := BusinessFilter{OwnerUserID: ownerUserID}.where()
	w.args = append(w.args, limit)
	query := `SELECT ` + businessColumns + ` FROM businesses` + w.sql() +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(w.args))
	return r.query(ctx, query, w.args...)
}

func (r *BusinessRepository) query(ctx context.Context, query string, args ...any) ([]models.Business, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	items := make([]models.Business, 0)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
