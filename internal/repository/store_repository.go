package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
)

// StoreRepository handles persistence of the public store directory.
type StoreRepository struct {
	db *sqlx.DB
}

// NewStoreRepository constructs the repository.
func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// List returns active stores matching the filter.
func (r *StoreRepository) List(ctx context.Context, filter models.StoreFilter) ([]models.Store, int, error) {
	base := `FROM stores s
LEFT JOIN units u ON u.id = s.unit_id`
	conditions := []string{"s.active = TRUE"}
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("s.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Floor != "" {
		conditions = append(conditions, fmt.Sprintf("u.floor = $%d", len(args)+1))
		args = append(args, filter.Floor)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.unit_id, s.name, s.category, s.phone, s.description, s.active, s.created_at, s.updated_at,
        COALESCE(u.name, '') AS unit_name, COALESCE(u.floor, '') AS unit_floor
        %s ORDER BY s.name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var stores []models.Store
	if err := r.db.SelectContext(ctx, &stores, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list stores: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count stores: %w", err)
	}
	return stores, total, nil
}

// FindByID returns a store directory entry.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*models.Store, error) {
	const query = `SELECT s.id, s.unit_id, s.name, s.category, s.phone, s.description, s.active, s.created_at, s.updated_at,
        COALESCE(u.name, '') AS unit_name, COALESCE(u.floor, '') AS unit_floor
        FROM stores s
        LEFT JOIN units u ON u.id = s.unit_id
        WHERE s.id = $1`
	var store models.Store
	if err := r.db.GetContext(ctx, &store, query, id); err != nil {
		return nil, err
	}
	return &store, nil
}
