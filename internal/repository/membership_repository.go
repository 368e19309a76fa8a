package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
)

// MembershipRepository is the read-only view over the membership directory:
// which units a member holds and in what role.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ListTenancies returns every (unit, role) pair the member holds.
func (r *MembershipRepository) ListTenancies(ctx context.Context, userID string) ([]models.Tenancy, error) {
	const query = `SELECT t.id, t.user_id, t.unit_id, t.role, t.created_at,
        COALESCE(u.name, '') AS unit_name, COALESCE(u.floor, '') AS unit_floor
        FROM tenancies t
        LEFT JOIN units u ON u.id = t.unit_id
        WHERE t.user_id = $1
        ORDER BY t.created_at ASC`
	var tenancies []models.Tenancy
	if err := r.db.SelectContext(ctx, &tenancies, query, userID); err != nil {
		return nil, fmt.Errorf("list tenancies: %w", err)
	}
	return tenancies, nil
}

// FindUnit returns unit display data for snapshotting at signing time.
func (r *MembershipRepository) FindUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	const query = `SELECT id, name, floor, created_at FROM units WHERE id = $1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, unitID); err != nil {
		return nil, err
	}
	return &unit, nil
}
