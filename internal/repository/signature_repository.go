package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

// pqUniqueViolation is the postgres class 23 code raised when the
// signatures_document_id_signer_id_key constraint rejects a duplicate.
const pqUniqueViolation = "23505"

// SignatureRepository owns the signature ledger SQL. The unique index on
// (document_id, signer_id) and the conditional vote update are the only
// concurrency control; there are no in-process locks.
type SignatureRepository struct {
	db *sqlx.DB
}

// NewSignatureRepository constructs the repository.
func NewSignatureRepository(db *sqlx.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// Insert writes a new signature row. A concurrent duplicate for the same
// (document, signer) pair loses at the constraint and surfaces as
// ErrAlreadySigned; callers must not pre-check with a read.
func (r *SignatureRepository) Insert(ctx context.Context, sig *models.Signature) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = now
	}
	sig.UpdatedAt = now

	const query = `INSERT INTO signatures (id, document_id, signer_id, role, position, artifact, unit_name, unit_floor, created_at, updated_at)
        VALUES (:id, :document_id, :signer_id, :role, :position, :artifact, :unit_name, :unit_floor, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sig); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.ErrAlreadySigned
		}
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

// FindByID returns a signature row by primary key.
func (r *SignatureRepository) FindByID(ctx context.Context, id string) (*models.Signature, error) {
	const query = `SELECT s.id, s.document_id, s.signer_id, s.role, s.position, s.artifact,
        s.unit_name, s.unit_floor, s.visibility_vote, s.created_at, s.updated_at,
        COALESCE(u.full_name, '') AS signer_name
        FROM signatures s
        LEFT JOIN users u ON u.id = s.signer_id
        WHERE s.id = $1`
	var sig models.Signature
	if err := r.db.GetContext(ctx, &sig, query, id); err != nil {
		return nil, err
	}
	return &sig, nil
}

// FindByDocumentAndSigner returns the signer's row for a document, if any.
func (r *SignatureRepository) FindByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*models.Signature, error) {
	const query = `SELECT s.id, s.document_id, s.signer_id, s.role, s.position, s.artifact,
        s.unit_name, s.unit_floor, s.visibility_vote, s.created_at, s.updated_at,
        COALESCE(u.full_name, '') AS signer_name
        FROM signatures s
        LEFT JOIN users u ON u.id = s.signer_id
        WHERE s.document_id = $1 AND s.signer_id = $2`
	var sig models.Signature
	if err := r.db.GetContext(ctx, &sig, query, documentID, signerID); err != nil {
		return nil, err
	}
	return &sig, nil
}

// ListByDocument returns every signature for a document in one SELECT so
// the tally and the projection derive from the same snapshot.
func (r *SignatureRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Signature, error) {
	const query = `SELECT s.id, s.document_id, s.signer_id, s.role, s.position, s.artifact,
        s.unit_name, s.unit_floor, s.visibility_vote, s.created_at, s.updated_at,
        COALESCE(u.full_name, '') AS signer_name
        FROM signatures s
        LEFT JOIN users u ON u.id = s.signer_id
        WHERE s.document_id = $1
        ORDER BY s.created_at ASC`
	var signatures []models.Signature
	if err := r.db.SelectContext(ctx, &signatures, query, documentID); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return signatures, nil
}

// Update revises role, position, artifact and the unit snapshot in place.
// created_at and visibility_vote are deliberately not part of the SET list.
func (r *SignatureRepository) Update(ctx context.Context, sig *models.Signature) error {
	const query = `UPDATE signatures
        SET role = $2, position = $3, artifact = $4, unit_name = $5, unit_floor = $6, updated_at = $7
        WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, sig.ID, sig.Role, sig.Position, sig.Artifact, sig.UnitName, sig.UnitFloor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update signature: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update signature rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetVisibilityVote sets the vote only while it is still NULL. It reports
// whether this call won the write; a false return with no error means the
// column was already set (or the row does not exist) and the caller should
// load the row to tell the two apart.
func (r *SignatureRepository) SetVisibilityVote(ctx context.Context, documentID, signerID string, choice bool) (bool, error) {
	const query = `UPDATE signatures
        SET visibility_vote = $3, updated_at = $4
        WHERE document_id = $1 AND signer_id = $2 AND visibility_vote IS NULL`
	result, err := r.db.ExecContext(ctx, query, documentID, signerID, choice, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set visibility vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set visibility vote rows: %w", err)
	}
	return affected > 0, nil
}
