package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
)

// DocumentRepository handles persistence of bulletin documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create persists a new bulletin document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, title, body, signature_required, signature_target, created_by, created_at, expiry_at)
        VALUES (:id, :title, :body, :signature_required, :signature_target, :created_by, :created_at, :expiry_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a document by its ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, title, body, signature_required, signature_target, created_by, created_at, expiry_at
        FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents matching the filter, newest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	base := "FROM documents"
	var conditions []string
	var args []interface{}

	if filter.SignatureRequired != nil {
		conditions = append(conditions, fmt.Sprintf("signature_required = $%d", len(args)+1))
		args = append(args, *filter.SignatureRequired)
	}
	if filter.OpenOnly {
		// Rows without a stored expiry fall back to the default window.
		conditions = append(conditions, fmt.Sprintf("COALESCE(expiry_at, created_at + INTERVAL '7 days') >= $%d", len(args)+1))
		args = append(args, time.Now().UTC())
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, body, signature_required, signature_target, created_by, created_at, expiry_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return documents, total, nil
}
