package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateDocumentRequest is the payload for publishing a bulletin document.
type CreateDocumentRequest struct {
	Title             string                 `json:"title" validate:"required"`
	Body              string                 `json:"body" validate:"required"`
	SignatureRequired bool                   `json:"signature_required"`
	SignatureTarget   models.SignatureTarget `json:"signature_target"`
	ExpiryAt          *time.Time             `json:"expiry_at"`
}

// DocumentService manages bulletin documents.
type DocumentService struct {
	repo      documentRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo documentRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Create publishes a document. A document that collects signatures must
// name a target audience; one that does not gets the NONE target.
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest, actorID string) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	target := req.SignatureTarget
	if !req.SignatureRequired {
		target = models.SignatureTargetNone
	} else if !target.Valid() || target == models.SignatureTargetNone {
		return nil, appErrors.Clone(appErrors.ErrValidation, "signature_target must be LANDLORD, TENANT or BOTH")
	}

	if req.ExpiryAt != nil && !req.ExpiryAt.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiry_at must be in the future")
	}

	doc := &models.Document{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Body:              req.Body,
		SignatureRequired: req.SignatureRequired,
		SignatureTarget:   target,
		CreatedBy:         actorID,
		ExpiryAt:          req.ExpiryAt,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionDocumentCreate,
		Resource:   "document",
		ResourceID: &doc.ID,
		NewValues:  mustJSON(map[string]interface{}{"title": doc.Title, "signature_required": doc.SignatureRequired}),
	}); err != nil {
		s.logger.Warn("failed to record document audit log", zap.Error(err))
	}

	s.logger.Info("document published",
		zap.String("document_id", doc.ID),
		zap.String("actor_id", actorID),
		zap.Bool("signature_required", doc.SignatureRequired))
	return doc, nil
}

// Get returns a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// List returns paginated documents.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, *models.Pagination, error) {
	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return docs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
