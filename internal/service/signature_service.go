package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type signatureRepository interface {
	Insert(ctx context.Context, sig *models.Signature) error
	FindByID(ctx context.Context, id string) (*models.Signature, error)
	FindByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*models.Signature, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.Signature, error)
	Update(ctx context.Context, sig *models.Signature) error
	SetVisibilityVote(ctx context.Context, documentID, signerID string, choice bool) (bool, error)
}

type documentReader interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

type membershipDirectory interface {
	ListTenancies(ctx context.Context, userID string) ([]models.Tenancy, error)
	FindUnit(ctx context.Context, unitID string) (*models.Unit, error)
}

// Visibility vote choices accepted on the wire.
const (
	VoteChoicePublic  = "public"
	VoteChoicePrivate = "private"
)

// SignRequest is the payload for signing a document.
type SignRequest struct {
	Role     models.TenancyRole       `json:"role" validate:"required"`
	Position models.SignaturePosition `json:"position" validate:"required"`
	Artifact []byte                   `json:"artifact" validate:"required"`
	UnitID   string                   `json:"unit_id"`
}

// ReviseRequest updates an existing signature in place.
type ReviseRequest struct {
	Role     models.TenancyRole       `json:"role" validate:"required"`
	Position models.SignaturePosition `json:"position" validate:"required"`
	Artifact []byte                   `json:"artifact" validate:"required"`
	UnitID   string                   `json:"unit_id"`
}

// VisibilityVoteRequest casts the one-time vote on signature disclosure.
type VisibilityVoteRequest struct {
	Choice string `json:"choice" validate:"required,oneof=public private"`
}

// SignatureService implements the signature ledger and the visibility-vote
// workflow: eligibility checks, the write-once vote, the derived tally and
// the disclosure projection. Exactly-once semantics come from the store's
// constraints, not from anything held in memory here.
type SignatureService struct {
	signatures signatureRepository
	documents  documentReader
	directory  membershipDirectory
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSignatureService constructs SignatureService.
func NewSignatureService(signatures signatureRepository, documents documentReader, directory membershipDirectory, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SignatureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignatureService{signatures: signatures, documents: documents, directory: directory, metrics: metrics, validator: validate, logger: logger}
}

// outcomeLabel folds an operation result into a counter label.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}

// canSign checks document state, role target and directory membership.
// The expiry check runs last so an otherwise-eligible signer gets the
// specific DOCUMENT_CLOSED kind instead of a generic denial.
func (s *SignatureService) canSign(doc *models.Document, tenancies []models.Tenancy, role models.TenancyRole, now time.Time) error {
	if !doc.SignatureRequired {
		return appErrors.Clone(appErrors.ErrNotEligible, "document does not collect signatures")
	}
	if !doc.SignatureTarget.Accepts(role) {
		return appErrors.Clone(appErrors.ErrNotEligible, "document does not accept signatures in this role")
	}
	if !models.HoldsRole(tenancies, role) {
		return appErrors.Clone(appErrors.ErrNotEligible, "signer does not hold this role in any unit")
	}
	if !doc.IsOpen(now) {
		return appErrors.ErrDocumentClosed
	}
	return nil
}

// Sign records a member's signature on a document. The signer chooses the
// role for this action; a role the target refuses is rejected even when
// the signer holds it elsewhere. Duplicate submissions, concurrent or not,
// surface as ALREADY_SIGNED from the ledger's unique constraint.
func (s *SignatureService) Sign(ctx context.Context, documentID, signerID string, req SignRequest) (*models.Signature, error) {
	sig, err := s.sign(ctx, documentID, signerID, req)
	if s.metrics != nil {
		s.metrics.RecordSignature("sign", outcomeLabel(err))
	}
	return sig, err
}

func (s *SignatureService) sign(ctx context.Context, documentID, signerID string, req SignRequest) (*models.Signature, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signature payload")
	}
	if !req.Role.Valid() || !req.Position.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role or position")
	}

	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	tenancies, err := s.directory.ListTenancies(ctx, signerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenancies")
	}

	if err := s.canSign(doc, tenancies, req.Role, time.Now().UTC()); err != nil {
		return nil, err
	}

	unitName, unitFloor := s.snapshotUnit(ctx, tenancies, req.Role, req.UnitID)

	sig := &models.Signature{
		DocumentID: documentID,
		SignerID:   signerID,
		Role:       req.Role,
		Position:   req.Position,
		Artifact:   req.Artifact,
		UnitName:   unitName,
		UnitFloor:  unitFloor,
	}
	start := time.Now()
	err = s.signatures.Insert(ctx, sig)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("signature_insert", time.Since(start))
	}
	if err != nil {
		if appErrors.Is(err, appErrors.ErrAlreadySigned) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record signature")
	}

	s.logger.Info("signature recorded",
		zap.String("document_id", documentID),
		zap.String("signer_id", signerID),
		zap.String("role", string(req.Role)))
	return sig, nil
}

// Revise updates the caller's own signature while the document is open.
// The visibility vote and the original signing time are never touched.
func (s *SignatureService) Revise(ctx context.Context, signatureID, signerID string, req ReviseRequest) (*models.Signature, error) {
	sig, err := s.revise(ctx, signatureID, signerID, req)
	if s.metrics != nil {
		s.metrics.RecordSignature("revise", outcomeLabel(err))
	}
	return sig, err
}

func (s *SignatureService) revise(ctx context.Context, signatureID, signerID string, req ReviseRequest) (*models.Signature, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signature payload")
	}
	if !req.Role.Valid() || !req.Position.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role or position")
	}

	sig, err := s.signatures.FindByID(ctx, signatureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signature not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signature")
	}
	if sig.SignerID != signerID {
		return nil, appErrors.ErrNotOwner
	}

	doc, err := s.documents.FindByID(ctx, sig.DocumentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	tenancies, err := s.directory.ListTenancies(ctx, signerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenancies")
	}

	if err := s.canSign(doc, tenancies, req.Role, time.Now().UTC()); err != nil {
		return nil, err
	}

	unitName, unitFloor := s.snapshotUnit(ctx, tenancies, req.Role, req.UnitID)

	sig.Role = req.Role
	sig.Position = req.Position
	sig.Artifact = req.Artifact
	sig.UnitName = unitName
	sig.UnitFloor = unitFloor
	start := time.Now()
	err = s.signatures.Update(ctx, sig)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("signature_update", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revise signature")
	}

	s.logger.Info("signature revised",
		zap.String("signature_id", signatureID),
		zap.String("signer_id", signerID))
	return sig, nil
}

// CastVisibilityVote sets the signer's one-time disclosure vote and returns
// the fresh tally. The conditional update is the guard: it only lands while
// the column is NULL, so two concurrent votes yield exactly one effective
// write and the loser observes ALREADY_VOTED with the recorded choice.
func (s *SignatureService) CastVisibilityVote(ctx context.Context, documentID, signerID string, req VisibilityVoteRequest) (*models.VisibilityTally, error) {
	tally, err := s.castVisibilityVote(ctx, documentID, signerID, req)
	if s.metrics != nil && (req.Choice == VoteChoicePublic || req.Choice == VoteChoicePrivate) {
		s.metrics.RecordVote(req.Choice, outcomeLabel(err))
	}
	return tally, err
}

func (s *SignatureService) castVisibilityVote(ctx context.Context, documentID, signerID string, req VisibilityVoteRequest) (*models.VisibilityTally, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}

	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !doc.IsOpen(time.Now().UTC()) {
		return nil, appErrors.ErrDocumentClosed
	}

	choice := req.Choice == VoteChoicePublic
	won, err := s.signatures.SetVisibilityVote(ctx, documentID, signerID, choice)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}
	if !won {
		sig, err := s.signatures.FindByDocumentAndSigner(ctx, documentID, signerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrSignatureRequired
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signature")
		}
		if sig.VisibilityVote == nil {
			// Row exists but the conditional update missed it; treat as
			// transient and let the caller retry.
			return nil, appErrors.Clone(appErrors.ErrUnavailable, "vote could not be recorded")
		}
		existing := VoteChoicePrivate
		if *sig.VisibilityVote {
			existing = VoteChoicePublic
		}
		return nil, appErrors.WithDetails(appErrors.ErrAlreadyVoted, map[string]interface{}{
			"existing_choice": existing,
		})
	}

	s.logger.Info("visibility vote cast",
		zap.String("document_id", documentID),
		zap.String("signer_id", signerID),
		zap.String("choice", req.Choice))
	return s.tally(ctx, documentID)
}

// ListSignatures returns the projected signature listing. One SELECT feeds
// both the tally and the per-row masking so every row is filtered against
// the same snapshot of the ledger.
func (s *SignatureService) ListSignatures(ctx context.Context, documentID, viewerID string, viewerIsAdmin bool) (*models.SignatureListing, error) {
	if _, err := s.documents.FindByID(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	signatures, err := s.listSignatures(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signatures")
	}

	tally := models.TallyOf(signatures)
	views := make([]models.SignatureView, 0, len(signatures))
	for _, sig := range signatures {
		views = append(views, models.ProjectSignature(sig, tally, viewerID, viewerIsAdmin))
	}
	return &models.SignatureListing{Signatures: views, Tally: tally}, nil
}

// GetDocument loads the document a listing or export is built against.
func (s *SignatureService) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// GetTally recomputes the visibility tally from the current ledger. It is
// never cached; is_public may move in either direction as votes arrive.
func (s *SignatureService) GetTally(ctx context.Context, documentID string) (*models.VisibilityTally, error) {
	if _, err := s.documents.FindByID(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return s.tally(ctx, documentID)
}

func (s *SignatureService) tally(ctx context.Context, documentID string) (*models.VisibilityTally, error) {
	signatures, err := s.listSignatures(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signatures")
	}
	tally := models.TallyOf(signatures)
	return &tally, nil
}

func (s *SignatureService) listSignatures(ctx context.Context, documentID string) ([]models.Signature, error) {
	start := time.Now()
	signatures, err := s.signatures.ListByDocument(ctx, documentID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("signature_list", time.Since(start))
	}
	return signatures, err
}

// snapshotUnit copies the display data of the tenancy the signer acts
// under. A stale or missing unit reference degrades to an empty snapshot;
// the projection substitutes a role label when rendering.
func (s *SignatureService) snapshotUnit(ctx context.Context, tenancies []models.Tenancy, role models.TenancyRole, unitID string) (string, string) {
	var chosen *models.Tenancy
	if unitID != "" {
		for i := range tenancies {
			if tenancies[i].UnitID == unitID && tenancies[i].Role == role {
				chosen = &tenancies[i]
				break
			}
		}
	}
	if chosen == nil {
		chosen = models.FirstWithRole(tenancies, role)
	}
	if chosen == nil {
		return "", ""
	}
	if chosen.UnitName != "" {
		return chosen.UnitName, chosen.UnitFloor
	}
	unit, err := s.directory.FindUnit(ctx, chosen.UnitID)
	if err != nil {
		s.logger.Warn("unit lookup failed, using placeholder snapshot",
			zap.String("unit_id", chosen.UnitID), zap.Error(err))
		return "", ""
	}
	return unit.Name, unit.Floor
}
