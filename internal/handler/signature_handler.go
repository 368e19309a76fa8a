package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	"github.com/wisma-sentral/wisma-admin-api/internal/service"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
	"github.com/wisma-sentral/wisma-admin-api/pkg/response"
)

type signatureService interface {
	Sign(ctx context.Context, documentID, signerID string, req service.SignRequest) (*models.Signature, error)
	Revise(ctx context.Context, signatureID, signerID string, req service.ReviseRequest) (*models.Signature, error)
	CastVisibilityVote(ctx context.Context, documentID, signerID string, req service.VisibilityVoteRequest) (*models.VisibilityTally, error)
	ListSignatures(ctx context.Context, documentID, viewerID string, viewerIsAdmin bool) (*models.SignatureListing, error)
	GetTally(ctx context.Context, documentID string) (*models.VisibilityTally, error)
}

// SignatureHandler exposes the signature ledger and visibility vote endpoints.
type SignatureHandler struct {
	service signatureService
}

// NewSignatureHandler creates a new handler.
func NewSignatureHandler(svc signatureService) *SignatureHandler {
	return &SignatureHandler{service: svc}
}

// Sign godoc
// @Summary Sign a document
// @Description Record the caller's signature on an open document
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body service.SignRequest true "Signature payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/signatures [post]
func (h *SignatureHandler) Sign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signature payload"))
		return
	}

	sig, err := h.service.Sign(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, sig)
}

// Revise godoc
// @Summary Revise a signature
// @Description Update the caller's own signature while the document is open
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Signature ID"
// @Param payload body service.ReviseRequest true "Revision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /signatures/{id} [put]
func (h *SignatureHandler) Revise(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signature payload"))
		return
	}

	sig, err := h.service.Revise(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sig, nil)
}

// Vote godoc
// @Summary Cast a visibility vote
// @Description Cast the one-time vote on whether the signature listing is public
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body service.VisibilityVoteRequest true "Vote payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/visibility-votes [post]
func (h *SignatureHandler) Vote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.VisibilityVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}

	tally, err := h.service.CastVisibilityVote(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tally, nil)
}

// List godoc
// @Summary List document signatures
// @Description List signatures with per-viewer disclosure applied
// @Tags Signatures
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/signatures [get]
func (h *SignatureHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	listing, err := h.service.ListSignatures(c.Request.Context(), c.Param("id"), claims.UserID, claims.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, listing, nil)
}

// Tally godoc
// @Summary Get the visibility tally
// @Description Return the current vote tally for a document
// @Tags Signatures
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/tally [get]
func (h *SignatureHandler) Tally(c *gin.Context) {
	tally, err := h.service.GetTally(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tally, nil)
}
