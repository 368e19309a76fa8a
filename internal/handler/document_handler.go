package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	"github.com/wisma-sentral/wisma-admin-api/internal/service"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
	"github.com/wisma-sentral/wisma-admin-api/pkg/response"
)

// DocumentHandler exposes bulletin document endpoints.
type DocumentHandler struct {
	service *service.DocumentService
	exports *service.ExportService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService, exports *service.ExportService) *DocumentHandler {
	return &DocumentHandler{service: svc, exports: exports}
}

// Create godoc
// @Summary Publish a document
// @Description Publish a bulletin document, optionally collecting signatures
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body service.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// Get godoc
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param signature_required query bool false "Only documents that collect signatures"
// @Param open_only query bool false "Only documents still inside their signing window"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		OpenOnly: c.Query("open_only") == "true",
	}
	if raw := c.Query("signature_required"); raw != "" {
		v := raw == "true"
		filter.SignatureRequired = &v
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	docs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, docs, pagination)
}

// Export godoc
// @Summary Export the signature sheet
// @Description Download the projected signature listing as CSV, PDF or XLSX
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param format query string true "Export format" Enums(csv, pdf, xlsx)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/signatures/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", service.ExportFormatCSV)
	result, err := h.exports.SignatureSheet(c.Request.Context(), c.Param("id"), claims.UserID, claims.IsAdmin(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
