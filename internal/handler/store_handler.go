package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	"github.com/wisma-sentral/wisma-admin-api/internal/service"
	"github.com/wisma-sentral/wisma-admin-api/pkg/response"
)

// StoreHandler exposes the public store directory.
type StoreHandler struct {
	service *service.StoreService
}

// NewStoreHandler creates a new handler.
func NewStoreHandler(svc *service.StoreService) *StoreHandler {
	return &StoreHandler{service: svc}
}

// List godoc
// @Summary List stores
// @Description List active stores in the building directory
// @Tags Stores
// @Produce json
// @Param category query string false "Filter by category"
// @Param floor query string false "Filter by floor"
// @Param search query string false "Search by name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /stores [get]
func (h *StoreHandler) List(c *gin.Context) {
	filter := models.StoreFilter{
		Category: c.Query("category"),
		Floor:    c.Query("floor"),
		Search:   c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	listing, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, listing.Stores, listing.Pagination)
}

// Get godoc
// @Summary Get a store
// @Tags Stores
// @Produce json
// @Param id path string true "Store ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /stores/{id} [get]
func (h *StoreHandler) Get(c *gin.Context) {
	store, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, store, nil)
}
