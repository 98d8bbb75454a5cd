package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quote_assistant_backend/internal/catalog/repository"
	"quote_assistant_backend/internal/catalog/service"
	"quote_assistant_backend/internal/catalog/transport"
	"quote_assistant_backend/platform/httpkit"
	"quote_assistant_backend/platform/validator"
)

// Handler handles HTTP requests for catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidID = "invalid catalog id"
)

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListCategories lists active categories.
// GET /api/v1/catalog/categories
func (h *Handler) ListCategories(c *gin.Context) {
	result, err := h.svc.ListCategoriesResponse(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListCategoryProducts lists active products of a category.
// GET /api/v1/catalog/categories/:id/products
func (h *Handler) ListCategoryProducts(c *gin.Context) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}

	result, err := h.svc.CategoryProductsResponse(c.Request.Context(), categoryID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListCategoryMaterials lists active materials of a category.
// GET /api/v1/catalog/categories/:id/materials
func (h *Handler) ListCategoryMaterials(c *gin.Context) {
	h.listOptions(c, repository.OptionMaterial)
}

// ListCategoryFinishes lists active finishes of a category.
// GET /api/v1/catalog/categories/:id/finishes
func (h *Handler) ListCategoryFinishes(c *gin.Context) {
	h.listOptions(c, repository.OptionFinish)
}

func (h *Handler) listOptions(c *gin.Context, kind repository.OptionKind) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}

	result, err := h.svc.CategoryOptionsResponse(c.Request.Context(), categoryID, kind)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) categoryID(c *gin.Context) (uuid.UUID, bool) {
	req := transport.CategoryPathRequest{ID: c.Param("id")}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}
