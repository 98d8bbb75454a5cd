// Package catalog provides the catalog bounded context module.
package catalog

import (
	"quote_assistant_backend/internal/catalog/handler"
	"quote_assistant_backend/internal/catalog/repository"
	"quote_assistant_backend/internal/catalog/service"
	apphttp "quote_assistant_backend/internal/http"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the read-only catalog routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/catalog/categories", m.handler.ListCategories)
	ctx.V1.GET("/catalog/categories/:id/products", m.handler.ListCategoryProducts)
	ctx.V1.GET("/catalog/categories/:id/materials", m.handler.ListCategoryMaterials)
	ctx.V1.GET("/catalog/categories/:id/finishes", m.handler.ListCategoryFinishes)
}
