// Package conversation provides the conversation bounded context module.
package conversation

import (
	"quote_assistant_backend/internal/conversation/handler"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/conversation/repository"
	"quote_assistant_backend/internal/conversation/service"
	apphttp "quote_assistant_backend/internal/http"
	"quote_assistant_backend/internal/nlu"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates the conversation module. Optional collaborators (PDF
// documents, distributed lock, event bus) are injected through Service().
func NewModule(pool *pgxpool.Pool, catalog ports.CatalogLookup, extractor nlu.Extractor, pricing ports.PricingClient, cfg service.Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, extractor, pricing, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// Service returns the flow controller.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the conversation store.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the operator routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/conversations", m.handler.List)
	ctx.Admin.GET("/conversations/:id", m.handler.Get)
	ctx.Admin.POST("/conversations/:id/reset", m.handler.Reset)
}
