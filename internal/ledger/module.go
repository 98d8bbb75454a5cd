package ledger

import (
	apphttp "quote_assistant_backend/internal/http"
)

// Module mounts the ledger operator routes.
type Module struct {
	handler *Handler
}

// NewModule creates the ledger module around store.
func NewModule(store Store) *Module {
	return &Module{handler: NewHandler(store)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ledger"
}

// RegisterRoutes mounts the operator routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/deliveries/:messageId", m.handler.Get)
}
