// Package webhook receives WhatsApp Cloud API webhook deliveries.
package webhook

import (
	apphttp "quote_assistant_backend/internal/http"
	"quote_assistant_backend/internal/inbound"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
	"quote_assistant_backend/platform/validator"
)

// Module is the webhook module implementing http.Module.
type Module struct {
	handler   *Handler
	appSecret string
	log       *logger.Logger
}

// NewModule creates the webhook module. fallback may be nil.
func NewModule(cfg config.WebhookConfig, dispatcher, fallback inbound.Dispatcher, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(dispatcher, fallback, val, cfg.GetDefaultRegion(), log)
	return &Module{
		handler:   NewHandler(service, cfg.GetWhatsAppVerifyToken(), log),
		appSecret: cfg.GetWhatsAppAppSecret(),
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public webhook routes. They sit outside the API
// version prefix because the callback URL is registered with Meta.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Engine.Group("/webhook")
	group.GET("", m.handler.HandleVerify)
	group.POST("", SignatureMiddleware(m.appSecret, m.log), m.handler.HandleReceive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
