package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/service"
	"quote_assistant_backend/internal/conversation/transport"
	"quote_assistant_backend/platform/httpkit"
	"quote_assistant_backend/platform/validator"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid conversation id"
)

// Handler serves the operator endpoints for conversations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new conversation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List lists active conversations.
// GET /api/v1/admin/conversations
func (h *Handler) List(c *gin.Context) {
	var req transport.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.ListConversations(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one conversation.
// GET /api/v1/admin/conversations/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.conversationID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetConversation(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reset deactivates a conversation.
// POST /api/v1/admin/conversations/:id/reset
func (h *Handler) Reset(c *gin.Context) {
	id, ok := h.conversationID(c)
	if !ok {
		return
	}

	result, err := h.svc.ResetConversation(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) conversationID(c *gin.Context) (uuid.UUID, bool) {
	req := transport.ConversationPathRequest{ID: c.Param("id")}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}
