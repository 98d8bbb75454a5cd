package ledger

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quote_assistant_backend/platform/httpkit"
)

// Handler exposes ledger entries to operators.
type Handler struct {
	store Store
}

// NewHandler creates a new ledger handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Get returns the ledger entry of one inbound message.
// GET /api/v1/admin/deliveries/:messageId
func (h *Handler) Get(c *gin.Context) {
	messageID := strings.TrimSpace(c.Param("messageId"))
	if messageID == "" {
		httpkit.Error(c, http.StatusBadRequest, "invalid message id", nil)
		return
	}

	entry, err := h.store.Get(c.Request.Context(), messageID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entry)
}
