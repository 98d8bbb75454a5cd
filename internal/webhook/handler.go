package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"quote_assistant_backend/platform/httpkit"
	"quote_assistant_backend/platform/logger"
)

const (
	modeSubscribe   = "subscribe"
	errInvalidBody  = "invalid webhook payload"
	errVerifyFailed = "verification failed"
)

// VerifyRequest is the subscription handshake sent by Meta.
type VerifyRequest struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Handler handles WhatsApp webhook HTTP requests.
type Handler struct {
	service     *Service
	verifyToken string
	log         *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{service: service, verifyToken: verifyToken, log: log}
}

// HandleVerify answers the subscription handshake.
// GET /webhook
func (h *Handler) HandleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusForbidden, errVerifyFailed, nil)
		return
	}

	tokenOK := h.verifyToken != "" && subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.verifyToken)) == 1
	if req.Mode != modeSubscribe || !tokenOK {
		h.log.Warn("webhook verification rejected", "mode", req.Mode, "ip", c.ClientIP())
		httpkit.Error(c, http.StatusForbidden, errVerifyFailed, nil)
		return
	}

	c.String(http.StatusOK, req.Challenge)
}

// HandleReceive accepts a signed delivery. Once the signature is valid the
// answer is always 200.
// POST /webhook
func (h *Handler) HandleReceive(c *gin.Context) {
	body, _ := c.Get(rawBodyKey)
	raw, _ := body.([]byte)

	count, err := h.service.Accept(c.Request.Context(), raw)
	if err != nil {
		h.log.Warn("webhook payload rejected", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "error": errInvalidBody})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted", "messages": count})
}
