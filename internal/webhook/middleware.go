package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quote_assistant_backend/platform/logger"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	rawBodyKey      = "webhookRawBody"

	// maxBodyBytes bounds a single webhook delivery.
	maxBodyBytes = 1 << 20
)

// SignatureMiddleware reads the raw body, verifies the Meta app signature
// when appSecret is set, and stores the body for the handler.
func SignatureMiddleware(appSecret string, log *logger.Logger) gin.HandlerFunc {
	secret := []byte(appSecret)
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil || len(body) > maxBodyBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}

		if len(secret) > 0 && !validSignature(secret, body, c.GetHeader(signatureHeader)) {
			log.Warn("webhook signature rejected", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(rawBodyKey, body)
		c.Next()
	}
}

func validSignature(secret, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
