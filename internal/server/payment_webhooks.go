package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The gateway reads the response body, not the status: anything other
// than the expected acknowledgement makes it redeliver. Rejections
// always answer "bad sign" so a forger learns nothing about which
// check failed.
const replyRejected = "bad sign"

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	if !s.webhookLimiter.Allow(provider) {
		c.String(http.StatusTooManyRequests, replyRejected)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, replyRejected)
		return
	}

	reply, err := s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		_ = c.Error(err)
		status, _ := mapError(err)
		c.String(status, replyRejected)
		return
	}

	c.String(http.StatusOK, reply)
}
