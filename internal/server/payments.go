package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/paygate/internal/checkout/domain"
)

func (s *Server) CreatePayment(c *gin.Context) {
	var req checkoutdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	allowed, retryAfter, err := s.limiter.AllowCreate(c.Request.Context(), req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		c.Header("Retry-After", formatRetryAfter(retryAfter))
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.checkoutSvc.CreatePayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetPaymentStatus(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoice_id"))

	allowed, retryAfter, err := s.limiter.AllowStatus(c.Request.Context(), c.ClientIP())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		c.Header("Retry-After", formatRetryAfter(retryAfter))
		AbortWithError(c, ErrRateLimited)
		return
	}

	invoice, err := s.checkoutSvc.GetStatus(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice_id": invoice.InvoiceID,
		"status":     invoice.Status,
		"amount":     invoice.Amount,
		"currency":   invoice.Currency,
		"expires_at": invoice.ExpiresAt,
		"updated_at": invoice.UpdatedAt,
	})
}

func formatRetryAfter(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
