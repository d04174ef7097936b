package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/notify"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/validation"
)

// Processor is the subset of the processor client used by the handlers.
type Processor interface {
	AnnounceOrder(ctx context.Context, accessToken string, order *omnikassa.Order) (omnikassa.AnnounceResponse, error)
	Refund(ctx context.Context, accessToken, transactionID string, r omnikassa.RefundRequest) (omnikassa.RefundResponse, error)
}

// TokenProvider hands out a currently valid access token.
type TokenProvider interface {
	EnsureValid(ctx context.Context) (omnikassa.AccessToken, error)
}

// IdempotencyStore guards checkout and refund requests against replays.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, requestHash string) (*idempotency.IdempotencyRecord, error)
	MarkDone(ctx context.Context, key, paymentID, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the payment routes.
type HandlerConfig struct {
	Payments      payments.Store
	Idempotency   IdempotencyStore
	Processor     Processor
	Tokens        TokenProvider
	Notifications *notify.NotificationHandler
	Returns       *notify.ReturnVerifier
	SigningKey    []byte
	SlugPrefix    string
	ReturnURL     string
}

type api struct {
	cfg      HandlerConfig
	validate *validatorv10.Validate
}

// RegisterRoutes registers the checkout, webhook, return and refund routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	a := &api{cfg: cfg, validate: validation.New()}

	r.POST("/checkout", a.checkout)
	r.POST("/webhooks/omnikassa", a.webhook)
	r.GET("/payments/return", a.paymentReturn)
	r.POST("/payments/:id/refund", a.refund)
}

// replay answers a request whose Idempotency-Key was seen before.
func replay(c *gin.Context, rec *idempotency.IdempotencyRecord) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && json.Valid([]byte(rec.ResponseBody)) {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment_id": rec.PaymentID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"error": "previous_attempt_failed", "detail": rec.Note})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

// finish stores the response for replays and writes it.
func (a *api) finish(c *gin.Context, key, paymentID string, status int, body gin.H) {
	raw, _ := json.Marshal(body)
	_ = a.cfg.Idempotency.MarkDone(c.Request.Context(), key, paymentID, string(raw), status)
	c.Data(status, "application/json", raw)
}
