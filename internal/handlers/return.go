package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/notify"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

// paymentReturn handles the consumer's browser return. Rendering a page is
// left to the shop front end; the JSON carries the resulting payment status.
func (a *api) paymentReturn(c *gin.Context) {
	params := omnikassa.ParseReturnParameters(c.Request.URL.Query())

	outcome, p, err := a.cfg.Returns.VerifyReturn(c.Request.Context(), params)
	switch {
	case outcome == notify.ReturnNotApplicable:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_return_parameters"})
	case errors.Is(err, notify.ErrSignatureMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_signature"})
	case errors.Is(err, notify.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "return_failed", "detail": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{
			"payment_id":        p.PaymentID,
			"merchant_order_id": p.MerchantOrderID,
			"status":            p.Status,
		})
	}
}
