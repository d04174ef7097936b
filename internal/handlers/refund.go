package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/validation"
)

func (a *api) refund(c *gin.Context) {
	ctx := c.Request.Context()

	key := a.claim(c, "refund")
	if key == "" {
		return
	}
	fail := func(status int, code, detail string) {
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, code)
		body := gin.H{"error": code}
		if detail != "" {
			body["detail"] = detail
		}
		c.JSON(status, body)
	}

	var req validation.RefundRequest
	if err := validation.BindAndValidate(c, &req, a.validate); err != nil {
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, "invalid request")
		return
	}

	p, err := a.cfg.Payments.Get(ctx, c.Param("id"))
	if err != nil {
		fail(http.StatusInternalServerError, "payment_lookup_failed", err.Error())
		return
	}
	if p == nil {
		fail(http.StatusNotFound, "payment_not_found", "")
		return
	}
	if p.Status != payments.StatusSuccess || p.TransactionID == "" {
		fail(http.StatusConflict, "payment_not_settled", p.Status)
		return
	}

	amount, err := omnikassa.MoneyFromDecimal(p.Currency, req.Amount)
	if err != nil {
		fail(http.StatusUnprocessableEntity, "invalid_amount", err.Error())
		return
	}
	if amount.Amount > p.Refundable() {
		left := omnikassa.Money{Currency: p.Currency, Amount: p.Refundable()}
		fail(http.StatusUnprocessableEntity, "amount_exceeds_refundable", "refundable: "+left.Decimal())
		return
	}

	token, err := a.cfg.Tokens.EnsureValid(ctx)
	if err != nil {
		log.Printf("[refund] access token unavailable: %v", err)
		fail(http.StatusBadGateway, "processor_unavailable", "")
		return
	}
	refund, err := a.cfg.Processor.Refund(ctx, token.Token, p.TransactionID, omnikassa.RefundRequest{
		Amount:      amount,
		Description: req.Description,
		VATCategory: omnikassa.VATCategory(req.VATCategory),
	})
	if err != nil {
		log.Printf("[refund] payment %s: %v", p.PaymentID, err)
		fail(http.StatusBadGateway, "refund_failed", err.Error())
		return
	}

	p.AddRefund(amount.Amount)
	p.AddNote(time.Now(), fmt.Sprintf("Refund %s of %s registered (%s).", refund.ID, amount, refund.Status))
	if err := a.cfg.Payments.Save(ctx, p); err != nil {
		log.Printf("[refund] refund %s registered but payment %s not saved: %v", refund.ID, p.PaymentID, err)
	}

	a.finish(c, key, p.PaymentID, http.StatusCreated, gin.H{
		"payment_id": p.PaymentID,
		"refund_id":  refund.ID,
		"status":     refund.Status,
		"amount":     amount.Decimal(),
		"refundable": omnikassa.Money{Currency: p.Currency, Amount: p.Refundable()}.Decimal(),
	})
}
