package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/payments"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/validation"
)

// claim reads the body, requires an Idempotency-Key and claims it. It returns
// the scoped key, or "" after writing a response.
func (a *api) claim(c *gin.Context, scope string) string {
	clientKey := c.GetHeader("Idempotency-Key")
	if clientKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	key := idempotency.Key(scope, clientKey)
	rec, err := a.cfg.Idempotency.Begin(c.Request.Context(), key, idempotency.HashRequest(body))
	if errors.Is(err, idempotency.ErrRequestMismatch) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_reused"})
		return ""
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return ""
	}
	if rec != nil {
		replay(c, rec)
		return ""
	}
	return key
}

func (a *api) checkout(c *gin.Context) {
	ctx := c.Request.Context()

	key := a.claim(c, "checkout")
	if key == "" {
		return
	}

	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, a.validate); err != nil {
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, "invalid request")
		return
	}

	order, err := buildOrder(req, a.cfg.ReturnURL, time.Now())
	if err == nil {
		err = order.Sign(a.cfg.SigningKey)
	}
	if err != nil {
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_order", "detail": err.Error()})
		return
	}

	token, err := a.cfg.Tokens.EnsureValid(ctx)
	if err != nil {
		log.Printf("[checkout] access token unavailable: %v", err)
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "processor_unavailable"})
		return
	}
	announced, err := a.cfg.Processor.AnnounceOrder(ctx, token.Token, order)
	if err != nil {
		log.Printf("[checkout] announce %s failed: %v", req.MerchantOrderID, err)
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "announce_failed", "detail": err.Error()})
		return
	}

	amount := order.Amount()
	p := payments.New(req.MerchantOrderID, amount.Currency, amount.Amount)
	p.Slug = payments.Slug(a.cfg.SlugPrefix, announced.OmnikassaOrderID)
	p.ProcessorOrderID = announced.OmnikassaOrderID
	p.RedirectURL = announced.RedirectURL
	p.AddNote(time.Now(), fmt.Sprintf("Order announced as %s.", announced.OmnikassaOrderID))
	if err := a.cfg.Payments.Save(ctx, p); err != nil {
		_ = a.cfg.Idempotency.MarkFailed(ctx, key, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment_save_failed", "detail": err.Error()})
		return
	}

	c.Header("Location", "/payments/"+p.PaymentID)
	a.finish(c, key, p.PaymentID, http.StatusCreated, gin.H{
		"payment_id":         p.PaymentID,
		"omnikassa_order_id": announced.OmnikassaOrderID,
		"redirect_url":       announced.RedirectURL,
		"status":             p.Status,
	})
}

// buildOrder maps a validated checkout request onto an unsigned order.
func buildOrder(req validation.CheckoutRequest, returnURL string, now time.Time) (*omnikassa.Order, error) {
	amount, err := omnikassa.MoneyFromDecimal(req.Currency, req.Amount)
	if err != nil {
		return nil, err
	}
	o, err := omnikassa.NewOrder(req.MerchantOrderID, amount, returnURL)
	if err != nil {
		return nil, err
	}

	steps := []func() error{
		func() error { return o.SetTimestamp(now) },
		func() error { return o.SetDescription(req.Description) },
		func() error { return o.SetLanguage(req.Language) },
		func() error { return o.SetPaymentBrand(omnikassa.PaymentBrand(req.PaymentBrand)) },
		func() error { return o.SetPaymentBrandForce(omnikassa.PaymentBrandForce(req.PaymentBrandForce)) },
		func() error { return o.SetShippingDetail(req.ShippingAddress) },
		func() error { return o.SetBillingDetail(req.BillingAddress) },
		func() error { return o.SetCustomerInformation(req.Customer) },
	}
	if req.IssuerID != "" {
		steps = append(steps, func() error {
			return o.SetPaymentBrandMetaData(map[string]string{"issuerId": req.IssuerID})
		})
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	for _, it := range req.Items {
		price, err := omnikassa.MoneyFromDecimal(req.Currency, it.Price)
		if err != nil {
			return nil, err
		}
		item := omnikassa.OrderItem{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			Amount:      price,
			Category:    omnikassa.ProductCategory(it.Category),
			VATCategory: omnikassa.VATCategory(it.VATCategory),
		}
		if it.Tax != "" {
			tax, err := omnikassa.MoneyFromDecimal(req.Currency, it.Tax)
			if err != nil {
				return nil, err
			}
			item.Tax = &tax
		}
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}
	return o, nil
}
