package omnikassa

import "time"

// AccessToken is a bearer token issued by the processor's token endpoint.
type AccessToken struct {
	Token            string    `json:"token"`
	ValidUntil       time.Time `json:"validUntil"`
	DurationInMillis int64     `json:"durationInMillis,omitempty"`
}

// ValidAt reports whether the token is usable at t.
func (t AccessToken) ValidAt(now time.Time) bool {
	return t.Token != "" && now.Before(t.ValidUntil)
}

// AnnounceResponse is returned for an accepted order announcement.
type AnnounceResponse struct {
	OmnikassaOrderID string `json:"omnikassaOrderId"`
	RedirectURL      string `json:"redirectUrl"`
}

// RefundRequest asks the processor to refund (part of) a transaction.
type RefundRequest struct {
	Amount      Money       `json:"amount"`
	Description string      `json:"description,omitempty"`
	VATCategory VATCategory `json:"vatCategory,omitempty"`
}

// Validate checks the refund request field formats.
func (r RefundRequest) Validate() error {
	if r.Amount.Currency == "" || r.Amount.Amount <= 0 {
		return fieldError("RefundRequest.amount", ErrInvalidValue, "amount must be positive, got %v", r.Amount)
	}
	return ValidateNullOrAN(r.Description, 100, "RefundRequest.description")
}

// RefundResponse describes a registered refund.
type RefundResponse struct {
	ID                  string      `json:"refundId"`
	TransactionID       string      `json:"refundTransactionId"`
	CreatedAt           string      `json:"createdAt,omitempty"`
	Amount              Money       `json:"amount"`
	VATCategory         VATCategory `json:"vatCategory,omitempty"`
	Description         string      `json:"description,omitempty"`
	Status              string      `json:"status"`
	OriginalTransaction string      `json:"transactionId,omitempty"`
}
