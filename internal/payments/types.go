package payments

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses
const (
	StatusOpen      = "open"
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusFailure   = "failure"
	StatusRefunded  = "refunded"
)

// Note is an audit entry on a payment.
type Note struct {
	At   time.Time `dynamodbav:"at" json:"at"`
	Text string    `dynamodbav:"text" json:"text"`
}

// Payment represents the item stored in the payments DynamoDB table. payment_id
// is the partition key; slug, transaction_id and merchant_order_id are indexed.
type Payment struct {
	PaymentID        string    `dynamodbav:"payment_id" json:"payment_id"`
	Slug             string    `dynamodbav:"slug,omitempty" json:"slug,omitempty"`
	MerchantOrderID  string    `dynamodbav:"merchant_order_id" json:"merchant_order_id"`
	ProcessorOrderID string    `dynamodbav:"processor_order_id,omitempty" json:"processor_order_id,omitempty"`
	TransactionID    string    `dynamodbav:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status           string    `dynamodbav:"status" json:"status"`
	Currency         string    `dynamodbav:"currency" json:"currency"`
	Amount           int64     `dynamodbav:"amount" json:"amount"`
	RefundedAmount   int64     `dynamodbav:"refunded_amount" json:"refunded_amount"`
	RedirectURL      string    `dynamodbav:"redirect_url,omitempty" json:"redirect_url,omitempty"`
	Notes            []Note    `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// New returns an open payment with a fresh ID.
func New(merchantOrderID, currency string, amount int64) *Payment {
	return &Payment{
		PaymentID:       uuid.NewString(),
		MerchantOrderID: merchantOrderID,
		Status:          StatusOpen,
		Currency:        currency,
		Amount:          amount,
	}
}

// Slug derives the stable lookup key for a processor order ID.
func Slug(prefix, processorOrderID string) string {
	return prefix + "-" + processorOrderID
}

func (p *Payment) SetStatus(status string) { p.Status = status }

func (p *Payment) SetTransactionID(id string) { p.TransactionID = id }

// AddNote appends an audit note stamped with at.
func (p *Payment) AddNote(at time.Time, text string) {
	p.Notes = append(p.Notes, Note{At: at, Text: text})
}

// Refundable is the part of Amount not refunded yet.
func (p *Payment) Refundable() int64 {
	if p.RefundedAmount >= p.Amount {
		return 0
	}
	return p.Amount - p.RefundedAmount
}

// AddRefund books a registered refund. The payment becomes refunded once the
// whole amount has been returned.
func (p *Payment) AddRefund(amount int64) {
	p.RefundedAmount += amount
	if p.RefundedAmount >= p.Amount {
		p.Status = StatusRefunded
	}
}
