package omnikassa

import (
	"strconv"
)

// Order statuses reported by the processor.
const (
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusExpired    = "EXPIRED"
	OrderStatusInProgress = "IN_PROGRESS"
)

// TransactionStatusSuccess marks a settled transaction.
const TransactionStatusSuccess = "SUCCESS"

// Transaction is a payment attempt within an order result.
type Transaction struct {
	ID           string `json:"id"`
	PaymentBrand string `json:"paymentBrand"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Amount       Money  `json:"amount"`
}

// OrderResult is the processor's status record of an announced order.
type OrderResult struct {
	MerchantOrderID     string        `json:"merchantOrderId"`
	OmnikassaOrderID    string        `json:"omnikassaOrderId"`
	PoiID               int64         `json:"poiId"`
	OrderStatus         string        `json:"orderStatus"`
	OrderStatusDateTime string        `json:"orderStatusDateTime"`
	ErrorCode           string        `json:"errorCode"`
	PaidAmount          Money         `json:"paidAmount"`
	TotalAmount         Money         `json:"totalAmount"`
	Transactions        []Transaction `json:"transactions,omitempty"`
}

// FirstSuccessfulTransaction returns the ID of the first SUCCESS transaction.
func (r OrderResult) FirstSuccessfulTransaction() (string, bool) {
	for _, t := range r.Transactions {
		if t.Status == TransactionStatusSuccess && t.ID != "" {
			return t.ID, true
		}
	}
	return "", false
}

func (r OrderResult) appendSignatureFields(fields []string) []string {
	fields = append(fields,
		r.MerchantOrderID,
		r.OmnikassaOrderID,
		strconv.FormatInt(r.PoiID, 10),
		r.OrderStatus,
		r.OrderStatusDateTime,
		r.ErrorCode,
	)
	fields = r.PaidAmount.appendSignatureFields(fields)
	fields = r.TotalAmount.appendSignatureFields(fields)
	for _, t := range r.Transactions {
		fields = append(fields, t.ID, t.PaymentBrand, t.Type, t.Status)
		fields = t.Amount.appendSignatureFields(fields)
	}
	return fields
}

// OrderResults is one page of the order result feed.
type OrderResults struct {
	MoreOrderResultsAvailable bool          `json:"moreOrderResultsAvailable"`
	OrderResults              []OrderResult `json:"orderResults"`
	Sig                       string        `json:"signature"`
}

func (p OrderResults) Signature() string { return p.Sig }

// SignatureFields covers the pagination flag and every row, in order.
func (p OrderResults) SignatureFields() []string {
	fields := []string{strconv.FormatBool(p.MoreOrderResultsAvailable)}
	for _, r := range p.OrderResults {
		fields = r.appendSignatureFields(fields)
	}
	return fields
}
