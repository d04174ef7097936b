package omnikassa

import "net/url"

// ReturnParameters arrive on the merchant return URL after the consumer leaves
// the payment pages.
type ReturnParameters struct {
	OrderID string `form:"order_id"`
	Status  string `form:"status"`
	Sig     string `form:"signature"`
}

// ParseReturnParameters reads the parameters from a query string.
func ParseReturnParameters(q url.Values) ReturnParameters {
	return ReturnParameters{
		OrderID: q.Get("order_id"),
		Status:  q.Get("status"),
		Sig:     q.Get("signature"),
	}
}

// Empty reports whether none of the return parameters are present.
func (p ReturnParameters) Empty() bool {
	return p.OrderID == "" && p.Status == "" && p.Sig == ""
}

func (p ReturnParameters) Signature() string { return p.Sig }

// SignatureFields returns order_id, status.
func (p ReturnParameters) SignatureFields() []string {
	return []string{p.OrderID, p.Status}
}

// Query encodes the parameters as they appear on the return URL.
func (p ReturnParameters) Query() url.Values {
	q := url.Values{}
	q.Set("order_id", p.OrderID)
	q.Set("status", p.Status)
	q.Set("signature", p.Sig)
	return q
}
