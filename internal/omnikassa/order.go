package omnikassa

import (
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

// TimestampLayout is the ISO 8601 layout of Order.timestamp. UTC is written as
// +00:00, never Z.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// PaymentBrand restricts the payment methods offered to the consumer.
type PaymentBrand string

// Payment brands the processor accepts in paymentBrand.
const (
	BrandIDEAL      PaymentBrand = "IDEAL"
	BrandAfterPay   PaymentBrand = "AFTERPAY"
	BrandPayPal     PaymentBrand = "PAYPAL"
	BrandMastercard PaymentBrand = "MASTERCARD"
	BrandVisa       PaymentBrand = "VISA"
	BrandBancontact PaymentBrand = "BANCONTACT"
	BrandMaestro    PaymentBrand = "MAESTRO"
	BrandVPay       PaymentBrand = "V_PAY"
	BrandCards      PaymentBrand = "CARDS"
)

var knownBrands = map[PaymentBrand]struct{}{
	BrandIDEAL: {}, BrandAfterPay: {}, BrandPayPal: {}, BrandMastercard: {}, BrandVisa: {},
	BrandBancontact: {}, BrandMaestro: {}, BrandVPay: {}, BrandCards: {},
}

// PaymentBrandForce controls whether the consumer may switch brands.
type PaymentBrandForce string

const (
	ForceOnce   PaymentBrandForce = "FORCE_ONCE"
	ForceAlways PaymentBrandForce = "FORCE_ALWAYS"
)

// rejectedTLDs are top level domains the processor refuses as return URL.
var rejectedTLDs = map[string]struct{}{
	"localhost": {},
	"local":     {},
	"test":      {},
	"invalid":   {},
	"example":   {},
	"internal":  {},
	"lan":       {},
}

// Order is the signed announcement of a pending payment. Fields are validated
// when set; after Sign the order is sealed.
type Order struct {
	timestamp            time.Time
	merchantOrderID      string
	description          string
	items                []OrderItem
	amount               Money
	shipping             *Address
	billing              *Address
	customer             *CustomerInformation
	language             string
	returnURL            string
	paymentBrand         PaymentBrand
	paymentBrandForce    PaymentBrandForce
	paymentBrandMetaData map[string]string

	signature string
	sealed    bool
}

// NewOrder validates the mandatory fields and stamps the order with the current time.
func NewOrder(merchantOrderID string, amount Money, returnURL string) (*Order, error) {
	o := &Order{timestamp: time.Now().Truncate(time.Second)}
	if err := o.SetMerchantOrderID(merchantOrderID); err != nil {
		return nil, err
	}
	if err := o.SetAmount(amount); err != nil {
		return nil, err
	}
	if err := o.SetMerchantReturnURL(returnURL); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Order) mutable() error {
	if o.sealed {
		return ErrOrderSealed
	}
	return nil
}

// SetTimestamp overrides the creation instant.
func (o *Order) SetTimestamp(t time.Time) error {
	if err := o.mutable(); err != nil {
		return err
	}
	o.timestamp = t.Truncate(time.Second)
	return nil
}

// SetMerchantOrderID sets the merchant's order reference (ANS..24).
func (o *Order) SetMerchantOrderID(id string) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := ValidateANS(id, 24, "Order.merchantOrderId"); err != nil {
		return err
	}
	o.merchantOrderID = id
	return nil
}

// SetAmount sets the order total. It must be positive.
func (o *Order) SetAmount(m Money) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if m.Currency == "" || m.Amount <= 0 {
		return fieldError("Order.amount", ErrInvalidValue, "amount must be positive, got %v", m)
	}
	o.amount = m
	return nil
}

// SetMerchantReturnURL sets the URL the consumer is sent back to (AN..1024).
func (o *Order) SetMerchantReturnURL(raw string) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := ValidateAN(raw, 1024, "Order.merchantReturnURL"); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fieldError("Order.merchantReturnURL", ErrInvalidFormat, "%q is not an absolute http(s) URL", raw)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if net.ParseIP(host) != nil {
		return fieldError("Order.merchantReturnURL", ErrInvalidValue, "IP address hosts are not accepted")
	}
	dot := strings.LastIndexByte(host, '.')
	if dot < 0 {
		return fieldError("Order.merchantReturnURL", ErrInvalidValue, "host %q has no top level domain", host)
	}
	if _, bad := rejectedTLDs[host[dot+1:]]; bad {
		return fieldError("Order.merchantReturnURL", ErrInvalidValue, "top level domain %q is not accepted", host[dot+1:])
	}
	o.returnURL = raw
	return nil
}

// SetDescription sets the optional order description (AN..35).
func (o *Order) SetDescription(description string) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := ValidateNullOrAN(description, 35, "Order.description"); err != nil {
		return err
	}
	o.description = description
	return nil
}

// SetLanguage sets the ISO 639-1 language of the payment pages.
func (o *Order) SetLanguage(language string) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := ValidateNullOrAN(language, 2, "Order.language"); err != nil {
		return err
	}
	o.language = strings.ToUpper(language)
	return nil
}

// SetPaymentBrand restricts the order to a single brand. The empty brand clears it.
func (o *Order) SetPaymentBrand(brand PaymentBrand) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := ValidateNullOrAN(string(brand), 50, "Order.paymentBrand"); err != nil {
		return err
	}
	if _, ok := knownBrands[brand]; brand != "" && !ok {
		return fieldError("Order.paymentBrand", ErrInvalidValue, "unknown brand %q", brand)
	}
	o.paymentBrand = brand
	return nil
}

// SetPaymentBrandForce sets FORCE_ONCE or FORCE_ALWAYS.
func (o *Order) SetPaymentBrandForce(force PaymentBrandForce) error {
	if err := o.mutable(); err != nil {
		return err
	}
	switch force {
	case "", ForceOnce, ForceAlways:
	default:
		return fieldError("Order.paymentBrandForce", ErrInvalidValue, "%q", force)
	}
	o.paymentBrandForce = force
	return nil
}

// SetPaymentBrandMetaData sets brand specific data such as {"issuerId": "..."}.
func (o *Order) SetPaymentBrandMetaData(meta map[string]string) error {
	if err := o.mutable(); err != nil {
		return err
	}
	for k, v := range meta {
		if err := ValidateAN(v, 50, "Order.paymentBrandMetaData."+k); err != nil {
			return err
		}
	}
	o.paymentBrandMetaData = copyMeta(meta)
	return nil
}

// AddItem appends an order line; the item order is part of the signature.
func (o *Order) AddItem(item OrderItem) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if item.Amount.Currency != o.amount.Currency {
		return fieldError("OrderItem.amount", ErrInvalidValue, "currency %s differs from order currency %s", item.Amount.Currency, o.amount.Currency)
	}
	o.items = append(o.items, item.clone())
	return nil
}

// SetShippingDetail sets the shipping address.
func (o *Order) SetShippingDetail(a *Address) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if a != nil {
		if err := a.Validate("Order.shippingDetail"); err != nil {
			return err
		}
		c := *a
		a = &c
	}
	o.shipping = a
	return nil
}

// SetBillingDetail sets the billing address.
func (o *Order) SetBillingDetail(a *Address) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if a != nil {
		if err := a.Validate("Order.billingDetail"); err != nil {
			return err
		}
		c := *a
		a = &c
	}
	o.billing = a
	return nil
}

// SetCustomerInformation sets the consumer details.
func (o *Order) SetCustomerInformation(c *CustomerInformation) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if c != nil {
		if err := c.Validate(); err != nil {
			return err
		}
		cp := *c
		c = &cp
	}
	o.customer = c
	return nil
}

// Sign finalises the order and signs it with key. Items without a description
// receive their name when a payment brand is enforced, as brand checkouts
// reject undescribed lines.
func (o *Order) Sign(key []byte) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if o.paymentBrandForce != "" && o.paymentBrand == "" {
		return fieldError("Order.paymentBrandForce", ErrInvalidValue, "requires a payment brand")
	}
	if o.paymentBrand != "" {
		for i := range o.items {
			if o.items[i].Description == "" {
				o.items[i].Description = SanitizeAN(o.items[i].Name, 100)
			}
		}
	}
	sig, err := signing.Sign(o, key)
	if err != nil {
		return err
	}
	o.signature = sig
	o.sealed = true
	return nil
}

// Signed reports whether the order has been signed.
func (o *Order) Signed() bool { return o.sealed }

// Signature returns the signature set by Sign, or "" before signing.
func (o *Order) Signature() string { return o.signature }

// MerchantOrderID returns the merchant's order reference.
func (o *Order) MerchantOrderID() string { return o.merchantOrderID }

// Amount returns the order total.
func (o *Order) Amount() Money { return o.amount }

// Description returns the order description, possibly empty.
func (o *Order) Description() string { return o.description }

// Language returns the language of the payment pages, possibly empty.
func (o *Order) Language() string { return o.language }

// MerchantReturnURL returns the URL the consumer is sent back to.
func (o *Order) MerchantReturnURL() string { return o.returnURL }

// PaymentBrand returns the enforced brand, if any.
func (o *Order) PaymentBrand() PaymentBrand { return o.paymentBrand }

// Timestamp returns the signed creation instant.
func (o *Order) Timestamp() time.Time { return o.timestamp }

// Items returns copies of the order lines.
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	for i, item := range o.items {
		items[i] = item.clone()
	}
	return items
}

// SignatureFields returns the order fields in protocol order.
func (o *Order) SignatureFields() []string {
	fields := []string{o.timestamp.Format(TimestampLayout), o.merchantOrderID}
	fields = o.amount.appendSignatureFields(fields)
	fields = append(fields, o.language, o.description, o.returnURL)
	for _, item := range o.items {
		fields = item.appendSignatureFields(fields)
	}
	if o.shipping != nil {
		fields = o.shipping.appendSignatureFields(fields)
	}
	if o.paymentBrand != "" {
		fields = append(fields, string(o.paymentBrand))
	}
	if o.paymentBrandForce != "" {
		fields = append(fields, string(o.paymentBrandForce))
	}
	if o.customer != nil {
		fields = o.customer.appendSignatureFields(fields)
	}
	if o.billing != nil {
		fields = o.billing.appendSignatureFields(fields)
	}
	return fields
}

// orderJSON fixes the wire field order.
type orderJSON struct {
	Timestamp            string               `json:"timestamp"`
	MerchantOrderID      string               `json:"merchantOrderId"`
	Description          string               `json:"description,omitempty"`
	OrderItems           []OrderItem          `json:"orderItems,omitempty"`
	Amount               Money                `json:"amount"`
	ShippingDetail       *Address             `json:"shippingDetail,omitempty"`
	BillingDetail        *Address             `json:"billingDetail,omitempty"`
	CustomerInformation  *CustomerInformation `json:"customerInformation,omitempty"`
	Language             string               `json:"language,omitempty"`
	MerchantReturnURL    string               `json:"merchantReturnURL"`
	PaymentBrand         PaymentBrand         `json:"paymentBrand,omitempty"`
	PaymentBrandForce    PaymentBrandForce    `json:"paymentBrandForce,omitempty"`
	PaymentBrandMetaData map[string]string    `json:"paymentBrandMetaData,omitempty"`
	Signature            string               `json:"signature,omitempty"`
}

// MarshalJSON encodes the order as the announcement request body.
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		Timestamp:            o.timestamp.Format(TimestampLayout),
		MerchantOrderID:      o.merchantOrderID,
		Description:          o.description,
		OrderItems:           o.items,
		Amount:               o.amount,
		ShippingDetail:       o.shipping,
		BillingDetail:        o.billing,
		CustomerInformation:  o.customer,
		Language:             o.language,
		MerchantReturnURL:    o.returnURL,
		PaymentBrand:         o.paymentBrand,
		PaymentBrandForce:    o.paymentBrandForce,
		PaymentBrandMetaData: copyMeta(o.paymentBrandMetaData),
		Signature:            o.signature,
	})
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
