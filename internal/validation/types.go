package validation

import "github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"

// CheckoutItem represents a single order line. Price is the tax inclusive unit
// price as a decimal string, e.g. "12.50".
type CheckoutItem struct {
	ID          string `json:"id,omitempty" validate:"omitempty,an=25"`
	Name        string `json:"name" validate:"required,an=50"`
	Description string `json:"description,omitempty" validate:"omitempty,an=100"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Price       string `json:"price" validate:"required,money"`
	Tax         string `json:"tax,omitempty" validate:"omitempty,money"`
	Category    string `json:"category" validate:"required,oneof=PHYSICAL DIGITAL"`
	VATCategory string `json:"vat_category,omitempty" validate:"omitempty,oneof=HIGH LOW ZERO NONE"`
}

// CheckoutRequest is the payload for POST /checkout
type CheckoutRequest struct {
	MerchantOrderID   string                         `json:"merchant_order_id" validate:"required,ans=24"`
	Currency          string                         `json:"currency" validate:"required,len=3,uppercase"`
	Amount            string                         `json:"amount" validate:"required,money"`
	Description       string                         `json:"description,omitempty" validate:"omitempty,an=35"`
	Language          string                         `json:"language,omitempty" validate:"omitempty,len=2,alpha"`
	PaymentBrand      string                         `json:"payment_brand,omitempty" validate:"omitempty,oneof=IDEAL AFTERPAY PAYPAL MASTERCARD VISA BANCONTACT MAESTRO V_PAY CARDS"`
	PaymentBrandForce string                         `json:"payment_brand_force,omitempty" validate:"omitempty,oneof=FORCE_ONCE FORCE_ALWAYS"`
	IssuerID          string                         `json:"issuer_id,omitempty" validate:"omitempty,an=50"`
	Items             []CheckoutItem                 `json:"items,omitempty" validate:"omitempty,dive"`
	Customer          *omnikassa.CustomerInformation `json:"customer,omitempty"`
	ShippingAddress   *omnikassa.Address             `json:"shipping_address,omitempty"`
	BillingAddress    *omnikassa.Address             `json:"billing_address,omitempty"`
}

// RefundRequest is the payload for POST /payments/:id/refund
type RefundRequest struct {
	Amount      string `json:"amount" validate:"required,money"`
	Description string `json:"description,omitempty" validate:"omitempty,an=100"`
	VATCategory string `json:"vat_category,omitempty" validate:"omitempty,oneof=HIGH LOW ZERO NONE"`
}
