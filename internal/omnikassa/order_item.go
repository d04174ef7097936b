package omnikassa

import (
	"strconv"
)

// ProductCategory classifies an order item.
type ProductCategory string

const (
	ProductCategoryPhysical ProductCategory = "PHYSICAL"
	ProductCategoryDigital  ProductCategory = "DIGITAL"
)

// VATCategory is the processor's VAT bracket of an order item.
type VATCategory string

const (
	VATCategoryHigh VATCategory = "HIGH"
	VATCategoryLow  VATCategory = "LOW"
	VATCategoryZero VATCategory = "ZERO"
	VATCategoryNone VATCategory = "NONE"
)

// OrderItem is a single order line. Amount is the tax inclusive unit price in
// minor units; Tax is only sent when known.
type OrderItem struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	Amount      Money           `json:"amount"`
	Tax         *Money          `json:"tax,omitempty"`
	Category    ProductCategory `json:"category"`
	VATCategory VATCategory     `json:"vatCategory,omitempty"`
}

// NewOrderItem returns a validated item.
func NewOrderItem(name string, quantity int, amount Money, category ProductCategory) (OrderItem, error) {
	item := OrderItem{
		Name:     name,
		Quantity: quantity,
		Amount:   amount,
		Category: category,
	}
	return item, item.Validate()
}

// Validate checks the item against the processor's field formats.
func (i OrderItem) Validate() error {
	if err := ValidateNullOrAN(i.ID, 25, "OrderItem.id"); err != nil {
		return err
	}
	if err := ValidateAN(i.Name, 50, "OrderItem.name"); err != nil {
		return err
	}
	if err := ValidateNullOrAN(i.Description, 100, "OrderItem.description"); err != nil {
		return err
	}
	if i.Quantity <= 0 {
		return fieldError("OrderItem.quantity", ErrInvalidValue, "quantity must be positive, got %d", i.Quantity)
	}
	if i.Amount.Currency == "" || i.Amount.Amount < 0 {
		return fieldError("OrderItem.amount", ErrInvalidValue, "%v", i.Amount)
	}
	if i.Tax != nil && (i.Tax.Currency != i.Amount.Currency || i.Tax.Amount < 0) {
		return fieldError("OrderItem.tax", ErrInvalidValue, "%v", *i.Tax)
	}
	switch i.Category {
	case ProductCategoryPhysical, ProductCategoryDigital:
	default:
		return fieldError("OrderItem.category", ErrInvalidValue, "%q", i.Category)
	}
	switch i.VATCategory {
	case "", VATCategoryHigh, VATCategoryLow, VATCategoryZero, VATCategoryNone:
	default:
		return fieldError("OrderItem.vatCategory", ErrInvalidValue, "%q", i.VATCategory)
	}
	return nil
}

func (i OrderItem) clone() OrderItem {
	if i.Tax != nil {
		tax := *i.Tax
		i.Tax = &tax
	}
	return i
}

// Total is the tax inclusive line total.
func (i OrderItem) Total() int64 {
	return i.Amount.Amount * int64(i.Quantity)
}

// id and vatCategory are only signed when set. Description is always present.
// A missing tax is a single empty field.
func (i OrderItem) appendSignatureFields(fields []string) []string {
	fields = appendIfSet(fields, i.ID)
	fields = append(fields, i.Name, i.Description, strconv.Itoa(i.Quantity))
	fields = i.Amount.appendSignatureFields(fields)
	if i.Tax != nil {
		fields = i.Tax.appendSignatureFields(fields)
	} else {
		fields = append(fields, "")
	}
	fields = append(fields, string(i.Category))
	return appendIfSet(fields, string(i.VATCategory))
}
