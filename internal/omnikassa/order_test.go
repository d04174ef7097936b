package omnikassa

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

var testKey = []byte("test-signing-key")

func mustMoney(t *testing.T, currency string, minor int64) Money {
	t.Helper()
	m, err := NewMoney(currency, minor)
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return m
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("1001", mustMoney(t, "EUR", 22500), "https://shop.example.com/return")
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	ts := time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)
	if err := o.SetTimestamp(ts); err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	return o
}

func TestOrderItem(t *testing.T) {
	item, err := NewOrderItem("Jackie O Round Sunglasses", 1, mustMoney(t, "EUR", 22500), ProductCategoryPhysical)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if item.Name != "Jackie O Round Sunglasses" {
		t.Fatalf("unexpected name %q", item.Name)
	}
	if item.Total() != 22500 {
		t.Fatalf("unexpected total %d", item.Total())
	}
}

func TestOrderItem_Invalid(t *testing.T) {
	amount := mustMoney(t, "EUR", 100)
	if _, err := NewOrderItem("lamp", 0, amount, ProductCategoryPhysical); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected quantity error, got %v", err)
	}
	if _, err := NewOrderItem(strings.Repeat("n", 51), 1, amount, ProductCategoryPhysical); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected name length error, got %v", err)
	}
	if _, err := NewOrderItem("lamp", 1, amount, "FOOD"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected category error, got %v", err)
	}
}

func TestNewOrder_Validation(t *testing.T) {
	eur := mustMoney(t, "EUR", 100)
	cases := []struct {
		name      string
		id        string
		amount    Money
		returnURL string
		wantErr   error
	}{
		{"id too long", strings.Repeat("1", 25), eur, "https://shop.example.com/r", ErrTooLong},
		{"markup in id", "<b>1</b>", eur, "https://shop.example.com/r", ErrInvalidFormat},
		{"zero amount", "1", Money{Currency: "EUR"}, "https://shop.example.com/r", ErrInvalidValue},
		{"relative url", "1", eur, "/return", ErrInvalidFormat},
		{"localhost", "1", eur, "http://localhost/return", ErrInvalidValue},
		{"test tld", "1", eur, "https://shop.test/return", ErrInvalidValue},
		{"ip host", "1", eur, "https://10.0.0.1/return", ErrInvalidValue},
		{"url too long", "1", eur, "https://shop.example.com/" + strings.Repeat("a", 1024), ErrTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewOrder(tc.id, tc.amount, tc.returnURL); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOrder_SignatureFieldsMinimal(t *testing.T) {
	o := newTestOrder(t)
	want := []string{
		"2026-10-16T12:30:00+00:00",
		"1001",
		"EUR", "22500",
		"", "",
		"https://shop.example.com/return",
	}
	if got := o.SignatureFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("signature fields\n got: %q\nwant: %q", got, want)
	}
}

func TestOrder_SignatureFieldsFull(t *testing.T) {
	o := newTestOrder(t)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(o.SetLanguage("nl"))
	must(o.SetDescription("Order 1001"))
	item, err := NewOrderItem("Lamp", 2, mustMoney(t, "EUR", 11250), ProductCategoryPhysical)
	must(err)
	tax := mustMoney(t, "EUR", 1953)
	item.Tax = &tax
	item.VATCategory = VATCategoryHigh
	must(o.AddItem(item))
	addr := &Address{FirstName: "Jan", LastName: "Jansen", Street: "Dorpsstraat", HouseNumber: "1", PostalCode: "1234 AB", City: "Utrecht", CountryCode: "NL"}
	must(o.SetShippingDetail(addr))
	must(o.SetBillingDetail(addr))
	must(o.SetPaymentBrand(BrandIDEAL))
	must(o.SetPaymentBrandForce(ForceOnce))
	must(o.SetCustomerInformation(&CustomerInformation{EmailAddress: "jan@example.com", Gender: GenderMale}))

	addrFields := []string{"Jan", "Jansen", "Dorpsstraat", "1", "1234 AB", "Utrecht", "NL"}
	var want []string
	want = append(want, "2026-10-16T12:30:00+00:00", "1001", "EUR", "22500", "NL", "Order 1001", "https://shop.example.com/return")
	want = append(want, "Lamp", "", "2", "EUR", "11250", "EUR", "1953", "PHYSICAL", "HIGH")
	want = append(want, addrFields...)
	want = append(want, "IDEAL", "FORCE_ONCE")
	want = append(want, "jan@example.com", "M")
	want = append(want, addrFields...)

	if got := o.SignatureFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("signature fields\n got: %q\nwant: %q", got, want)
	}
}

func TestSignatureFields_OptionalParts(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			"address without optional parts",
			Address{FirstName: "Jan", LastName: "Jansen", Street: "Dorpsstraat", PostalCode: "1234 AB", City: "Utrecht", CountryCode: "NL"}.appendSignatureFields(nil),
			[]string{"Jan", "Jansen", "Dorpsstraat", "1234 AB", "Utrecht", "NL"},
		},
		{
			"address with every part",
			Address{FirstName: "Jan", MiddleName: "van", LastName: "Dijk", Street: "Dorpsstraat", HouseNumber: "12", HouseNumberAddition: "a", PostalCode: "1234 AB", City: "Utrecht", CountryCode: "NL"}.appendSignatureFields(nil),
			[]string{"Jan", "van", "Dijk", "Dorpsstraat", "12", "a", "1234 AB", "Utrecht", "NL"},
		},
		{
			"customer with email only",
			CustomerInformation{EmailAddress: "jan@example.com"}.appendSignatureFields(nil),
			[]string{"jan@example.com"},
		},
		{
			"customer with every field",
			CustomerInformation{EmailAddress: "jan@example.com", DateOfBirth: "01-02-1990", Gender: GenderFemale, Initials: "J.", TelephoneNumber: "0612345678", FullName: "Jan Jansen"}.appendSignatureFields(nil),
			[]string{"jan@example.com", "01-02-1990", "F", "J.", "0612345678", "Jan Jansen"},
		},
		{
			"item without id, tax or vat category",
			OrderItem{Name: "Lamp", Quantity: 1, Amount: Money{Currency: "EUR", Amount: 100}, Category: ProductCategoryPhysical}.appendSignatureFields(nil),
			[]string{"Lamp", "", "1", "EUR", "100", "", "PHYSICAL"},
		},
		{
			"item with id and vat category",
			OrderItem{ID: "sku-1", Name: "Lamp", Description: "Desk lamp", Quantity: 1, Amount: Money{Currency: "EUR", Amount: 100}, Category: ProductCategoryDigital, VATCategory: VATCategoryLow}.appendSignatureFields(nil),
			[]string{"sku-1", "Lamp", "Desk lamp", "1", "EUR", "100", "", "DIGITAL", "LOW"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Fatalf("signature fields\n got: %q\nwant: %q", tt.got, tt.want)
			}
		})
	}
}

func TestOrder_SignAndVerify(t *testing.T) {
	o := newTestOrder(t)
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if o.Signature() == "" || !o.Signed() {
		t.Fatalf("expected a signed order")
	}
	if !signing.Verify(o, testKey) {
		t.Fatalf("signed order does not verify")
	}
}

func TestOrder_SealedAfterSign(t *testing.T) {
	o := newTestOrder(t)
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := o.SetDescription("changed"); !errors.Is(err, ErrOrderSealed) {
		t.Fatalf("expected ErrOrderSealed, got %v", err)
	}
	if err := o.AddItem(OrderItem{}); !errors.Is(err, ErrOrderSealed) {
		t.Fatalf("expected ErrOrderSealed, got %v", err)
	}
	if err := o.Sign(testKey); !errors.Is(err, ErrOrderSealed) {
		t.Fatalf("expected ErrOrderSealed on re-sign, got %v", err)
	}
}

func TestOrder_BrandForceRequiresBrand(t *testing.T) {
	o := newTestOrder(t)
	if err := o.SetPaymentBrandForce(ForceAlways); err != nil {
		t.Fatalf("set force: %v", err)
	}
	if err := o.Sign(testKey); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if o.Signed() {
		t.Fatalf("order must not be sealed after a failed sign")
	}
}

func TestOrder_DescriptionDefaultingWithBrand(t *testing.T) {
	o := newTestOrder(t)
	item, _ := NewOrderItem("Lamp XL", 1, mustMoney(t, "EUR", 22500), ProductCategoryPhysical)
	if err := o.AddItem(item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := o.SetPaymentBrand(BrandAfterPay); err != nil {
		t.Fatalf("brand: %v", err)
	}
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := o.Items()[0].Description; got != "Lamp XL" {
		t.Fatalf("expected defaulted description, got %q", got)
	}
}

func TestOrder_NoDescriptionDefaultingWithoutBrand(t *testing.T) {
	o := newTestOrder(t)
	item, _ := NewOrderItem("Lamp", 1, mustMoney(t, "EUR", 22500), ProductCategoryPhysical)
	_ = o.AddItem(item)
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := o.Items()[0].Description; got != "" {
		t.Fatalf("expected empty description, got %q", got)
	}
}

func TestOrder_ItemCurrencyMustMatch(t *testing.T) {
	o := newTestOrder(t)
	item, _ := NewOrderItem("Lamp", 1, mustMoney(t, "USD", 100), ProductCategoryPhysical)
	if err := o.AddItem(item); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestOrder_UnknownBrand(t *testing.T) {
	o := newTestOrder(t)
	if err := o.SetPaymentBrand("BITCOIN"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestOrder_MarshalJSONFieldOrder(t *testing.T) {
	o := newTestOrder(t)
	_ = o.SetLanguage("NL")
	_ = o.SetPaymentBrand(BrandIDEAL)
	_ = o.SetPaymentBrandMetaData(map[string]string{"issuerId": "RABONL2U"})
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	body, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(body)
	order := []string{`"timestamp"`, `"merchantOrderId"`, `"amount"`, `"language"`, `"merchantReturnURL"`, `"paymentBrand"`, `"paymentBrandMetaData"`, `"signature"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		if idx < 0 {
			t.Fatalf("missing %s in %s", key, s)
		}
		if idx < last {
			t.Fatalf("%s out of order in %s", key, s)
		}
		last = idx
	}
	if strings.Contains(s, `"description"`) {
		t.Fatalf("absent description must be omitted: %s", s)
	}
}

func TestOrder_SignedOrderIgnoresCallerMutation(t *testing.T) {
	o := newTestOrder(t)
	meta := map[string]string{"issuerId": "RABONL2U"}
	tax := mustMoney(t, "EUR", 100)
	item, err := NewOrderItem("Lamp", 1, mustMoney(t, "EUR", 22500), ProductCategoryPhysical)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	item.Tax = &tax
	if err := o.SetPaymentBrand(BrandIDEAL); err != nil {
		t.Fatalf("brand: %v", err)
	}
	if err := o.SetPaymentBrandMetaData(meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if err := o.AddItem(item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := o.Sign(testKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	before, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	meta["issuerId"] = "<script>x</script>"
	tax.Amount = 5
	o.Items()[0].Tax.Amount = 7

	after, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("signed order changed\nbefore: %s\n after: %s", before, after)
	}
	if !signing.Verify(o, testKey) {
		t.Fatalf("signed order no longer verifies")
	}
}

func TestCustomerInformation_Validate(t *testing.T) {
	c := CustomerInformation{EmailAddress: "not-an-email"}
	if err := c.Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected e-mail error, got %v", err)
	}
	c = CustomerInformation{DateOfBirth: "1990-01-31"}
	if err := c.Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected date error, got %v", err)
	}
	c = CustomerInformation{}
	c.SetDateOfBirth(time.Date(1990, 1, 31, 0, 0, 0, 0, time.UTC))
	if c.DateOfBirth != "31-01-1990" {
		t.Fatalf("unexpected date of birth %q", c.DateOfBirth)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddress_Validate(t *testing.T) {
	a := Address{LastName: "Jansen", Street: "Dorpsstraat", PostalCode: "1234 AB", City: "Utrecht", CountryCode: "nl"}
	if err := a.Validate("Order.shippingDetail"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected country code error, got %v", err)
	}
	a.CountryCode = "NL"
	if err := a.Validate("Order.shippingDetail"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
