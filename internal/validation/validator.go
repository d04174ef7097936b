package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

// New returns a configured validator with the processor's field formats
// registered as tags:
//
//	an=N     alphanumeric, at most N characters, no markup
//	ans=N    as an, additionally allowing symbols
//	money    non-negative decimal string
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(jsonName)

	_ = v.RegisterValidation("an", fieldFormat(omnikassa.ValidateAN))
	_ = v.RegisterValidation("ans", fieldFormat(omnikassa.ValidateANS))
	_ = v.RegisterValidation("money", isMoney)

	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

// jsonName reports fields by their JSON name so errors match the request body.
func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func fieldFormat(check func(value string, max int, field string) error) validatorv10.Func {
	return func(fl validatorv10.FieldLevel) bool {
		max, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return check(fl.Field().String(), max, fl.FieldName()) == nil
	}
}

func isMoney(fl validatorv10.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

// checkoutStructValidation verifies the item total equals Amount and that a
// brand force comes with a brand.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	if req.PaymentBrandForce != "" && req.PaymentBrand == "" {
		sl.ReportError(req.PaymentBrandForce, "payment_brand_force", "PaymentBrandForce", "brand_required", "")
	}

	if len(req.Items) == 0 {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return
	}
	sum := decimal.Zero
	for _, it := range req.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return
		}
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Equal(amount) {
		sl.ReportError(req.Amount, "amount", "Amount", "amount_match_items", fmt.Sprintf("items sum %s != amount %s", sum.StringFixed(2), amount.StringFixed(2)))
	}
}
