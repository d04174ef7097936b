package omnikassa

import "strings"

// Address is a shipping or billing address.
type Address struct {
	FirstName           string `json:"firstName,omitempty"`
	MiddleName          string `json:"middleName,omitempty"`
	LastName            string `json:"lastName"`
	Street              string `json:"street"`
	HouseNumber         string `json:"houseNumber,omitempty"`
	HouseNumberAddition string `json:"houseNumberAddition,omitempty"`
	PostalCode          string `json:"postalCode"`
	City                string `json:"city"`
	CountryCode         string `json:"countryCode"`
}

// Validate checks the address against the processor's field formats. prefix
// names the enclosing field in errors, e.g. "Order.shippingDetail".
func (a Address) Validate(prefix string) error {
	checks := []struct {
		value    string
		max      int
		field    string
		optional bool
	}{
		{a.FirstName, 50, "firstName", true},
		{a.MiddleName, 20, "middleName", true},
		{a.LastName, 50, "lastName", false},
		{a.Street, 100, "street", false},
		{a.HouseNumber, 100, "houseNumber", true},
		{a.HouseNumberAddition, 6, "houseNumberAddition", true},
		{a.PostalCode, 10, "postalCode", false},
		{a.City, 40, "city", false},
	}
	for _, c := range checks {
		name := prefix + "." + c.field
		var err error
		if c.optional {
			err = ValidateNullOrAN(c.value, c.max, name)
		} else {
			err = ValidateAN(c.value, c.max, name)
		}
		if err != nil {
			return err
		}
	}
	if !isCountryCode(a.CountryCode) {
		return fieldError(prefix+".countryCode", ErrInvalidValue, "%q is not an ISO 3166-1 alpha-2 code", a.CountryCode)
	}
	return nil
}

// Optional parts (middle name, house number and addition) are only signed when set.
func (a Address) appendSignatureFields(fields []string) []string {
	fields = append(fields, a.FirstName)
	fields = appendIfSet(fields, a.MiddleName)
	fields = append(fields, a.LastName, a.Street)
	fields = appendIfSet(fields, a.HouseNumber, a.HouseNumberAddition)
	return append(fields, a.PostalCode, a.City, a.CountryCode)
}

func appendIfSet(fields []string, values ...string) []string {
	for _, v := range values {
		if v != "" {
			fields = append(fields, v)
		}
	}
	return fields
}

func isCountryCode(s string) bool {
	if len(s) != 2 || strings.ToUpper(s) != s {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
