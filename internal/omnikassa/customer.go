package omnikassa

import (
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// DateOfBirthLayout is the processor's birth date format.
const DateOfBirthLayout = "02-01-2006"

// Gender values accepted by the processor.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

var fieldValidator = validatorv10.New()

// CustomerInformation carries optional consumer details used by post-pay brands.
type CustomerInformation struct {
	EmailAddress    string `json:"emailAddress,omitempty"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Initials        string `json:"initials,omitempty"`
	TelephoneNumber string `json:"telephoneNumber,omitempty"`
	FullName        string `json:"fullName,omitempty"`
}

// SetDateOfBirth formats t in the processor's layout.
func (c *CustomerInformation) SetDateOfBirth(t time.Time) {
	c.DateOfBirth = t.Format(DateOfBirthLayout)
}

// Validate checks the customer information field formats.
func (c CustomerInformation) Validate() error {
	if c.EmailAddress != "" {
		if err := fieldValidator.Var(c.EmailAddress, "email,max=45"); err != nil {
			return fieldError("CustomerInformation.emailAddress", ErrInvalidFormat, "%q is not a valid e-mail address", c.EmailAddress)
		}
	}
	if c.DateOfBirth != "" {
		if _, err := time.Parse(DateOfBirthLayout, c.DateOfBirth); err != nil {
			return fieldError("CustomerInformation.dateOfBirth", ErrInvalidFormat, "expected DD-MM-YYYY, got %q", c.DateOfBirth)
		}
	}
	switch c.Gender {
	case "", GenderMale, GenderFemale:
	default:
		return fieldError("CustomerInformation.gender", ErrInvalidValue, "%q is not M or F", c.Gender)
	}
	if err := ValidateNullOrAN(c.Initials, 256, "CustomerInformation.initials"); err != nil {
		return err
	}
	if err := ValidateNullOrAN(c.TelephoneNumber, 31, "CustomerInformation.telephoneNumber"); err != nil {
		return err
	}
	return ValidateNullOrAN(c.FullName, 128, "CustomerInformation.fullName")
}

// Every customer field is optional; unset ones are left out of the signature.
func (c CustomerInformation) appendSignatureFields(fields []string) []string {
	return appendIfSet(fields,
		c.EmailAddress,
		c.DateOfBirth,
		c.Gender,
		c.Initials,
		c.TelephoneNumber,
		c.FullName,
	)
}
