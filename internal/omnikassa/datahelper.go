package omnikassa

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// StripTags removes markup from s. The bodies of script and style elements are
// dropped, the inner text of every other element is kept verbatim.
func StripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var (
		out  bytes.Buffer
		skip string
	)
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is the result.
			return out.String()
		case html.TextToken:
			if skip == "" {
				out.Write(z.Raw())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip = tag
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == skip {
				skip = ""
			}
		}
	}
}

// ValidateAN checks a mandatory alphanumeric field.
func ValidateAN(value string, max int, field string) error {
	return validate(value, max, field, allowedAN)
}

// ValidateANS checks a mandatory alphanumeric field that may contain symbols.
func ValidateANS(value string, max int, field string) error {
	return validate(value, max, field, allowedANS)
}

// ValidateNullOrAN is ValidateAN for optional fields; the empty string means absent.
func ValidateNullOrAN(value string, max int, field string) error {
	if value == "" {
		return nil
	}
	return ValidateAN(value, max, field)
}

// ValidateNullOrANS is ValidateANS for optional fields.
func ValidateNullOrANS(value string, max int, field string) error {
	if value == "" {
		return nil
	}
	return ValidateANS(value, max, field)
}

// SanitizeAN strips markup and characters outside the AN set and truncates the
// result to max runes.
func SanitizeAN(value string, max int) string {
	return sanitize(value, max, allowedAN)
}

// SanitizeANS is SanitizeAN for the ANS set.
func SanitizeANS(value string, max int) string {
	return sanitize(value, max, allowedANS)
}

func validate(value string, max int, field string, allowed func(rune) bool) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Err: ErrRequired}
	}
	if n := utf8.RuneCountInString(value); n > max {
		return fieldError(field, ErrTooLong, "%d characters, maximum is %d", n, max)
	}
	if !utf8.ValidString(value) {
		return fieldError(field, ErrInvalidFormat, "not valid UTF-8")
	}
	if StripTags(value) != value {
		return fieldError(field, ErrInvalidFormat, "markup is not allowed")
	}
	for _, r := range value {
		if !allowed(r) {
			return fieldError(field, ErrInvalidFormat, "character %q is not allowed", r)
		}
	}
	return nil
}

func sanitize(value string, max int, allowed func(rune) bool) string {
	stripped := strings.TrimSpace(StripTags(value))

	var b strings.Builder
	n := 0
	for _, r := range stripped {
		if n == max {
			break
		}
		if r == utf8.RuneError || !allowed(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// allowedAN accepts letters, digits, whitespace, punctuation and the ASCII symbols.
func allowedAN(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsNumber(r):
		return true
	case unicode.IsSpace(r):
		return true
	case unicode.IsPunct(r):
		return true
	case r < utf8.RuneSelf && unicode.IsSymbol(r):
		return true
	}
	return false
}

func allowedANS(r rune) bool {
	return allowedAN(r) || unicode.IsSymbol(r)
}
