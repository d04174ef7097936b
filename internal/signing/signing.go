// Package signing implements the canonical field encoding and HMAC signatures
// shared by every message exchanged with the processor.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Separator joins signature fields into the canonical string.
const Separator = ","

// ErrEmptyKey is returned when signing with an empty key.
var ErrEmptyKey = errors.New("signing key is empty")

// Signable is any message that can enumerate its signature fields.
//
// SignatureFields must return the fields in the exact order documented for the
// message type. Adding or removing a field is a protocol change.
type Signable interface {
	SignatureFields() []string
	Signature() string
}

// Canonicalize returns the string that is fed into the HMAC.
func Canonicalize(m Signable) string {
	return strings.Join(m.SignatureFields(), Separator)
}

// Sign computes the lowercase hex HMAC-SHA256 of the canonical fields of m.
func Sign(m Signable, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	return compute(Canonicalize(m), key), nil
}

// Verify recomputes the signature of m from its current field values and
// compares it with the signature m carries. It returns false when either side
// is empty or the carried signature is not valid hex.
func Verify(m Signable, key []byte) bool {
	if len(key) == 0 {
		return false
	}
	provided := m.Signature()
	if provided == "" {
		return false
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(compute(Canonicalize(m), key))
	if err != nil || len(expected) == 0 {
		return false
	}
	return hmac.Equal(expected, got)
}

// DecodeKey decodes a base64 signing key as distributed by the processor.
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrEmptyKey
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	return key, nil
}

func compute(canonical string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
