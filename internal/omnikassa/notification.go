package omnikassa

import (
	"strconv"
	"time"
)

// EventOrderStatusChanged is the only notification event acted upon.
const EventOrderStatusChanged = "merchant.order.status.changed"

// Notification is the push message the processor posts to the webhook. It does
// not carry results; Authentication is used to pull them.
type Notification struct {
	Authentication string `json:"authentication"`
	Expiry         string `json:"expiry"`
	EventName      string `json:"eventName"`
	PoiID          int64  `json:"poiId"`
	Sig            string `json:"signature"`
}

func (n Notification) Signature() string { return n.Sig }

// SignatureFields returns authentication, expiry, eventName, poiId.
func (n Notification) SignatureFields() []string {
	return []string{n.Authentication, n.Expiry, n.EventName, strconv.FormatInt(n.PoiID, 10)}
}

// ExpiresAt parses the expiry instant.
func (n Notification) ExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, n.Expiry)
}
