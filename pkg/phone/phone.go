// Package phone normalizes WhatsApp destinations.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidNumber is returned when a destination cannot be interpreted as a phone number.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalizer turns user entered numbers into digits-only E.164.
type Normalizer struct {
	region string
}

// NewNormalizer builds a normalizer that infers the country code from region
// when a number is written in local form.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "ES"
	}
	return &Normalizer{region: region}
}

// Destination normalizes a broadcast target. Provider chat ids (group or
// contact jids containing "@") are returned unchanged.
func (n *Normalizer) Destination(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidNumber
	}
	if strings.Contains(raw, "@") {
		return raw, nil
	}
	return n.Number(raw)
}

// Number parses raw as a phone number and returns it as E.164 without the leading plus.
func (n *Normalizer) Number(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "00") {
		raw = "+" + strings.TrimPrefix(raw, "00")
	}
	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidNumber
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}
