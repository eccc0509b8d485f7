// Package phone normalizes Kenyan mobile numbers into the 2547XXXXXXXX form
// the M-Pesa gateway expects.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalid is returned for anything that is not a Kenyan mobile number.
var ErrInvalid = errors.New("invalid phone number format. Use 07XXXXXXXX or 2547XXXXXXXX")

var canonical = regexp.MustCompile(`^2547[0-9]{8}$`)

var stripper = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "", "-", "", "+", "")

// Normalize accepts 07XXXXXXXX, 7XXXXXXXX, 2547XXXXXXXX and +2547XXXXXXXX
// (with optional spaces or hyphens) and returns 2547XXXXXXXX.
func Normalize(input string) (string, error) {
	n := stripper.Replace(input)
	switch {
	case strings.HasPrefix(n, "0"):
		n = "254" + n[1:]
	case strings.HasPrefix(n, "7"):
		n = "254" + n
	}
	if !canonical.MatchString(n) {
		return "", ErrInvalid
	}
	return n, nil
}

// Last4 returns the trailing four digits of a normalized number.
func Last4(normalized string) string {
	if len(normalized) <= 4 {
		return normalized
	}
	return normalized[len(normalized)-4:]
}
