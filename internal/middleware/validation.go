package middleware

import (
	"errors"
	"regexp"
	"strings"
)

// Validation limits.
const (
	// MaxEmailLength is the maximum accepted email address length.
	MaxEmailLength = 254

	// MaxNetworkCodeLength bounds network codes; real codes are short
	// numeric strings but we leave headroom.
	MaxNetworkCodeLength = 20

	// MaxNetworksPerRequest caps how many networks one grant request
	// may target.
	MaxNetworksPerRequest = 50
)

// Validation errors.
var (
	ErrEmailEmpty         = errors.New("email is required")
	ErrEmailTooLong       = errors.New("email exceeds maximum length")
	ErrEmailInvalid       = errors.New("email is not a valid address")
	ErrNetworkCodeEmpty   = errors.New("network code is empty")
	ErrNetworkCodeTooLong = errors.New("network code exceeds maximum length")
	ErrNetworkCodeInvalid = errors.New("network code must be numeric")
	ErrTooManyNetworks    = errors.New("too many networks in one request")
)

// emailRegex is a pragmatic check, not full RFC 5322. The remote ad
// manager does its own validation when the user is created.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var networkCodeRegex = regexp.MustCompile(`^[0-9]+$`)

// ValidateEmail checks an email address for the grant endpoint.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailEmpty
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !emailRegex.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateNetworkCodes checks an explicit network list. An empty list
// is valid; the service falls back to its configured defaults.
func ValidateNetworkCodes(codes []string) error {
	if len(codes) > MaxNetworksPerRequest {
		return ErrTooManyNetworks
	}
	for _, code := range codes {
		if err := ValidateNetworkCode(code); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNetworkCode checks a single network code.
func ValidateNetworkCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrNetworkCodeEmpty
	}
	if len(code) > MaxNetworkCodeLength {
		return ErrNetworkCodeTooLong
	}
	if !networkCodeRegex.MatchString(code) {
		return ErrNetworkCodeInvalid
	}
	return nil
}
