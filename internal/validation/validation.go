package validation

import (
	"fmt"
	"net"
	"strings"
)

// NormalizeOrderID trims the whitespace users typically paste around an
// order id.
func NormalizeOrderID(text string) string {
	return strings.TrimSpace(text)
}

// NormalizeAddress trims a proxy address input
func NormalizeAddress(text string) string {
	return strings.TrimSpace(text)
}

// ValidateAddress checks that text is a plain IP address, the form proxy
// liveness records are keyed by.
func ValidateAddress(text string) error {
	if net.ParseIP(strings.TrimSpace(text)) == nil {
		return fmt.Errorf("not a valid IP address: %q", text)
	}
	return nil
}
