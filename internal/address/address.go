package address

import (
	"regexp"
	"strings"
)

// Only a shape check. Chain-specific checksums are not verified.
var plausible = regexp.MustCompile(`^[a-zA-Z0-9]{25,}$`)

// Valid reports whether candidate, once trimmed, looks like a wallet address.
func Valid(candidate string) bool {
	return plausible.MatchString(strings.TrimSpace(candidate))
}

// Mask shortens an address for display, keeping the first 10 and last 6 characters.
func Mask(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-6:]
}
