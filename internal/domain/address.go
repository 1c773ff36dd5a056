package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ZeroAddress is the sentinel user that stands in for "no worker yet".
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lowercases a 0x-prefixed 20-byte hex address and validates it.
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if len(a) != 42 || !strings.HasPrefix(a, "0x") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return a, nil
}

// IsZeroAddress reports whether address is the zero-address sentinel.
func IsZeroAddress(address string) bool {
	return strings.EqualFold(address, ZeroAddress)
}
