// Package common provides shared utilities for chartd
package common

import (
	"fmt"
	"strings"
)

// MaxSymbolLength is the longest ticker accepted anywhere in the system.
const MaxSymbolLength = 10

// NormalizeSymbol trims, uppercases, and validates a ticker symbol.
// Letters, digits, and the '.'/'-' separators used by class shares
// (BRK.B, BF-B) are accepted.
func NormalizeSymbol(s string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(s))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if len(symbol) > MaxSymbolLength {
		return "", fmt.Errorf("%w: symbol %q exceeds %d characters", ErrInvalidInput, symbol, MaxSymbolLength)
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return "", fmt.Errorf("%w: symbol %q contains invalid character %q", ErrInvalidInput, symbol, r)
		}
	}
	return symbol, nil
}
