package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenAddress is a base58-encoded mint address. Equality is by value.
type TokenAddress string

// Validate checks that the address decodes to a 32-byte public key.
func (a TokenAddress) Validate() error {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", string(a), err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", string(a), len(raw))
	}
	return nil
}

func (a TokenAddress) String() string { return string(a) }

// Short returns a truncated form suitable for log fields.
func (a TokenAddress) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
