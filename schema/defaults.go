package schema

import (
	"time"

	"github.com/google/uuid"
)

// DefaultUUID is a default provider generating a random UUID string.
// Suitable for hash key attributes of type String.
func DefaultUUID() any {
	return uuid.NewString()
}

// DefaultNowRFC3339 is a default provider returning the current UTC time
// as an RFC 3339 string.
func DefaultNowRFC3339() any {
	return time.Now().UTC().Format(time.RFC3339)
}

// Constant returns a default provider that always yields v.
func Constant(v any) func() any {
	return func() any { return v }
}
