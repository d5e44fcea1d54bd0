package enums

import "fmt"

// TemporaryAccessStatus maps to the temporary_access_status enum in Postgres.
type TemporaryAccessStatus string

const (
	TemporaryAccessStatusActive  TemporaryAccessStatus = "active"
	TemporaryAccessStatusExpired TemporaryAccessStatus = "expired"
)

var validTemporaryAccessStatuses = []TemporaryAccessStatus{
	TemporaryAccessStatusActive,
	TemporaryAccessStatusExpired,
}

// String implements fmt.Stringer.
func (t TemporaryAccessStatus) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical enum.
func (t TemporaryAccessStatus) IsValid() bool {
	for _, candidate := range validTemporaryAccessStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTemporaryAccessStatus converts raw input into TemporaryAccessStatus.
func ParseTemporaryAccessStatus(value string) (TemporaryAccessStatus, error) {
	for _, candidate := range validTemporaryAccessStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid temporary access status %q", value)
}
