package enums

import "fmt"

// PlateStatus maps to the plate_status enum in Postgres.
type PlateStatus string

const (
	PlateStatusPending  PlateStatus = "pending"
	PlateStatusApproved PlateStatus = "approved"
	PlateStatusRejected PlateStatus = "rejected"
	PlateStatusExpired  PlateStatus = "expired"
)

var validPlateStatuses = []PlateStatus{
	PlateStatusPending,
	PlateStatusApproved,
	PlateStatusRejected,
	PlateStatusExpired,
}

// String implements fmt.Stringer.
func (p PlateStatus) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical plate_status enum.
func (p PlateStatus) IsValid() bool {
	for _, candidate := range validPlateStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlateStatus converts raw input into PlateStatus.
func ParsePlateStatus(value string) (PlateStatus, error) {
	for _, candidate := range validPlateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plate status %q", value)
}

// PlateType maps to the plate_type enum in Postgres.
type PlateType string

const (
	PlateTypePersonal PlateType = "personal"
	PlateTypeGuest    PlateType = "guest"
)

var validPlateTypes = []PlateType{
	PlateTypePersonal,
	PlateTypeGuest,
}

// String implements fmt.Stringer.
func (p PlateType) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical plate_type enum.
func (p PlateType) IsValid() bool {
	for _, candidate := range validPlateTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlateType converts raw input into PlateType.
func ParsePlateType(value string) (PlateType, error) {
	for _, candidate := range validPlateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plate type %q", value)
}
