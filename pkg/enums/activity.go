package enums

import "fmt"

// ActivityType maps to the activity_type enum in Postgres.
type ActivityType string

const (
	ActivityTypePlateCreated           ActivityType = "plate_created"
	ActivityTypePlateApproved          ActivityType = "plate_approved"
	ActivityTypePlateRejected          ActivityType = "plate_rejected"
	ActivityTypePlateRemoved           ActivityType = "plate_removed"
	ActivityTypeTemporaryAccessCreated ActivityType = "temporary_access_created"
	ActivityTypeTemporaryAccessExpired ActivityType = "temporary_access_expired"
)

var validActivityTypes = []ActivityType{
	ActivityTypePlateCreated,
	ActivityTypePlateApproved,
	ActivityTypePlateRejected,
	ActivityTypePlateRemoved,
	ActivityTypeTemporaryAccessCreated,
	ActivityTypeTemporaryAccessExpired,
}

// IsValid checks whether the given type matches the canonical enum.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw strings into ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
