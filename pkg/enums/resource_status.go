package enums

import "fmt"

// ResourceStatus tracks whether a resource can accept bookings at all.
type ResourceStatus string

const (
	ResourceStatusAvailable    ResourceStatus = "available"
	ResourceStatusMaintenance  ResourceStatus = "maintenance"
	ResourceStatusOutOfService ResourceStatus = "out_of_service"
)

var validResourceStatuses = []ResourceStatus{
	ResourceStatusAvailable,
	ResourceStatusMaintenance,
	ResourceStatusOutOfService,
}

// String implements fmt.Stringer.
func (r ResourceStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResourceStatus.
func (r ResourceStatus) IsValid() bool {
	for _, candidate := range validResourceStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResourceStatus converts raw input into a ResourceStatus.
func ParseResourceStatus(value string) (ResourceStatus, error) {
	for _, candidate := range validResourceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource status %q", value)
}
