package enums

import "fmt"

// ResourceKind distinguishes the two bookable resource variants.
type ResourceKind string

const (
	ResourceKindLodging ResourceKind = "lodging"
	ResourceKindService ResourceKind = "service"
)

var validResourceKinds = []ResourceKind{
	ResourceKindLodging,
	ResourceKindService,
}

// String implements fmt.Stringer.
func (r ResourceKind) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResourceKind.
func (r ResourceKind) IsValid() bool {
	for _, candidate := range validResourceKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResourceKind converts raw input into a ResourceKind.
func ParseResourceKind(value string) (ResourceKind, error) {
	for _, candidate := range validResourceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource kind %q", value)
}
