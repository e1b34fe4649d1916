package enums

import "fmt"

// PackageStatus is the lifecycle state of a multi-reservation package.
type PackageStatus string

const (
	PackageStatusPending   PackageStatus = "pending"
	PackageStatusConfirmed PackageStatus = "confirmed"
	PackageStatusCompleted PackageStatus = "completed"
	PackageStatusCancelled PackageStatus = "cancelled"
)

var validPackageStatuses = []PackageStatus{
	PackageStatusPending,
	PackageStatusConfirmed,
	PackageStatusCompleted,
	PackageStatusCancelled,
}

// String implements fmt.Stringer.
func (p PackageStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackageStatus.
func (p PackageStatus) IsValid() bool {
	for _, candidate := range validPackageStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the package can no longer change state.
func (p PackageStatus) IsTerminal() bool {
	return p == PackageStatusCompleted || p == PackageStatusCancelled
}

// ParsePackageStatus converts raw input into a PackageStatus.
func ParsePackageStatus(value string) (PackageStatus, error) {
	for _, candidate := range validPackageStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package status %q", value)
}
