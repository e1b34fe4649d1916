package enums

import "fmt"

// MovementKind classifies an immutable stock movement entry.
type MovementKind string

const (
	MovementKindIn         MovementKind = "in"
	MovementKindOut        MovementKind = "out"
	MovementKindReturn     MovementKind = "return"
	MovementKindAdjustUp   MovementKind = "adjust_up"
	MovementKindAdjustDown MovementKind = "adjust_down"
	MovementKindLoss       MovementKind = "loss"
	MovementKindDamage     MovementKind = "damage"
)

var validMovementKinds = []MovementKind{
	MovementKindIn,
	MovementKindOut,
	MovementKindReturn,
	MovementKindAdjustUp,
	MovementKindAdjustDown,
	MovementKindLoss,
	MovementKindDamage,
}

// ManualMovementKinds are the operator-initiated kinds, the only ones that
// change an item's total quantity.
var ManualMovementKinds = []MovementKind{
	MovementKindIn,
	MovementKindAdjustUp,
	MovementKindAdjustDown,
	MovementKindLoss,
	MovementKindDamage,
}

// String implements fmt.Stringer.
func (m MovementKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementKind.
func (m MovementKind) IsValid() bool {
	for _, candidate := range validMovementKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsManual reports whether the kind mutates total quantity.
func (m MovementKind) IsManual() bool {
	for _, candidate := range ManualMovementKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// Delta returns the sign applied to total quantity for manual kinds:
// +1 for inflows, -1 for outflows, 0 for reservation-driven audit entries.
func (m MovementKind) Delta() int {
	switch m {
	case MovementKindIn, MovementKindAdjustUp:
		return 1
	case MovementKindAdjustDown, MovementKindLoss, MovementKindDamage:
		return -1
	default:
		return 0
	}
}

// ParseMovementKind converts raw input into a MovementKind.
func ParseMovementKind(value string) (MovementKind, error) {
	for _, candidate := range validMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement kind %q", value)
}
