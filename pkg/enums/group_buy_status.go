package enums

import "fmt"

// GroupBuyStatus tracks the lifecycle of a group buy.
type GroupBuyStatus string

const (
	GroupBuyStatusOpen      GroupBuyStatus = "open"
	GroupBuyStatusConfirmed GroupBuyStatus = "confirmed"
	GroupBuyStatusExpired   GroupBuyStatus = "expired"
	GroupBuyStatusCancelled GroupBuyStatus = "cancelled"
)

var validGroupBuyStatuses = []GroupBuyStatus{
	GroupBuyStatusOpen,
	GroupBuyStatusConfirmed,
	GroupBuyStatusExpired,
	GroupBuyStatusCancelled,
}

// String implements fmt.Stringer.
func (g GroupBuyStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GroupBuyStatus.
func (g GroupBuyStatus) IsValid() bool {
	for _, candidate := range validGroupBuyStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (g GroupBuyStatus) IsTerminal() bool {
	return g == GroupBuyStatusConfirmed || g == GroupBuyStatusExpired || g == GroupBuyStatusCancelled
}

// ParseGroupBuyStatus converts raw input into a GroupBuyStatus.
func ParseGroupBuyStatus(value string) (GroupBuyStatus, error) {
	for _, candidate := range validGroupBuyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group buy status %q", value)
}
