package appointment

import "fmt"

// StandardSlots returns the bookable half-hour grid between startHour
// (inclusive) and endHour (exclusive), e.g. 8 and 17 yield 08:00 .. 16:30.
func StandardSlots(startHour, endHour int) []string {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil
	}
	slots := make([]string, 0, (endHour-startHour)*2)
	for h := startHour; h < endHour; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
		slots = append(slots, fmt.Sprintf("%02d:30", h))
	}
	return slots
}

// OnGrid reports whether t (HH:MM) is one of the standard slots. A
// well-formed time off the half-hour grid, like 08:15, is not bookable.
func OnGrid(t string, startHour, endHour int) bool {
	for _, slot := range StandardSlots(startHour, endHour) {
		if slot == t {
			return true
		}
	}
	return false
}
