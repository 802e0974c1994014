package schedule

import (
	"errors"
	"fmt"
)

// WeekType describes which weeks inside a slot's active range the slot recurs on.
type WeekType string

const (
	WeekAll  WeekType = "all"
	WeekOdd  WeekType = "odd"
	WeekEven WeekType = "even"
)

// Valid reports whether w is one of the known week types.
func (w WeekType) Valid() bool {
	switch w {
	case WeekAll, WeekOdd, WeekEven:
		return true
	}
	return false
}

// compatible reports whether two week types can fall on the same week.
func (w WeekType) compatible(other WeekType) bool {
	if w == WeekAll || other == WeekAll {
		return true
	}
	return w == other
}

// ErrInvalidSlot is returned by Slot.Validate.
var ErrInvalidSlot = errors.New("invalid time slot")

// Slot is one recurring weekly slot: a (weekday, period) cell of the grid
// active from StartWeek to EndWeek inclusive.
//
// Weekday runs 1 (Monday) to 7 (Sunday). Period is the 1-based ordinal of the
// teaching period within that day.
type Slot struct {
	Weekday   int      `json:"weekday"`
	Period    int      `json:"period"`
	StartWeek int      `json:"startWeek"`
	EndWeek   int      `json:"endWeek"`
	WeekType  WeekType `json:"weekType"`
}

// Validate checks the slot's fields are within range.
func (s Slot) Validate() error {
	if s.Weekday < 1 || s.Weekday > 7 {
		return fmt.Errorf("%w: weekday %d out of range 1-7", ErrInvalidSlot, s.Weekday)
	}
	if s.Period < 1 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidSlot, s.Period)
	}
	if s.StartWeek < 1 || s.EndWeek < s.StartWeek {
		return fmt.Errorf("%w: week range %d-%d", ErrInvalidSlot, s.StartWeek, s.EndWeek)
	}
	if !s.WeekType.Valid() {
		return fmt.Errorf("%w: unknown week type %q", ErrInvalidSlot, s.WeekType)
	}
	return nil
}

// String renders the slot the way it shows up in logs and error details.
func (s Slot) String() string {
	return fmt.Sprintf("weekday=%d period=%d weeks=%d-%d/%s", s.Weekday, s.Period, s.StartWeek, s.EndWeek, s.WeekType)
}

// Overlaps reports whether two slots ever occupy the same cell in the same week.
func Overlaps(a, b Slot) bool {
	if a.Weekday != b.Weekday || a.Period != b.Period {
		return false
	}
	if max(a.StartWeek, b.StartWeek) > min(a.EndWeek, b.EndWeek) {
		return false
	}
	return a.WeekType.compatible(b.WeekType)
}
