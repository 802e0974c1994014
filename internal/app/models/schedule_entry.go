package models

import "github.com/yigit/courseenroll/internal/domain/schedule"

// ScheduleEntry is one recurring weekly session of an offering.
type ScheduleEntry struct {
	ID         int64             `json:"id" db:"id"`
	OfferingID int64             `json:"offeringId" db:"offering_id"`
	TeacherID  *int64            `json:"teacherId,omitempty" db:"teacher_id"`
	Weekday    int               `json:"weekday" db:"weekday"`
	Period     int               `json:"period" db:"period"`
	StartWeek  int               `json:"startWeek" db:"start_week"`
	EndWeek    int               `json:"endWeek" db:"end_week"`
	WeekType   schedule.WeekType `json:"weekType" db:"week_type"`
}

// Slot returns the time slot occupied by the entry.
func (e ScheduleEntry) Slot() schedule.Slot {
	return schedule.Slot{
		Weekday:   e.Weekday,
		Period:    e.Period,
		StartWeek: e.StartWeek,
		EndWeek:   e.EndWeek,
		WeekType:  e.WeekType,
	}
}

// Slots maps entries to their time slots.
func Slots(entries []ScheduleEntry) []schedule.Slot {
	slots := make([]schedule.Slot, 0, len(entries))
	for _, e := range entries {
		slots = append(slots, e.Slot())
	}
	return slots
}
