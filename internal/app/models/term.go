package models

import (
	"time"

	"github.com/yigit/courseenroll/internal/domain/window"
)

// Term is an academic term with its enroll and drop periods.
type Term struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	EnrollStart time.Time `json:"enrollStart" db:"enroll_start"`
	EnrollEnd   time.Time `json:"enrollEnd" db:"enroll_end"`
	DropStart   time.Time `json:"dropStart" db:"drop_start"`
	DropEnd     time.Time `json:"dropEnd" db:"drop_end"`
}

// EnrollWindow implements window.Term.
func (t *Term) EnrollWindow() window.Window {
	return window.Window{Start: t.EnrollStart, End: t.EnrollEnd}
}

// DropWindow implements window.Term.
func (t *Term) DropWindow() window.Window {
	return window.Window{Start: t.DropStart, End: t.DropEnd}
}
