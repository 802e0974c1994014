// Package window decides whether a term currently accepts enroll or drop requests.
package window

import "time"

// Window is a closed time interval. A zero Start or End means the window was
// never configured and is therefore closed.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	if w.Start.IsZero() || w.End.IsZero() {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Term is anything that carries enroll and drop windows.
type Term interface {
	EnrollWindow() Window
	DropWindow() Window
}

// Policy evaluates term windows against a clock.
type Policy struct {
	now func() time.Time
}

// NewPolicy returns a Policy reading the current time from now.
// A nil now uses time.Now.
func NewPolicy(now func() time.Time) Policy {
	if now == nil {
		now = time.Now
	}
	return Policy{now: now}
}

// IsEnrollWindowOpen reports whether enrollment is allowed for term right now.
func (p Policy) IsEnrollWindowOpen(term Term) bool {
	return term.EnrollWindow().Contains(p.now())
}

// IsDropWindowOpen reports whether dropping is allowed for term right now.
func (p Policy) IsDropWindowOpen(term Term) bool {
	return term.DropWindow().Contains(p.now())
}
