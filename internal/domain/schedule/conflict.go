package schedule

// Conflict is a pair of overlapping slots, one already committed and one
// requested.
type Conflict struct {
	Existing  Slot
	Candidate Slot
}

// FindConflict returns the first overlapping (existing, candidate) pair.
// The second return value is false when the schedules are disjoint.
func FindConflict(existing, candidate []Slot) (Conflict, bool) {
	for _, c := range candidate {
		for _, e := range existing {
			if Overlaps(e, c) {
				return Conflict{Existing: e, Candidate: c}, true
			}
		}
	}
	return Conflict{}, false
}

// HasConflict reports whether any candidate slot overlaps an existing one.
func HasConflict(existing, candidate []Slot) bool {
	_, found := FindConflict(existing, candidate)
	return found
}
