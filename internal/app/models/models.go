package models

// Classification tells which seat pool an enrollment draws from.
type Classification string

const (
	// ClassificationInner is used when the student belongs to the offering's department.
	ClassificationInner Classification = "inner"
	// ClassificationOuter is used for students from every other department.
	ClassificationOuter Classification = "outer"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	return c == ClassificationInner || c == ClassificationOuter
}

// Classify derives the classification of a student enrolling in an offering
// owned by offeringDepartmentID.
func Classify(studentDepartmentID, offeringDepartmentID int64) Classification {
	if studentDepartmentID == offeringDepartmentID {
		return ClassificationInner
	}
	return ClassificationOuter
}
