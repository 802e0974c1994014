// Package memory provides an in-process implementation of the repository
// interfaces. Transactions are serialized and applied copy-on-commit, so a
// failed transaction leaves no trace.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

type pairKey struct {
	studentID  int64
	offeringID int64
}

type state struct {
	departments map[int64]models.Department
	courses     map[int64]models.Course
	students    map[int64]models.Student
	terms       map[int64]models.Term
	offerings   map[int64]models.Offering
	schedule    map[int64][]models.ScheduleEntry
	enrollments map[pairKey]models.Enrollment

	nextEnrollmentID int64
	nextScheduleID   int64
}

func newState() *state {
	return &state{
		departments: make(map[int64]models.Department),
		courses:     make(map[int64]models.Course),
		students:    make(map[int64]models.Student),
		terms:       make(map[int64]models.Term),
		offerings:   make(map[int64]models.Offering),
		schedule:    make(map[int64][]models.ScheduleEntry),
		enrollments: make(map[pairKey]models.Enrollment),
	}
}

// clone copies everything a transaction may write. Reference data is shared.
func (s *state) clone() *state {
	c := *s
	c.offerings = make(map[int64]models.Offering, len(s.offerings))
	for id, o := range s.offerings {
		c.offerings[id] = o
	}
	c.enrollments = make(map[pairKey]models.Enrollment, len(s.enrollments))
	for k, e := range s.enrollments {
		c.enrollments[k] = e
	}
	return &c
}

// offering returns the stored offering with its derived department filled in.
func (s *state) offering(id int64) (models.Offering, bool) {
	o, ok := s.offerings[id]
	if !ok {
		return models.Offering{}, false
	}
	if c, ok := s.courses[o.CourseID]; ok {
		o.DepartmentID = c.DepartmentID
	}
	return o, true
}

// Store is a thread-safe in-memory store
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{st: newState()}
}

var (
	_ repositories.EnrollmentStore  = (*Store)(nil)
	_ repositories.CatalogReader    = (*Store)(nil)
	_ repositories.QuotaAuditReader = (*Store)(nil)
)

// Repositories returns the store wired as every backend.
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Enrollments: s,
		Catalog:     s,
		Audit:       s,
	}
}

// PutDepartment inserts or replaces a department
func (s *Store) PutDepartment(d models.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.departments[d.ID] = d
}

// PutCourse inserts or replaces a course
func (s *Store) PutCourse(c models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Department = nil
	s.st.courses[c.ID] = c
}

// PutStudent inserts or replaces a student. Replacing a student with a new
// department does not touch existing enrollments.
func (s *Store) PutStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Department = nil
	s.st.students[st.ID] = st
}

// PutTerm inserts or replaces a term
func (s *Store) PutTerm(t models.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.terms[t.ID] = t
}

// PutOffering inserts or replaces an offering, including its counters
func (s *Store) PutOffering(o models.Offering) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.Course = nil
	o.Schedule = nil
	s.st.offerings[o.ID] = o
}

// AddScheduleEntry appends a schedule entry to its offering. A zero ID is assigned.
func (s *Store) AddScheduleEntry(e models.ScheduleEntry) models.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.st.nextScheduleID++
		e.ID = s.st.nextScheduleID
	} else if e.ID > s.st.nextScheduleID {
		s.st.nextScheduleID = e.ID
	}
	s.st.schedule[e.OfferingID] = append(s.st.schedule[e.OfferingID], e)
	return e
}

// Offering returns a snapshot of an offering
func (s *Store) Offering(id int64) (models.Offering, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.offering(id)
}

// Enrollments returns a snapshot of every enrollment of an offering
func (s *Store) Enrollments(offeringID int64) []models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Enrollment
	for k, e := range s.st.enrollments {
		if k.offeringID == offeringID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InTx implements repositories.EnrollmentStore. Transactions run one at a
// time; fn works on a private copy that replaces the shared state only when
// fn returns nil.
func (s *Store) InTx(ctx context.Context, fn repositories.TxFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type tx struct {
	st *state
}

func (t *tx) GetOffering(_ context.Context, offeringID int64) (*models.Offering, error) {
	o, ok := t.st.offering(offeringID)
	if !ok {
		return nil, repositories.ErrOfferingNotFound
	}
	return &o, nil
}

// LockOffering is GetOffering: the store lock is already held for the whole transaction.
func (t *tx) LockOffering(ctx context.Context, offeringID int64) (*models.Offering, error) {
	return t.GetOffering(ctx, offeringID)
}

func (t *tx) UpdateOfferingCounts(_ context.Context, offeringID int64, enrolledInner, enrolledOuter int) error {
	o, ok := t.st.offerings[offeringID]
	if !ok {
		return repositories.ErrOfferingNotFound
	}
	o.EnrolledInner = enrolledInner
	o.EnrolledOuter = enrolledOuter
	t.st.offerings[offeringID] = o
	return nil
}

func (t *tx) GetTerm(_ context.Context, termID int64) (*models.Term, error) {
	term, ok := t.st.terms[termID]
	if !ok {
		return nil, repositories.ErrTermNotFound
	}
	return &term, nil
}

func (t *tx) LockStudent(_ context.Context, studentID int64) (*models.Student, error) {
	return t.st.student(studentID)
}

func (t *tx) GetEnrollment(_ context.Context, studentID, offeringID int64) (*models.Enrollment, error) {
	e, ok := t.st.enrollments[pairKey{studentID, offeringID}]
	if !ok {
		return nil, repositories.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (t *tx) ListOfferingSchedule(_ context.Context, offeringID int64) ([]models.ScheduleEntry, error) {
	return slices.Clone(t.st.schedule[offeringID]), nil
}

func (t *tx) ListStudentTermSchedule(_ context.Context, studentID, termID int64) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	for _, offeringID := range t.st.studentOfferings(studentID, termID) {
		entries = append(entries, t.st.schedule[offeringID]...)
	}
	return entries, nil
}

func (t *tx) InsertEnrollment(_ context.Context, enrollment *models.Enrollment) error {
	key := pairKey{enrollment.StudentID, enrollment.OfferingID}
	if _, exists := t.st.enrollments[key]; exists {
		return repositories.ErrEnrollmentExists
	}
	t.st.nextEnrollmentID++
	enrollment.ID = t.st.nextEnrollmentID
	t.st.enrollments[key] = *enrollment
	return nil
}

func (t *tx) DeleteEnrollment(_ context.Context, studentID, offeringID int64) error {
	key := pairKey{studentID, offeringID}
	if _, exists := t.st.enrollments[key]; !exists {
		return repositories.ErrEnrollmentNotFound
	}
	delete(t.st.enrollments, key)
	return nil
}

func (s *state) student(id int64) (*models.Student, error) {
	st, ok := s.students[id]
	if !ok {
		return nil, repositories.ErrStudentNotFound
	}
	return &st, nil
}

// studentOfferings lists, in ID order, the offerings of a term the student is enrolled in.
func (s *state) studentOfferings(studentID, termID int64) []int64 {
	var ids []int64
	for k := range s.enrollments {
		if k.studentID != studentID {
			continue
		}
		if o, ok := s.offerings[k.offeringID]; ok && o.TermID == termID {
			ids = append(ids, k.offeringID)
		}
	}
	slices.Sort(ids)
	return ids
}

// GetStudent implements repositories.CatalogReader
func (s *Store) GetStudent(_ context.Context, studentID int64) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.student(studentID)
}

// ListAvailableOfferings implements repositories.CatalogReader
func (s *Store) ListAvailableOfferings(_ context.Context, student *models.Student, termID int64, page helpers.Page) ([]models.AvailableOffering, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.AvailableOffering
	for id := range s.st.offerings {
		o, _ := s.st.offering(id)
		if o.TermID != termID {
			continue
		}
		if _, enrolled := s.st.enrollments[pairKey{student.ID, o.ID}]; enrolled {
			continue
		}
		classification := models.Classify(student.DepartmentID, o.DepartmentID)
		if o.Remaining(classification) == 0 {
			continue
		}

		course := s.st.courses[o.CourseID]
		all = append(all, models.AvailableOffering{
			OfferingID:     o.ID,
			CourseCode:     course.Code,
			CourseName:     course.Name,
			Credits:        course.Credits,
			DepartmentName: s.st.departments[course.DepartmentID].Name,
			Classification: classification,
			Remaining:      o.Remaining(classification),
			Total:          o.Quota(classification),
			Schedule:       slices.Clone(s.st.schedule[o.ID]),
		})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CourseCode != all[j].CourseCode {
			return all[i].CourseCode < all[j].CourseCode
		}
		return all[i].OfferingID < all[j].OfferingID
	})

	start, end := page.SliceBounds(len(all))
	return all[start:end], int64(len(all)), nil
}

// ListStudentSchedule implements repositories.CatalogReader
func (s *Store) ListStudentSchedule(_ context.Context, studentID, termID int64) ([]models.ScheduleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.ScheduleItem
	for _, offeringID := range s.st.studentOfferings(studentID, termID) {
		course := s.st.courses[s.st.offerings[offeringID].CourseID]
		for _, entry := range s.st.schedule[offeringID] {
			items = append(items, models.ScheduleItem{
				OfferingID: offeringID,
				CourseCode: course.Code,
				CourseName: course.Name,
				Credits:    course.Credits,
				Entry:      entry,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Entry, items[j].Entry
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return items[i].CourseCode < items[j].CourseCode
	})
	return items, nil
}

// ListTeacherSchedule implements repositories.CatalogReader
func (s *Store) ListTeacherSchedule(_ context.Context, teacherID, termID int64) ([]models.TeachingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.terms[termID]; !ok {
		return nil, repositories.ErrTermNotFound
	}

	var items []models.TeachingItem
	for offeringID, entries := range s.st.schedule {
		o, ok := s.st.offerings[offeringID]
		if !ok || o.TermID != termID {
			continue
		}
		course := s.st.courses[o.CourseID]
		for _, entry := range entries {
			if entry.TeacherID == nil || *entry.TeacherID != teacherID {
				continue
			}
			items = append(items, models.TeachingItem{
				ScheduleItem: models.ScheduleItem{
					OfferingID: offeringID,
					CourseCode: course.Code,
					CourseName: course.Name,
					Credits:    course.Credits,
					Entry:      entry,
				},
				Enrolled: o.EnrolledInner + o.EnrolledOuter,
				Quota:    o.QuotaInner + o.QuotaOuter,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Entry, items[j].Entry
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if items[i].CourseCode != items[j].CourseCode {
			return items[i].CourseCode < items[j].CourseCode
		}
		return a.ID < b.ID
	})
	return items, nil
}

// ListOfferingRoster implements repositories.CatalogReader
func (s *Store) ListOfferingRoster(_ context.Context, offeringID int64) ([]models.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.offerings[offeringID]; !ok {
		return nil, repositories.ErrOfferingNotFound
	}

	var roster []models.RosterEntry
	for k, e := range s.st.enrollments {
		if k.offeringID != offeringID {
			continue
		}
		st := s.st.students[k.studentID]
		roster = append(roster, models.RosterEntry{
			StudentID:      st.ID,
			StudentNumber:  st.StudentNumber,
			Name:           st.Name,
			Classification: e.Classification,
			EnrollTime:     e.EnrollTime,
		})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].StudentNumber < roster[j].StudentNumber })
	return roster, nil
}

// FindQuotaDrift implements repositories.QuotaAuditReader
func (s *Store) FindQuotaDrift(_ context.Context) ([]models.QuotaDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counted := make(map[int64]*[2]int)
	for k, e := range s.st.enrollments {
		c, ok := counted[k.offeringID]
		if !ok {
			c = new([2]int)
			counted[k.offeringID] = c
		}
		if e.Classification == models.ClassificationInner {
			c[0]++
		} else {
			c[1]++
		}
	}

	var drifts []models.QuotaDrift
	for id, o := range s.st.offerings {
		var inner, outer int
		if c, ok := counted[id]; ok {
			inner, outer = c[0], c[1]
		}
		if inner != o.EnrolledInner || outer != o.EnrolledOuter {
			drifts = append(drifts, models.QuotaDrift{
				OfferingID:   id,
				StoredInner:  o.EnrolledInner,
				StoredOuter:  o.EnrolledOuter,
				CountedInner: inner,
				CountedOuter: outer,
			})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].OfferingID < drifts[j].OfferingID })
	return drifts, nil
}
