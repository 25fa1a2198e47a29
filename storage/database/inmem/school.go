package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func matches(filter *school.QueryFilter, name string) bool {
	return filter == nil || filter.Search == "" || contains(name, filter.Search)
}

// Guardians

func (repo *schoolRepository) CreateGuardian(_ context.Context, g school.Guardian, _ ...core.DBExecutor) (school.Guardian, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g.ID = repo.db.nextID("guardians")
	repo.db.guardians[g.ID] = &g
	return g, nil
}

func (repo *schoolRepository) guardians() []school.Guardian {
	guardians := make([]school.Guardian, 0, len(repo.db.guardians))
	for _, g := range repo.db.guardians {
		guardians = append(guardians, *g)
	}
	sort.Slice(guardians, func(i, j int) bool { return guardians[i].ID < guardians[j].ID })
	return guardians
}

func (repo *schoolRepository) QueryGuardians(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]school.Guardian, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	guardians := make([]school.Guardian, 0)
	for _, g := range repo.guardians() {
		if matches(filter, g.Name) {
			guardians = append(guardians, g)
		}
	}
	order(guardians, ordering, func(i, j int, field string) int {
		a, b := guardians[i], guardians[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "relation":
			return cmpStr(a.Relation, b.Relation)
		}
		return 0
	})
	return guardians, nil
}

func (repo *schoolRepository) GetGuardian(_ context.Context, id int, _ ...core.DBExecutor) (school.Guardian, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.guardians[id]; ok {
		return *g, nil
	}
	return school.Guardian{}, school.ErrGuardianNotFound
}

func (repo *schoolRepository) FindGuardianByName(_ context.Context, name string, _ ...core.DBExecutor) (school.Guardian, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	name = core.CleanName(name)
	for _, g := range repo.guardians() {
		if strings.EqualFold(core.CleanName(g.Name), name) {
			return g, nil
		}
	}
	return school.Guardian{}, school.ErrGuardianNotFound
}

func (repo *schoolRepository) UpdateGuardian(_ context.Context, g school.Guardian, _ ...core.DBExecutor) (school.Guardian, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.guardians[g.ID]; !ok {
		return school.Guardian{}, school.ErrGuardianNotFound
	}
	repo.db.guardians[g.ID] = &g
	return g, nil
}

func (repo *schoolRepository) DeleteGuardian(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.guardians[id]; !ok {
		return school.ErrGuardianNotFound
	}
	delete(repo.db.guardians, id)
	for _, s := range repo.db.students {
		if s.GuardianID != nil && *s.GuardianID == id {
			s.GuardianID = nil
		}
	}
	return nil
}

// Students

// student returns a copy of s with its guardian name. The lock must be held.
func (repo *schoolRepository) student(s *school.Student) school.Student {
	cp := *s
	cp.GuardianID = copyInt(s.GuardianID)
	cp.GuardianName = ""
	if cp.GuardianID != nil {
		if g, ok := repo.db.guardians[*cp.GuardianID]; ok {
			cp.GuardianName = g.Name
		}
	}
	return cp
}

func (repo *schoolRepository) checkGuardian(s school.Student) error {
	if s.GuardianID == nil {
		return nil
	}
	if _, ok := repo.db.guardians[*s.GuardianID]; !ok {
		return school.ErrGuardianNotFound
	}
	return nil
}

func (repo *schoolRepository) CreateStudent(_ context.Context, s school.Student, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkGuardian(s); err != nil {
		return school.Student{}, err
	}
	s.ID = repo.db.nextID("students")
	s.GuardianID = copyInt(s.GuardianID)
	repo.db.students[s.ID] = &s
	return repo.student(&s), nil
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if !matches(filter, s.Name) {
			continue
		}
		if filter != nil && filter.GuardianID != 0 && (s.GuardianID == nil || *s.GuardianID != filter.GuardianID) {
			continue
		}
		students = append(students, repo.student(s))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })

	order(students, ordering, func(i, j int, field string) int {
		a, b := students[i], students[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "class_name":
			return cmpStr(a.ClassName, b.ClassName)
		case "guardian_name":
			return cmpStr(a.GuardianName, b.GuardianName)
		}
		return 0
	})
	return students, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return repo.student(s), nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) CountStudents(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.students), nil
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, s school.Student, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[s.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	if err := repo.checkGuardian(s); err != nil {
		return school.Student{}, err
	}
	s.GuardianID = copyInt(s.GuardianID)
	repo.db.students[s.ID] = &s
	return repo.student(&s), nil
}

func (repo *schoolRepository) DeleteStudent(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return school.ErrStudentNotFound
	}
	delete(repo.db.students, id)
	for feeID, f := range repo.db.fees {
		if f.StudentID == id {
			delete(repo.db.fees, feeID)
		}
	}
	return nil
}

// Teachers

func (repo *schoolRepository) CreateTeacher(_ context.Context, t school.Teacher, _ ...core.DBExecutor) (school.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t.ID = repo.db.nextID("teachers")
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *schoolRepository) QueryTeachers(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		if matches(filter, t.Name) {
			teachers = append(teachers, *t)
		}
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })

	order(teachers, ordering, func(i, j int, field string) int {
		a, b := teachers[i], teachers[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "subject":
			return cmpStr(a.Subject, b.Subject)
		}
		return 0
	})
	return teachers, nil
}

func (repo *schoolRepository) GetTeacher(_ context.Context, id int, _ ...core.DBExecutor) (school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.teachers[id]; ok {
		return *t, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) UpdateTeacher(_ context.Context, t school.Teacher, _ ...core.DBExecutor) (school.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[t.ID]; !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *schoolRepository) DeleteTeacher(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[id]; !ok {
		return school.ErrTeacherNotFound
	}
	delete(repo.db.teachers, id)
	for _, c := range repo.db.classes {
		if c.TeacherID != nil && *c.TeacherID == id {
			c.TeacherID = nil
		}
	}
	return nil
}

// Classes

// class returns a copy of c with its teacher name. The lock must be held.
func (repo *schoolRepository) class(c *school.Class) school.Class {
	cp := *c
	cp.TeacherID = copyInt(c.TeacherID)
	cp.TeacherName = ""
	if cp.TeacherID != nil {
		if t, ok := repo.db.teachers[*cp.TeacherID]; ok {
			cp.TeacherName = t.Name
		}
	}
	return cp
}

func (repo *schoolRepository) checkTeacher(c school.Class) error {
	if c.TeacherID == nil {
		return nil
	}
	if _, ok := repo.db.teachers[*c.TeacherID]; !ok {
		return school.ErrTeacherNotFound
	}
	return nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, c school.Class, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkTeacher(c); err != nil {
		return school.Class{}, err
	}
	c.ID = repo.db.nextID("classes")
	c.TeacherID = copyInt(c.TeacherID)
	repo.db.classes[c.ID] = &c
	return repo.class(&c), nil
}

func (repo *schoolRepository) QueryClasses(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		if matches(filter, c.Name) {
			classes = append(classes, repo.class(c))
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })

	order(classes, ordering, func(i, j int, field string) int {
		a, b := classes[i], classes[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "year":
			return cmpInt(a.Year, b.Year)
		case "teacher_name":
			return cmpStr(a.TeacherName, b.TeacherName)
		}
		return 0
	})
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id int, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return repo.class(c), nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) UpdateClass(_ context.Context, c school.Class, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[c.ID]; !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	if err := repo.checkTeacher(c); err != nil {
		return school.Class{}, err
	}
	c.TeacherID = copyInt(c.TeacherID)
	repo.db.classes[c.ID] = &c
	return repo.class(&c), nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	delete(repo.db.classes, id)
	return nil
}
