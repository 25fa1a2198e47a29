package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/school"
)

type (
	guardianRow struct {
		ID        int       `db:"id"`
		Name      string    `db:"name"`
		CPF       string    `db:"cpf"`
		Phone     string    `db:"phone"`
		Relation  string    `db:"relation"`
		Email     string    `db:"email"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	studentRow struct {
		ID           int         `db:"id"`
		Name         string      `db:"name"`
		BirthDate    null.Time   `db:"birth_date"`
		ClassName    string      `db:"class_name"`
		GuardianID   null.Int    `db:"guardian_id"`
		GuardianName null.String `db:"guardian_name"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	teacherRow struct {
		ID        int       `db:"id"`
		Name      string    `db:"name"`
		Subject   string    `db:"subject"`
		Phone     string    `db:"phone"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	classRow struct {
		ID          int         `db:"id"`
		Name        string      `db:"name"`
		Year        int         `db:"year"`
		TeacherID   null.Int    `db:"teacher_id"`
		TeacherName null.String `db:"teacher_name"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}
)

const (
	guardianColumns = "id, name, cpf, phone, relation, email, created_at, updated_at"
	studentSelect   = `
		SELECT s.id, s.name, s.birth_date, s.class_name, s.guardian_id, g.name AS guardian_name, s.created_at, s.updated_at
		FROM students s LEFT JOIN guardians g ON g.id = s.guardian_id`
	teacherColumns = "id, name, subject, phone, created_at, updated_at"
	classSelect    = `
		SELECT c.id, c.name, c.year, c.teacher_id, t.name AS teacher_name, c.created_at, c.updated_at
		FROM classes c LEFT JOIN teachers t ON t.id = c.teacher_id`
)

var (
	guardianOrdering = map[string]string{"id": "id", "name": "name", "relation": "relation"}
	studentOrdering  = map[string]string{
		"id": "s.id", "name": "s.name", "class_name": "s.class_name", "guardian_name": "g.name",
	}
	teacherOrdering = map[string]string{"id": "id", "name": "name", "subject": "subject"}
	classOrdering   = map[string]string{"id": "c.id", "name": "c.name", "year": "c.year", "teacher_name": "t.name"}
)

type schoolRepository struct {
	baseRepository
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{baseRepository{exec: exec}}
}

func nullIntFromPtr(p *int) null.Int {
	if p == nil {
		return null.Int{}
	}
	return null.IntFrom(*p)
}

func intPtr(n null.Int) *int {
	if !n.Valid {
		return nil
	}
	v := n.Int
	return &v
}

// execOne runs a write statement that must affect exactly one row.
func execOne(ctx context.Context, e core.DBExecutor, notFound error, msg, q string, args ...interface{}) error {
	res, err := e.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Guardians

func (repo schoolRepository) unboilGuardian(row guardianRow) school.Guardian {
	return school.Guardian{
		ID:        row.ID,
		Name:      row.Name,
		CPF:       row.CPF,
		Phone:     row.Phone,
		Relation:  row.Relation,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo schoolRepository) CreateGuardian(ctx context.Context, g school.Guardian, exec ...core.DBExecutor) (school.Guardian, error) {
	err := sqlx.GetContext(ctx, repo.getExec(exec), &g.ID, `
		INSERT INTO guardians (name, cpf, phone, relation, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		g.Name, g.CPF, g.Phone, g.Relation, g.Email, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if err != nil {
		return school.Guardian{}, errors.Wrap(err, "inserting guardian")
	}
	return g, nil
}

func (repo schoolRepository) QueryGuardians(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Guardian, error) {
	e := repo.getExec(exec)
	w := &where{}
	if filter != nil && filter.Search != "" {
		w.add("name ILIKE ?", like(filter.Search))
	}
	q := "SELECT " + guardianColumns + " FROM guardians" + w.String() + orderBy(ordering, guardianOrdering, "id ASC")

	var rows []guardianRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting guardians")
	}
	guardians := make([]school.Guardian, 0, len(rows))
	for _, row := range rows {
		guardians = append(guardians, repo.unboilGuardian(row))
	}
	return guardians, nil
}

func (repo schoolRepository) GetGuardian(ctx context.Context, id int, exec ...core.DBExecutor) (school.Guardian, error) {
	var row guardianRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, "SELECT "+guardianColumns+" FROM guardians WHERE id = $1", id)
	if err != nil {
		return school.Guardian{}, trapNoRowsErr(err, school.ErrGuardianNotFound, "selecting guardian")
	}
	return repo.unboilGuardian(row), nil
}

func (repo schoolRepository) FindGuardianByName(ctx context.Context, name string, exec ...core.DBExecutor) (school.Guardian, error) {
	var row guardianRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row,
		"SELECT "+guardianColumns+" FROM guardians WHERE LOWER(REGEXP_REPLACE(TRIM(name), '\\s+', ' ', 'g')) = LOWER($1) ORDER BY id ASC LIMIT 1", name)
	if err != nil {
		return school.Guardian{}, trapNoRowsErr(err, school.ErrGuardianNotFound, "selecting guardian by name")
	}
	return repo.unboilGuardian(row), nil
}

func (repo schoolRepository) UpdateGuardian(ctx context.Context, g school.Guardian, exec ...core.DBExecutor) (school.Guardian, error) {
	err := execOne(ctx, repo.getExec(exec), school.ErrGuardianNotFound, "updating guardian", `
		UPDATE guardians SET name = $2, cpf = $3, phone = $4, relation = $5, email = $6, updated_at = $7
		WHERE id = $1`,
		g.ID, g.Name, g.CPF, g.Phone, g.Relation, g.Email, g.UpdatedAt.UTC())
	if err != nil {
		return school.Guardian{}, err
	}
	return g, nil
}

func (repo schoolRepository) DeleteGuardian(ctx context.Context, id int, exec ...core.DBExecutor) error {
	// students.guardian_id is ON DELETE SET NULL
	return execOne(ctx, repo.getExec(exec), school.ErrGuardianNotFound, "deleting guardian",
		"DELETE FROM guardians WHERE id = $1", id)
}

// Students

func (repo schoolRepository) unboilStudent(row studentRow) school.Student {
	s := school.Student{
		ID:           row.ID,
		Name:         row.Name,
		ClassName:    row.ClassName,
		GuardianID:   intPtr(row.GuardianID),
		GuardianName: row.GuardianName.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.BirthDate.Valid {
		bd := row.BirthDate.Time
		s.BirthDate = &bd
	}
	return s
}

func (repo schoolRepository) getStudent(ctx context.Context, e core.DBExecutor, id int) (school.Student, error) {
	var row studentRow
	if err := sqlx.GetContext(ctx, e, &row, studentSelect+" WHERE s.id = $1", id); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrStudentNotFound, "selecting student")
	}
	return repo.unboilStudent(row), nil
}

func (repo schoolRepository) CreateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	e := repo.getExec(exec)
	var id int
	err := sqlx.GetContext(ctx, e, &id, `
		INSERT INTO students (name, birth_date, class_name, guardian_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.Name, null.TimeFromPtr(s.BirthDate), s.ClassName, nullIntFromPtr(s.GuardianID), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.getStudent(ctx, e, id)
}

func (repo schoolRepository) QueryStudents(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Student, error) {
	e := repo.getExec(exec)
	w := &where{}
	if filter != nil {
		if filter.Search != "" {
			w.add("s.name ILIKE ?", like(filter.Search))
		}
		if filter.GuardianID != 0 {
			w.add("s.guardian_id = ?", filter.GuardianID)
		}
	}
	q := studentSelect + w.String() + orderBy(ordering, studentOrdering, "s.id ASC")

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unboilStudent(row))
	}
	return students, nil
}

func (repo schoolRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (school.Student, error) {
	return repo.getStudent(ctx, repo.getExec(exec), id)
}

func (repo schoolRepository) CountStudents(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &n, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	e := repo.getExec(exec)
	err := execOne(ctx, e, school.ErrStudentNotFound, "updating student", `
		UPDATE students SET name = $2, birth_date = $3, class_name = $4, guardian_id = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.Name, null.TimeFromPtr(s.BirthDate), s.ClassName, nullIntFromPtr(s.GuardianID), s.UpdatedAt.UTC())
	if err != nil {
		return school.Student{}, err
	}
	return repo.getStudent(ctx, e, s.ID)
}

func (repo schoolRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	// fees.student_id is ON DELETE CASCADE
	return execOne(ctx, repo.getExec(exec), school.ErrStudentNotFound, "deleting student",
		"DELETE FROM students WHERE id = $1", id)
}

// Teachers

func (repo schoolRepository) unboilTeacher(row teacherRow) school.Teacher {
	return school.Teacher{
		ID:        row.ID,
		Name:      row.Name,
		Subject:   row.Subject,
		Phone:     row.Phone,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	err := sqlx.GetContext(ctx, repo.getExec(exec), &t.ID, `
		INSERT INTO teachers (name, subject, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.Name, t.Subject, t.Phone, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo schoolRepository) QueryTeachers(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Teacher, error) {
	e := repo.getExec(exec)
	w := &where{}
	if filter != nil && filter.Search != "" {
		w.add("name ILIKE ?", like(filter.Search))
	}
	q := "SELECT " + teacherColumns + " FROM teachers" + w.String() + orderBy(ordering, teacherOrdering, "id ASC")

	var rows []teacherRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, repo.unboilTeacher(row))
	}
	return teachers, nil
}

func (repo schoolRepository) GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (school.Teacher, error) {
	var row teacherRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id)
	if err != nil {
		return school.Teacher{}, trapNoRowsErr(err, school.ErrTeacherNotFound, "selecting teacher")
	}
	return repo.unboilTeacher(row), nil
}

func (repo schoolRepository) UpdateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	err := execOne(ctx, repo.getExec(exec), school.ErrTeacherNotFound, "updating teacher",
		"UPDATE teachers SET name = $2, subject = $3, phone = $4, updated_at = $5 WHERE id = $1",
		t.ID, t.Name, t.Subject, t.Phone, t.UpdatedAt.UTC())
	if err != nil {
		return school.Teacher{}, err
	}
	return t, nil
}

func (repo schoolRepository) DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error {
	// classes.teacher_id is ON DELETE SET NULL
	return execOne(ctx, repo.getExec(exec), school.ErrTeacherNotFound, "deleting teacher",
		"DELETE FROM teachers WHERE id = $1", id)
}

// Classes

func (repo schoolRepository) unboilClass(row classRow) school.Class {
	return school.Class{
		ID:          row.ID,
		Name:        row.Name,
		Year:        row.Year,
		TeacherID:   intPtr(row.TeacherID),
		TeacherName: row.TeacherName.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo schoolRepository) getClass(ctx context.Context, e core.DBExecutor, id int) (school.Class, error) {
	var row classRow
	if err := sqlx.GetContext(ctx, e, &row, classSelect+" WHERE c.id = $1", id); err != nil {
		return school.Class{}, trapNoRowsErr(err, school.ErrClassNotFound, "selecting class")
	}
	return repo.unboilClass(row), nil
}

func (repo schoolRepository) CreateClass(ctx context.Context, c school.Class, exec ...core.DBExecutor) (school.Class, error) {
	e := repo.getExec(exec)
	var id int
	err := sqlx.GetContext(ctx, e, &id, `
		INSERT INTO classes (name, year, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Name, c.Year, nullIntFromPtr(c.TeacherID), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return repo.getClass(ctx, e, id)
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Class, error) {
	e := repo.getExec(exec)
	w := &where{}
	if filter != nil && filter.Search != "" {
		w.add("c.name ILIKE ?", like(filter.Search))
	}
	q := classSelect + w.String() + orderBy(ordering, classOrdering, "c.id ASC")

	var rows []classRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.unboilClass(row))
	}
	return classes, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	return repo.getClass(ctx, repo.getExec(exec), id)
}

func (repo schoolRepository) UpdateClass(ctx context.Context, c school.Class, exec ...core.DBExecutor) (school.Class, error) {
	e := repo.getExec(exec)
	err := execOne(ctx, e, school.ErrClassNotFound, "updating class",
		"UPDATE classes SET name = $2, year = $3, teacher_id = $4, updated_at = $5 WHERE id = $1",
		c.ID, c.Name, c.Year, nullIntFromPtr(c.TeacherID), c.UpdatedAt.UTC())
	if err != nil {
		return school.Class{}, err
	}
	return repo.getClass(ctx, e, c.ID)
}

func (repo schoolRepository) DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return execOne(ctx, repo.getExec(exec), school.ErrClassNotFound, "deleting class",
		"DELETE FROM classes WHERE id = $1", id)
}
