package school

import (
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escola/core"
)

type Guardian struct {
	ID        int
	Name      string
	CPF       string // national id
	Phone     string
	Relation  string
	Email     string
	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC
}

// Address returns the guardian's mail address, if any.
func (g Guardian) Address() (mail.Address, bool) {
	if g.Email == "" {
		return mail.Address{}, false
	}
	return mail.Address{Name: g.Name, Address: g.Email}, true
}

type Student struct {
	ID           int
	Name         string
	BirthDate    *time.Time
	ClassName    string
	GuardianID   *int
	GuardianName string // read-only
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Teacher struct {
	ID        int
	Name      string
	Subject   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Class struct {
	ID          int
	Name        string
	Year        int
	TeacherID   *int
	TeacherName string // read-only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GuardianRef references a guardian either by ID or by name.
type GuardianRef struct {
	ID   int
	Name string
}

// NewGuardian contains information needed to create a new Guardian.
type NewGuardian struct {
	Name     string `form:"name" validate:"required,notblank"`
	CPF      string `form:"cpf" validate:"omitempty,max=20"`
	Phone    string `form:"phone" validate:"omitempty,max=30"`
	Relation string `form:"relation" validate:"omitempty,max=50"`
	Email    string `form:"email" validate:"omitempty,email"`
}

func (ng *NewGuardian) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanName(ng.Name)
	ng.CPF = core.CleanString(ng.CPF)
	ng.Phone = core.CleanString(ng.Phone)
	ng.Relation = core.CleanString(ng.Relation)
	ng.Email = core.CleanString(ng.Email, true /* lower */)
	return validate.Struct(ng)
}

// UpdateGuardian replaces the editable fields of a Guardian.
type UpdateGuardian struct {
	NewGuardian
}

// NewStudent contains information needed to create a new Student.
// The guardian is either picked by GuardianID or found-or-created by GuardianName.
type NewStudent struct {
	Name         string `form:"name" validate:"required,notblank"`
	BirthDate    string `form:"birth_date" validate:"omitempty,isodate"`
	ClassName    string `form:"class_name" validate:"omitempty,max=100"`
	GuardianID   int    `form:"guardian_id" validate:"omitempty,min=1"`
	GuardianName string `form:"guardian_name" validate:"omitempty,max=200"`

	birthDate *time.Time
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.BirthDate = core.CleanString(ns.BirthDate)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.GuardianName = core.CleanName(ns.GuardianName)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	ns.birthDate = nil
	if ns.BirthDate != "" {
		bd, err := core.ParseDate(ns.BirthDate, time.UTC)
		if err != nil {
			return core.NewFieldError("birth_date", "enter a valid date (YYYY-MM-DD)")
		}
		ns.birthDate = &bd
	}
	return nil
}

func (ns NewStudent) guardianRef() GuardianRef {
	return GuardianRef{ID: ns.GuardianID, Name: ns.GuardianName}
}

// UpdateStudent replaces the editable fields of a Student.
// An empty guardian reference detaches the student from its guardian.
type UpdateStudent struct {
	NewStudent
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Name    string `form:"name" validate:"required,notblank"`
	Subject string `form:"subject" validate:"omitempty,max=100"`
	Phone   string `form:"phone" validate:"omitempty,max=30"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Subject = core.CleanString(nt.Subject)
	nt.Phone = core.CleanString(nt.Phone)
	return validate.Struct(nt)
}

type UpdateTeacher struct {
	NewTeacher
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `form:"name" validate:"required,notblank"`
	Year      int    `form:"year" validate:"required,min=1900,max=2100"`
	TeacherID int    `form:"teacher_id" validate:"omitempty,min=1"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

func (nc NewClass) teacherID() *int {
	if nc.TeacherID <= 0 {
		return nil
	}
	id := nc.TeacherID
	return &id
}

type UpdateClass struct {
	NewClass
}

// QueryFilter is shared by the guardian, student, teacher & class listings.
type QueryFilter struct {
	// Search does a case-insensitive match on names.
	Search string
	// GuardianID only applies to students.
	GuardianID int
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
