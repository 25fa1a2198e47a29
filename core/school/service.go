package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

var (
	// errors
	ErrGuardianNotFound = core.NewNotFoundError("guardian")
	ErrStudentNotFound  = core.NewNotFoundError("student")
	ErrTeacherNotFound  = core.NewNotFoundError("teacher")
	ErrClassNotFound    = core.NewNotFoundError("class")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateGuardian(ctx context.Context, g Guardian, exec ...core.DBExecutor) (Guardian, error)
		QueryGuardians(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Guardian, error)
		GetGuardian(ctx context.Context, id int, exec ...core.DBExecutor) (Guardian, error)
		// FindGuardianByName returns the lowest-id guardian whose name equals name, ignoring case.
		FindGuardianByName(ctx context.Context, name string, exec ...core.DBExecutor) (Guardian, error)
		UpdateGuardian(ctx context.Context, g Guardian, exec ...core.DBExecutor) (Guardian, error)
		// DeleteGuardian deletes a guardian and detaches its students.
		DeleteGuardian(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		CountStudents(ctx context.Context, exec ...core.DBExecutor) (int, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// DeleteStudent deletes a student along with its fees.
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacher(ctx context.Context, id int, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		// DeleteTeacher deletes a teacher and detaches its classes.
		DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		UpdateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
		txm  core.TxManager
	}
)

func NewService(repo Repository, txm core.TxManager) *Service {
	return &Service{repo: repo, txm: txm}
}

func now() time.Time { return NowFunc().UTC() }

func requireDirector(actor user.User, msg string) error {
	if !actor.IsDirector() {
		return core.NewPermissionError(msg)
	}
	return nil
}

// Guardians

func (svc *Service) CreateGuardian(ctx context.Context, ng NewGuardian) (Guardian, error) {
	t := now()
	return svc.repo.CreateGuardian(ctx, Guardian{
		Name:      core.CleanName(ng.Name),
		CPF:       ng.CPF,
		Phone:     ng.Phone,
		Relation:  ng.Relation,
		Email:     ng.Email,
		CreatedAt: t,
		UpdatedAt: t,
	})
}

func (svc *Service) QueryGuardians(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Guardian, error) {
	return svc.repo.QueryGuardians(ctx, filter, ordering)
}

func (svc *Service) GetGuardian(ctx context.Context, id int) (Guardian, error) {
	return svc.repo.GetGuardian(ctx, id)
}

func (svc *Service) UpdateGuardian(ctx context.Context, id int, ug UpdateGuardian) (Guardian, error) {
	var g Guardian
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if g, err = svc.repo.GetGuardian(ctx, id, exec); err != nil {
			return err
		}
		g.Name = core.CleanName(ug.Name)
		g.CPF = ug.CPF
		g.Phone = ug.Phone
		g.Relation = ug.Relation
		g.Email = ug.Email
		g.UpdatedAt = now()
		g, err = svc.repo.UpdateGuardian(ctx, g, exec)
		return err
	})
	return g, err
}

// DeleteGuardian is director-only: its students lose their guardian.
func (svc *Service) DeleteGuardian(ctx context.Context, actor user.User, id int) error {
	if err := requireDirector(actor, "only the director can delete guardians"); err != nil {
		return err
	}
	return svc.repo.DeleteGuardian(ctx, id)
}

// ResolveOrCreateGuardian returns the guardian referenced by ref:
//   - ref.ID > 0: the guardian must exist
//   - ref.Name not blank: the lowest-id guardian with that name (case-insensitive), created when missing
//   - otherwise: nil
func (svc *Service) ResolveOrCreateGuardian(ctx context.Context, ref GuardianRef, exec ...core.DBExecutor) (*Guardian, error) {
	if ref.ID > 0 {
		g, err := svc.repo.GetGuardian(ctx, ref.ID, exec...)
		if err != nil {
			return nil, err
		}
		return &g, nil
	}

	name := core.CleanName(ref.Name)
	if name == "" {
		return nil, nil
	}
	g, err := svc.repo.FindGuardianByName(ctx, name, exec...)
	switch {
	case err == nil:
		return &g, nil
	case !core.IsNotFound(err):
		return nil, errors.Wrap(err, "finding guardian by name")
	}

	t := now()
	g, err = svc.repo.CreateGuardian(ctx, Guardian{Name: name, CreatedAt: t, UpdatedAt: t}, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "creating guardian")
	}
	return &g, nil
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	var s Student
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		g, err := svc.ResolveOrCreateGuardian(ctx, ns.guardianRef(), exec)
		if err != nil {
			return err
		}
		t := now()
		s = Student{
			Name:      ns.Name,
			BirthDate: ns.birthDate,
			ClassName: ns.ClassName,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if g != nil {
			s.GuardianID = &g.ID
			s.GuardianName = g.Name
		}
		s, err = svc.repo.CreateStudent(ctx, s, exec)
		return err
	})
	return s, err
}

func (svc *Service) QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	var s Student
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if s, err = svc.repo.GetStudent(ctx, id, exec); err != nil {
			return err
		}
		g, err := svc.ResolveOrCreateGuardian(ctx, us.guardianRef(), exec)
		if err != nil {
			return err
		}
		s.Name = us.Name
		s.BirthDate = us.birthDate
		s.ClassName = us.ClassName
		s.GuardianID, s.GuardianName = nil, ""
		if g != nil {
			s.GuardianID = &g.ID
			s.GuardianName = g.Name
		}
		s.UpdatedAt = now()
		s, err = svc.repo.UpdateStudent(ctx, s, exec)
		return err
	})
	return s, err
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	t := now()
	return svc.repo.CreateTeacher(ctx, Teacher{
		Name:      nt.Name,
		Subject:   nt.Subject,
		Phone:     nt.Phone,
		CreatedAt: t,
		UpdatedAt: t,
	})
}

func (svc *Service) QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, ordering)
}

func (svc *Service) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id int, ut UpdateTeacher) (Teacher, error) {
	var t Teacher
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if t, err = svc.repo.GetTeacher(ctx, id, exec); err != nil {
			return err
		}
		t.Name = ut.Name
		t.Subject = ut.Subject
		t.Phone = ut.Phone
		t.UpdatedAt = now()
		t, err = svc.repo.UpdateTeacher(ctx, t, exec)
		return err
	})
	return t, err
}

func (svc *Service) DeleteTeacher(ctx context.Context, actor user.User, id int) error {
	if err := requireDirector(actor, "only the director can delete teachers"); err != nil {
		return err
	}
	return svc.repo.DeleteTeacher(ctx, id)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	var c Class
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		t := now()
		c = Class{Name: nc.Name, Year: nc.Year, CreatedAt: t, UpdatedAt: t}
		if err := svc.setTeacher(ctx, &c, nc.teacherID(), exec); err != nil {
			return err
		}
		var err error
		c, err = svc.repo.CreateClass(ctx, c, exec)
		return err
	})
	return c, err
}

func (svc *Service) setTeacher(ctx context.Context, c *Class, teacherID *int, exec core.DBExecutor) error {
	c.TeacherID, c.TeacherName = nil, ""
	if teacherID == nil {
		return nil
	}
	t, err := svc.repo.GetTeacher(ctx, *teacherID, exec)
	if err != nil {
		return err
	}
	c.TeacherID = &t.ID
	c.TeacherName = t.Name
	return nil
}

func (svc *Service) QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) GetClass(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) UpdateClass(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	var c Class
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.GetClass(ctx, id, exec); err != nil {
			return err
		}
		c.Name = uc.Name
		c.Year = uc.Year
		if err = svc.setTeacher(ctx, &c, uc.teacherID(), exec); err != nil {
			return err
		}
		c.UpdatedAt = now()
		c, err = svc.repo.UpdateClass(ctx, c, exec)
		return err
	})
	return c, err
}

func (svc *Service) DeleteClass(ctx context.Context, actor user.User, id int) error {
	if err := requireDirector(actor, "only the director can delete classes"); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}
