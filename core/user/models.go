package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/escola/core"
)

// Roles
const (
	RoleDirector  = "director"
	RoleSecretary = "secretary"
	RoleTeacher   = "teacher"
)

var (
	AllRoles = []string{RoleDirector, RoleSecretary, RoleTeacher}

	Roles = []Role{
		{Name: "Director", Value: RoleDirector},
		{Name: "Secretary", Value: RoleSecretary},
		{Name: "Teacher", Value: RoleTeacher},
	}
)

type Role struct {
	Name  string
	Value string
}

type User struct {
	ID           int
	Name         string
	Username     string
	Role         string
	IsActive     bool
	PasswordHash []byte
	CreatedAt    time.Time // UTC
	UpdatedAt    time.Time // UTC
	LastLogin    time.Time // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// IsDirector reports whether u may perform director-only actions.
func (u User) IsDirector() bool {
	return u.IsActive && u.Role == RoleDirector
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `form:"name" validate:"required,notblank"`
	Username        string `form:"username" validate:"required,min=3,alphanum_"`
	Role            string `form:"role" validate:"required,role"`
	Password        string `form:"password" validate:"required"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `form:"name"`
	Role            string `form:"role" validate:"omitempty,role"`
	IsActive        *bool  `form:"is_active"`
	Password        string `form:"password" validate:"omitempty"`
	PasswordConfirm string `form:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}
	return validate.Struct(uu)
}

type GetFilter struct {
	ID       int
	Username string
}

type QueryFilter struct {
	Search   string
	Role     string
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
