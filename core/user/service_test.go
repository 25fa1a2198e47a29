package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/testutil"
)

const strongPwd = "Xq7!mzpw2#"

func fieldErrors(t *testing.T, err error, env *testutil.Env) map[string]string {
	t.Helper()
	err = core.TranslateValidationErrors(err, env.Translator)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want a ValidationError, got %T: %v", err, err)
	flds := make(map[string]string)
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	testutil.CreateUser(t, env.UserRepo, "Taken", "taken", "", user.RoleSecretary, true)

	valid := user.NewUser{Name: " Director ", Username: " Director ", Role: "DIRECTOR", Password: strongPwd, PasswordConfirm: strongPwd}
	require.NoError(t, valid.Validate(ctx, env.Validate, env.UserSvc))
	assert.Equal(t, "Director", valid.Name)
	assert.Equal(t, "director", valid.Username)
	assert.Equal(t, user.RoleDirector, valid.Role)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
		wantMsg   string
	}{
		{
			name:      "invalid role",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: "janitor", Password: strongPwd, PasswordConfirm: strongPwd},
			wantField: "role", wantMsg: "invalid role",
		},
		{
			name:      "too short",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: user.RoleTeacher, Password: "a1!", PasswordConfirm: "a1!"},
			wantField: "password", wantMsg: "password must contain at least 8 characters",
		},
		{
			name:      "whitespace",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: user.RoleTeacher, Password: "Xq7 mzpw2#", PasswordConfirm: "Xq7 mzpw2#"},
			wantField: "password", wantMsg: "password must not contain whitespace",
		},
		{
			name:      "all numeric",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: user.RoleTeacher, Password: "12345678", PasswordConfirm: "12345678"},
			wantField: "password", wantMsg: "password cannot be entirely numeric",
		},
		{
			name:      "letters only",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: user.RoleTeacher, Password: "qwertyuiop", PasswordConfirm: "qwertyuiop"},
			wantField: "password", wantMsg: "password must contain at least 1 letter and 1 digit or special character",
		},
		{
			name:      "similar to name",
			nu:        user.NewUser{Name: "Ana Souza", Username: "asouza", Role: user.RoleTeacher, Password: "anasouza1", PasswordConfirm: "anasouza1"},
			wantField: "password", wantMsg: "password cannot be similar to user attributes",
		},
		{
			name:      "confirmation mismatch",
			nu:        user.NewUser{Name: "Ana", Username: "ana", Role: user.RoleTeacher, Password: strongPwd, PasswordConfirm: "other"},
			wantField: "password_confirm",
		},
		{
			name:      "username taken",
			nu:        user.NewUser{Name: "Ana", Username: "TAKEN", Role: user.RoleTeacher, Password: strongPwd, PasswordConfirm: strongPwd},
			wantField: "username", wantMsg: user.ErrUserExists.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := tt.nu
			flds := fieldErrors(t, nu.Validate(ctx, env.Validate, env.UserSvc), env)
			if assert.Contains(t, flds, tt.wantField) && tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, flds[tt.wantField])
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	active := testutil.CreateUser(t, env.UserRepo, "Secretary", "secretary", strongPwd, user.RoleSecretary, true)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone", strongPwd, user.RoleTeacher, false)

	_, err := env.UserSvc.Authenticate(ctx, "nobody", strongPwd)
	assert.Equal(t, user.ErrAuthenticationFailed, err)

	_, err = env.UserSvc.Authenticate(ctx, "secretary", "wrong-pwd-1")
	assert.Equal(t, user.ErrAuthenticationFailed, err)

	_, err = env.UserSvc.Authenticate(ctx, "gone", strongPwd)
	assert.Equal(t, user.ErrAccountDeactivated, err)

	usr, err := env.UserSvc.Authenticate(ctx, " SECRETARY ", strongPwd)
	require.NoError(t, err)
	assert.Equal(t, active.ID, usr.ID)
	assert.Equal(t, now, usr.LastLogin)
}

func TestService_HasDirector(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	ok, err := env.UserSvc.HasDirector(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	testutil.CreateUser(t, env.UserRepo, "Old director", "old", "", user.RoleDirector, false)
	ok, _ = env.UserSvc.HasDirector(ctx)
	assert.False(t, ok)

	testutil.CreateUser(t, env.UserRepo, "Director", "director", "", user.RoleDirector, true)
	ok, _ = env.UserSvc.HasDirector(ctx)
	assert.True(t, ok)
}

func TestService_UpdateAndSetPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", strongPwd, user.RoleTeacher, true)

	inactive := false
	uu := user.UpdateUser{Role: user.RoleSecretary, IsActive: &inactive}
	require.NoError(t, uu.Validate(usr, env.Validate))
	updated, err := env.UserSvc.Update(ctx, usr.ID, uu)
	require.NoError(t, err)
	assert.Equal(t, "Teacher", updated.Name)
	assert.Equal(t, user.RoleSecretary, updated.Role)
	assert.False(t, updated.IsActive)
	assert.NoError(t, updated.CheckPassword(strongPwd))

	_, err = env.UserSvc.SetPassword(ctx, "teacher", "N3w-p4ss!")
	require.NoError(t, err)
	refreshed, err := env.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("N3w-p4ss!"))
	assert.Error(t, refreshed.CheckPassword(strongPwd))

	_, err = env.UserSvc.SetPassword(ctx, "nobody", "N3w-p4ss!")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	director := testutil.CreateUser(t, env.UserRepo, "Director", "director", "", user.RoleDirector, true)
	secretary := testutil.CreateUser(t, env.UserRepo, "Secretary", "secretary", "", user.RoleSecretary, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "", user.RoleTeacher, true)

	_, err := env.UserSvc.Delete(ctx, secretary, teacher.ID)
	assert.True(t, core.IsPermissionDenied(err))

	_, err = env.UserSvc.Delete(ctx, director, director.ID, teacher.ID)
	assert.True(t, core.IsPermissionDenied(err))

	n, err := env.UserSvc.Delete(ctx, director, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = env.UserSvc.GetByID(ctx, teacher.ID)
	assert.Equal(t, user.ErrNotFound, err)
}
