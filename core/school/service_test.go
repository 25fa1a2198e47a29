package school_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/testutil"
)

var (
	director  = user.User{ID: 1, Name: "Director", Username: "director", Role: user.RoleDirector, IsActive: true}
	secretary = user.User{ID: 2, Name: "Secretary", Username: "secretary", Role: user.RoleSecretary, IsActive: true}
)

func TestService_ResolveOrCreateGuardian(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	maria := testutil.CreateGuardian(t, env.SchoolRepo, "Maria Silva", "")
	testutil.CreateGuardian(t, env.SchoolRepo, "MARIA SILVA", "") // duplicate name, higher id

	t.Run("by id", func(t *testing.T) {
		g, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{ID: maria.ID, Name: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, maria.ID, g.ID)
	})
	t.Run("unknown id", func(t *testing.T) {
		_, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{ID: 999})
		assert.Equal(t, school.ErrGuardianNotFound, err)
	})
	t.Run("by name picks the lowest id", func(t *testing.T) {
		g, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: "  maria   silva "})
		require.NoError(t, err)
		assert.Equal(t, maria.ID, g.ID)
	})
	t.Run("unknown name is created", func(t *testing.T) {
		g, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: " João  Souza "})
		require.NoError(t, err)
		assert.Equal(t, "João Souza", g.Name)

		again, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: "joão souza"})
		require.NoError(t, err)
		assert.Equal(t, g.ID, again.ID)
	})
	t.Run("empty reference", func(t *testing.T) {
		g, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: "   "})
		require.NoError(t, err)
		assert.Nil(t, g)
	})
}

func TestService_GuardianNamesMatchResolution(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	ng := school.NewGuardian{Name: "  Maria   Souza "}
	require.NoError(t, ng.Validate(env.Validate))
	assert.Equal(t, "Maria Souza", ng.Name)
	created, err := env.SchoolSvc.CreateGuardian(ctx, ng)
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", created.Name)

	g, err := env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: "maria souza"})
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, created.ID, g.ID)

	ug := school.UpdateGuardian{NewGuardian: school.NewGuardian{Name: "Maria \t Lima"}}
	require.NoError(t, ug.Validate(env.Validate))
	updated, err := env.SchoolSvc.UpdateGuardian(ctx, created.ID, ug)
	require.NoError(t, err)
	assert.Equal(t, "Maria Lima", updated.Name)

	g, err = env.SchoolSvc.ResolveOrCreateGuardian(ctx, school.GuardianRef{Name: " MARIA  LIMA"})
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, created.ID, g.ID)
}

func TestService_Students(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	ns := school.NewStudent{Name: " Pedro ", BirthDate: "2015-06-01", ClassName: "3A", GuardianName: "Ana Lima"}
	require.NoError(t, ns.Validate(env.Validate))
	s, err := env.SchoolSvc.CreateStudent(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, "Pedro", s.Name)
	assert.Equal(t, "Ana Lima", s.GuardianName)
	require.NotNil(t, s.GuardianID)
	require.NotNil(t, s.BirthDate)
	assert.Equal(t, testutil.Date(2015, time.June, 1), *s.BirthDate)

	bad := school.NewStudent{Name: "x", BirthDate: "01/06/2015"}
	assert.Error(t, bad.Validate(env.Validate))

	_, err = env.SchoolSvc.CreateStudent(ctx, school.NewStudent{Name: "Lost", GuardianID: 999})
	assert.True(t, core.IsNotFound(err))

	// empty guardian reference detaches the guardian
	us := school.UpdateStudent{NewStudent: school.NewStudent{Name: "Pedro Lima"}}
	require.NoError(t, us.Validate(env.Validate))
	s, err = env.SchoolSvc.UpdateStudent(ctx, s.ID, us)
	require.NoError(t, err)
	assert.Equal(t, "Pedro Lima", s.Name)
	assert.Nil(t, s.GuardianID)
	assert.Nil(t, s.BirthDate)

	students, err := env.SchoolSvc.QueryStudents(ctx, &school.QueryFilter{Search: "LIMA"}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	// deleting a student deletes its fees
	testutil.CreateFee(t, env.FeeRepo, s, "March", 2024, "300", fee.StatusPending)
	require.NoError(t, env.SchoolSvc.DeleteStudent(ctx, s.ID))
	fees, err := env.FeeSvc.Query(ctx, &fee.QueryFilter{StudentID: s.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, fees)
}

func TestService_DeleteGuardian(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	g := testutil.CreateGuardian(t, env.SchoolRepo, "Maria", "maria@example.com")
	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", &g)

	err := env.SchoolSvc.DeleteGuardian(ctx, secretary, g.ID)
	assert.True(t, core.IsPermissionDenied(err))

	require.NoError(t, env.SchoolSvc.DeleteGuardian(ctx, director, g.ID))
	_, err = env.SchoolSvc.GetGuardian(ctx, g.ID)
	assert.Equal(t, school.ErrGuardianNotFound, err)

	s, err = env.SchoolSvc.GetStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, s.GuardianID)
	assert.Empty(t, s.GuardianName)
}

func TestService_TeachersAndClasses(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	nt := school.NewTeacher{Name: " Carla ", Subject: "Math"}
	require.NoError(t, nt.Validate(env.Validate))
	tc, err := env.SchoolSvc.CreateTeacher(ctx, nt)
	require.NoError(t, err)
	assert.Equal(t, "Carla", tc.Name)

	nc := school.NewClass{Name: "3A", Year: 2024, TeacherID: tc.ID}
	require.NoError(t, nc.Validate(env.Validate))
	c, err := env.SchoolSvc.CreateClass(ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "Carla", c.TeacherName)

	_, err = env.SchoolSvc.CreateClass(ctx, school.NewClass{Name: "3B", Year: 2024, TeacherID: 999})
	assert.Equal(t, school.ErrTeacherNotFound, err)

	badYear := school.NewClass{Name: "3C", Year: 1800}
	assert.Error(t, badYear.Validate(env.Validate))

	ut := school.UpdateTeacher{NewTeacher: school.NewTeacher{Name: "Carla Dias", Subject: "Physics"}}
	tc, err = env.SchoolSvc.UpdateTeacher(ctx, tc.ID, ut)
	require.NoError(t, err)
	c, err = env.SchoolSvc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carla Dias", c.TeacherName)

	assert.True(t, core.IsPermissionDenied(env.SchoolSvc.DeleteTeacher(ctx, secretary, tc.ID)))
	require.NoError(t, env.SchoolSvc.DeleteTeacher(ctx, director, tc.ID))
	c, err = env.SchoolSvc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, c.TeacherID)

	assert.True(t, core.IsPermissionDenied(env.SchoolSvc.DeleteClass(ctx, secretary, c.ID)))
	require.NoError(t, env.SchoolSvc.DeleteClass(ctx, director, c.ID))
	_, err = env.SchoolSvc.GetClass(ctx, c.ID)
	assert.Equal(t, school.ErrClassNotFound, err)
}
