package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/storage/database"
	sqlxrepos "github.com/trezcool/escola/storage/database/sqlx"
	"github.com/trezcool/escola/testutil"
)

type repos struct {
	users   user.Repository
	schools school.Repository
	fees    fee.Repository
	feeSvc  *fee.Service
	schSvc  *school.Service
}

func setup(t *testing.T) repos {
	db := testutil.PrepareDB(t)
	conf := testutil.Config()
	txm := database.NewTxManager(db)
	r := repos{
		users:   sqlxrepos.NewUserRepository(db),
		schools: sqlxrepos.NewSchoolRepository(db),
		fees:    sqlxrepos.NewFeeRepository(db),
	}
	env := testutil.NewEnv()
	r.schSvc = school.NewService(r.schools, txm)
	r.feeSvc = fee.NewService(r.fees, r.schools, txm, conf, env.Logger, nil, nil)
	return r
}

func TestUserRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, r.users, "Ana", "ana", "Xq7!mzpw2#", user.RoleDirector, true)
	got, err := r.users.GetUser(ctx, user.GetFilter{Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Xq7!mzpw2#"))

	assert.Equal(t, user.ErrUserExists, r.users.CheckUsernameUniqueness(ctx, "ana", nil))
	assert.NoError(t, r.users.CheckUsernameUniqueness(ctx, "ana", []user.User{usr}))

	_, err = r.users.GetUser(ctx, user.GetFilter{ID: 999})
	assert.True(t, core.IsNotFound(err))

	n, err := r.users.DeleteUsersByID(ctx, []int{usr.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSchoolRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	g := testutil.CreateGuardian(t, r.schools, "Maria Souza", "maria@example.com")
	found, err := r.schools.FindGuardianByName(ctx, "maria souza")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)

	spaced := testutil.CreateGuardian(t, r.schools, " Ana   Lima ", "")
	found, err = r.schools.FindGuardianByName(ctx, "ana lima")
	require.NoError(t, err)
	assert.Equal(t, spaced.ID, found.ID)

	s := testutil.CreateStudent(t, r.schools, "Pedro", &g)
	got, err := r.schools.GetStudent(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GuardianID)
	assert.Equal(t, "Maria Souza", got.GuardianName)

	students, err := r.schools.QueryStudents(ctx, &school.QueryFilter{Search: "ped"}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	// deleting the guardian detaches the student
	require.NoError(t, r.schools.DeleteGuardian(ctx, g.ID))
	got, err = r.schools.GetStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GuardianID)

	n, err := r.schools.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFeeRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	pedro := testutil.CreateStudent(t, r.schools, "Pedro", nil)
	ana := testutil.CreateStudent(t, r.schools, "Ana", nil)

	f := fee.Fee{
		StudentID: pedro.ID,
		Month:     "March",
		Year:      2024,
		Amount:    decimal.RequireFromString("280.50"),
		Status:    fee.StatusPending,
		DueDate:   testutil.Date(2024, time.March, 10),
		Generated: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	created, ok, err := r.fees.InsertGeneratedFee(ctx, f)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pedro", created.StudentName)
	assert.True(t, created.Amount.Equal(f.Amount))
	assert.Equal(t, f.DueDate, created.DueDate)

	_, ok, err = r.fees.InsertGeneratedFee(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)

	// manual fees may repeat a generated one
	manual := f
	manual.Generated = false
	_, err = r.fees.CreateFee(ctx, manual)
	require.NoError(t, err)

	exists, err := r.fees.FeeExists(ctx, pedro.ID, "March", 2024)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = r.fees.FeeExists(ctx, ana.ID, "March", 2024)
	require.NoError(t, err)
	assert.False(t, exists)

	today := testutil.Date(2024, time.March, 15)
	created.Status = fee.StatusPaid
	created.PaymentDate = &today
	updated, err := r.fees.UpdateFee(ctx, created)
	require.NoError(t, err)
	require.NotNil(t, updated.PaymentDate)
	assert.Equal(t, today, *updated.PaymentDate)

	sum, err := r.fees.SummarizeFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PaidCount)
	assert.Equal(t, 1, sum.PendingCount)

	fees, err := r.fees.QueryFees(ctx, &fee.QueryFilter{Status: fee.StatusPaid}, nil)
	require.NoError(t, err)
	assert.Len(t, fees, 1)

	// deleting the student deletes its fees
	require.NoError(t, r.schools.DeleteStudent(ctx, pedro.ID))
	_, err = r.fees.GetFee(ctx, created.ID)
	assert.Equal(t, fee.ErrNotFound, err)
}

func TestFeeService_concurrentGeneration(t *testing.T) {
	r := setup(t)
	for _, name := range []string{"A", "B", "C"} {
		testutil.CreateStudent(t, r.schools, name, nil)
	}
	env := testutil.NewEnv()
	br := fee.BulkRequest{Month: "May", Year: 2024, Amount: "300", DueDate: "2024-05-10"}
	require.NoError(t, br.Validate(env.Validate))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.feeSvc.GenerateMonth(context.Background(), br)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	fees, err := r.feeSvc.Query(context.Background(), &fee.QueryFilter{Month: "May", Year: 2024}, nil)
	require.NoError(t, err)
	assert.Len(t, fees, 3)
}
