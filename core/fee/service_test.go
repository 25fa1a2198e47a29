package fee_test

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
	appfs "github.com/trezcool/escola/fs"
	emailsvc "github.com/trezcool/escola/services/email"
	"github.com/trezcool/escola/testutil"
)

var today = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

func mockNow(t *testing.T) {
	fee.NowFunc = func() time.Time { return today }
	t.Cleanup(func() { fee.NowFunc = time.Now })
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func yearly(t *testing.T, env *testutil.Env, yr fee.YearlyRequest) fee.GenerationResult {
	t.Helper()
	require.NoError(t, yr.Validate(env.Validate, env.Conf.Fees.DefaultDueDay, env.FeeSvc.CurrentYear()))
	res, err := env.FeeSvc.GenerateYear(context.Background(), yr)
	require.NoError(t, err)
	return res
}

func bulk(t *testing.T, env *testutil.Env, br fee.BulkRequest) fee.GenerationResult {
	t.Helper()
	require.NoError(t, br.Validate(env.Validate))
	res, err := env.FeeSvc.GenerateMonth(context.Background(), br)
	require.NoError(t, err)
	return res
}

func TestService_GenerateYear(t *testing.T) {
	mockNow(t)
	env := testutil.NewEnv()
	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", nil)

	res := yearly(t, env, fee.YearlyRequest{StudentID: s.ID, Amount: "300", Discount: "50", DueDay: "31", Year: "2024"})
	require.Equal(t, 12, res.CreatedCount())
	assert.Equal(t, 0, res.Skipped)

	wantDue := map[string]time.Time{
		"January":  testutil.Date(2024, time.January, 31),
		"February": testutil.Date(2024, time.February, 28),
		"April":    testutil.Date(2024, time.April, 28),
		"December": testutil.Date(2024, time.December, 31),
	}
	for i, f := range res.Created {
		assert.Equal(t, fee.Months[i], f.Month)
		assert.Equal(t, 2024, f.Year)
		assert.True(t, f.Amount.Equal(amount("250")), "amount = %s", f.Amount)
		assert.Equal(t, fee.StatusPending, f.Status)
		assert.Nil(t, f.PaymentDate)
		assert.True(t, f.Generated)
		if want, ok := wantDue[f.Month]; ok {
			assert.Equal(t, want, f.DueDate, f.Month)
		}
	}

	t.Run("re-run is idempotent", func(t *testing.T) {
		res := yearly(t, env, fee.YearlyRequest{StudentID: s.ID, Amount: "999", DueDay: "5", Year: "2024"})
		assert.Equal(t, 0, res.CreatedCount())
		assert.Equal(t, 12, res.Skipped)

		fees, err := env.FeeSvc.Query(context.Background(), &fee.QueryFilter{StudentID: s.ID}, nil)
		require.NoError(t, err)
		assert.Len(t, fees, 12)
	})

	t.Run("defaults to the current year and configured due day", func(t *testing.T) {
		other := testutil.CreateStudent(t, env.SchoolRepo, "Ana", nil)
		res := yearly(t, env, fee.YearlyRequest{StudentID: other.ID, Amount: "100"})
		require.Equal(t, 12, res.CreatedCount())
		assert.Equal(t, today.Year(), res.Created[0].Year)
		assert.Equal(t, testutil.Date(today.Year(), time.January, 10), res.Created[0].DueDate)
	})

	t.Run("unknown student", func(t *testing.T) {
		yr := fee.YearlyRequest{StudentID: 999, Amount: "100"}
		require.NoError(t, yr.Validate(env.Validate, 10, 2024))
		_, err := env.FeeSvc.GenerateYear(context.Background(), yr)
		assert.Equal(t, school.ErrStudentNotFound, err)
	})
}

func TestService_GenerateMonth(t *testing.T) {
	mockNow(t)
	env := testutil.NewEnv()
	ctx := context.Background()
	pedro := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", nil)
	ana := testutil.CreateStudent(t, env.SchoolRepo, "Ana", nil)
	joao := testutil.CreateStudent(t, env.SchoolRepo, "João", nil)

	// a manual fee already bills Ana for March
	nf := fee.NewFee{StudentID: ana.ID, Month: "march", Amount: "300", DueDate: "2024-03-05"}
	require.NoError(t, nf.Validate(env.Validate))
	manual, err := env.FeeSvc.Create(ctx, nf)
	require.NoError(t, err)
	assert.False(t, manual.Generated)
	assert.Equal(t, 2024, manual.Year)

	res := bulk(t, env, fee.BulkRequest{Month: "March", Year: 2024, Amount: "300", Discount: "20", DueDate: "2024-03-10"})
	assert.Equal(t, 2, res.CreatedCount())
	assert.Equal(t, 1, res.Skipped)
	ids := []int{res.Created[0].StudentID, res.Created[1].StudentID}
	assert.Equal(t, []int{pedro.ID, joao.ID}, ids)
	assert.True(t, res.Created[0].Amount.Equal(amount("280")))
	assert.Equal(t, testutil.Date(2024, time.March, 10), res.Created[0].DueDate)

	res = bulk(t, env, fee.BulkRequest{Month: "March", Year: 2024, Amount: "300", DueDate: "2024-03-10"})
	assert.Equal(t, 0, res.CreatedCount())
	assert.Equal(t, 3, res.Skipped)

	// same month of another year is a different bill
	res = bulk(t, env, fee.BulkRequest{Month: "March", Year: 2025, Amount: "300", DueDate: "2025-03-10"})
	assert.Equal(t, 3, res.CreatedCount())

	// manual fees are never de-duplicated
	_, err = env.FeeSvc.Create(ctx, nf)
	require.NoError(t, err)
	fees, err := env.FeeSvc.Query(ctx, &fee.QueryFilter{StudentID: ana.ID, Month: "March", Year: 2024}, nil)
	require.NoError(t, err)
	assert.Len(t, fees, 2)
}

func TestService_GenerateMonth_concurrent(t *testing.T) {
	env := testutil.NewEnv()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		testutil.CreateStudent(t, env.SchoolRepo, name, nil)
	}
	br := fee.BulkRequest{Month: "May", Year: 2024, Amount: "300", DueDate: "2024-05-10"}
	require.NoError(t, br.Validate(env.Validate))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		skipped int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.FeeSvc.GenerateMonth(context.Background(), br)
			assert.NoError(t, err)
			mu.Lock()
			created += res.CreatedCount()
			skipped += res.Skipped
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, created)
	assert.Equal(t, 8*5-5, skipped)
	fees, err := env.FeeSvc.Query(context.Background(), &fee.QueryFilter{Month: "May", Year: 2024}, nil)
	require.NoError(t, err)
	assert.Len(t, fees, 5)
}

func TestService_MarkPaid(t *testing.T) {
	mockNow(t)
	emailsvc.ResetSentMessages()
	env := testutil.NewEnv()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, env.Logger, true)
	ctx := context.Background()

	g := testutil.CreateGuardian(t, env.SchoolRepo, "Maria Souza", "maria@example.com")
	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro Souza", &g)
	f := testutil.CreateFee(t, env.FeeRepo, s, "March", 2024, "250", fee.StatusPending)

	paid, changed, err := env.FeeSvc.MarkPaid(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, fee.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, testutil.Date(2024, time.March, 15), *paid.PaymentDate)

	outbox := emailsvc.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, "maria@example.com", outbox[0].To[0].Address)
	require.Len(t, outbox[0].Attachments, 1)
	assert.Equal(t, "receipt_march_pedro_souza.pdf", outbox[0].Attachments[0].Filename)
	assert.Equal(t, "application/pdf", outbox[0].Attachments[0].ContentType)
	assert.Equal(t, "Payment receipt - March/2024", outbox[0].Subject)
	for _, body := range []string{outbox[0].TextContent, outbox[0].HTMLContent} {
		assert.Contains(t, body, "Hello Maria Souza,")
		assert.Contains(t, body, "Pedro Souza")
		assert.Contains(t, body, "March/2024")
		assert.Contains(t, body, "2024-03-15")
		assert.Contains(t, body, "Escola Test")
	}
	assert.NotContains(t, env.LogOutput.String(), "ParseEmailTemplates")

	// paying again keeps the original payment date
	fee.NowFunc = func() time.Time { return today.AddDate(0, 1, 0) }
	again, changed, err := env.FeeSvc.MarkPaid(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, testutil.Date(2024, time.March, 15), *again.PaymentDate)
	assert.Len(t, emailsvc.Outbox(), 1)

	_, _, err = env.FeeSvc.MarkPaid(ctx, 999)
	assert.Equal(t, fee.ErrNotFound, err)
}

func TestService_MarkPaid_noGuardianEmail(t *testing.T) {
	mockNow(t)
	emailsvc.ResetSentMessages()
	env := testutil.NewEnv()

	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", nil)
	f := testutil.CreateFee(t, env.FeeRepo, s, "April", 2024, "250", fee.StatusPending)
	_, changed, err := env.FeeSvc.MarkPaid(context.Background(), f.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, emailsvc.Outbox())
}

func TestService_Update(t *testing.T) {
	mockNow(t)
	env := testutil.NewEnv()
	ctx := context.Background()
	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", nil)
	f := testutil.CreateFee(t, env.FeeRepo, s, "March", 2024, "300", fee.StatusPaid)
	origPayDate := *f.PaymentDate

	update := func(uf fee.UpdateFee) fee.Fee {
		t.Helper()
		require.NoError(t, uf.Validate(env.Validate))
		updated, err := env.FeeSvc.Update(ctx, f.ID, uf)
		require.NoError(t, err)
		return updated
	}

	// paid -> paid keeps the payment date
	updated := update(fee.UpdateFee{Amount: "280", DueDate: "2024-03-12", Status: "paid"})
	assert.True(t, updated.Amount.Equal(amount("280")))
	assert.Equal(t, testutil.Date(2024, time.March, 12), updated.DueDate)
	assert.Equal(t, origPayDate, *updated.PaymentDate)

	// paid -> pending clears it
	updated = update(fee.UpdateFee{Amount: "280", DueDate: "2024-03-12", Status: "pending"})
	assert.Equal(t, fee.StatusPending, updated.Status)
	assert.Nil(t, updated.PaymentDate)

	// pending -> paid stamps today
	updated = update(fee.UpdateFee{Amount: "280", DueDate: "2024-03-12", Status: "paid"})
	require.NotNil(t, updated.PaymentDate)
	assert.Equal(t, testutil.Date(2024, time.March, 15), *updated.PaymentDate)

	// month, year & student are kept
	assert.Equal(t, "March", updated.Month)
	assert.Equal(t, 2024, updated.Year)
	assert.Equal(t, s.ID, updated.StudentID)
}

func TestService_Receipt(t *testing.T) {
	mockNow(t)
	env := testutil.NewEnv()
	ctx := context.Background()
	s := testutil.CreateStudent(t, env.SchoolRepo, "Pedro Souza", nil)
	pending := testutil.CreateFee(t, env.FeeRepo, s, "March", 2024, "250", fee.StatusPending)
	paid := testutil.CreateFee(t, env.FeeRepo, s, "February", 2024, "250", fee.StatusPaid)

	_, err := env.FeeSvc.Receipt(ctx, pending.ID)
	assert.Equal(t, fee.ErrFeeNotPaid, err)
	_, err = env.FeeSvc.Receipt(ctx, 999)
	assert.True(t, core.IsNotFound(err))

	r, err := env.FeeSvc.Receipt(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.Receipt{
		SchoolName:     env.Conf.SchoolName,
		FeeID:          paid.ID,
		IssueDate:      testutil.Date(2024, time.March, 15),
		PaymentDate:    paid.PaymentDate,
		StudentName:    "Pedro Souza",
		GuardianName:   "",
		Month:          "February",
		Year:           2024,
		Amount:         paid.Amount,
		CurrencySymbol: "R$",
	}, r)

	filename, content, err := env.FeeSvc.ReceiptPDF(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt_february_pedro_souza.pdf", filename)
	assert.Equal(t, "%PDF-", string(content[:5]))
}

func TestService_Summary(t *testing.T) {
	env := testutil.NewEnv()
	s1 := testutil.CreateStudent(t, env.SchoolRepo, "Pedro", nil)
	s2 := testutil.CreateStudent(t, env.SchoolRepo, "Ana", nil)
	testutil.CreateFee(t, env.FeeRepo, s1, "March", 2024, "250", fee.StatusPaid)
	testutil.CreateFee(t, env.FeeRepo, s1, "April", 2024, "250", fee.StatusPending)
	testutil.CreateFee(t, env.FeeRepo, s2, "April", 2024, "300.50", fee.StatusPending)

	sum, err := env.FeeSvc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Students)
	assert.Equal(t, 1, sum.PaidCount)
	assert.True(t, sum.PaidTotal.Equal(amount("250")))
	assert.Equal(t, 2, sum.PendingCount)
	assert.True(t, sum.PendingTotal.Equal(amount("550.50")))

	fees, err := env.FeeSvc.Query(context.Background(), &fee.QueryFilter{Status: fee.StatusPending}, nil)
	require.NoError(t, err)
	assert.True(t, fee.Total(fees).Equal(amount("550.50")))
}
