package fee_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/testutil"
)

func TestParseMonth(t *testing.T) {
	m, ok := fee.ParseMonth(" march ")
	assert.True(t, ok)
	assert.Equal(t, time.March, m)

	_, ok = fee.ParseMonth("Março")
	assert.False(t, ok)

	assert.Equal(t, "December", fee.MonthLabel(time.December))
	assert.Equal(t, "", fee.MonthLabel(13))
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := fee.QueryFilter{Status: " PAID ", Month: "march"}
	qf.Clean()
	assert.Equal(t, fee.StatusPaid, qf.Status)
	assert.Equal(t, "March", qf.Month)

	qf = fee.QueryFilter{Month: "lol"}
	qf.Clean()
	assert.Equal(t, "", qf.Month)
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	_, translator := testutil.NewValidator()
	err = core.TranslateValidationErrors(err, translator)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want a ValidationError, got %T: %v", err, err)
	flds := make(map[string]string)
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestBulkRequest_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	br := fee.BulkRequest{Month: "march", Year: 2024, Amount: "300", Discount: "50", DueDate: "2024-03-10"}
	require.NoError(t, br.Validate(validate))
	assert.Equal(t, "March", br.Month)

	tests := []struct {
		name      string
		br        fee.BulkRequest
		wantField string
	}{
		{name: "bad month", br: fee.BulkRequest{Month: "Marchh", Year: 2024, Amount: "300", DueDate: "2024-03-10"}, wantField: "month"},
		{name: "bad year", br: fee.BulkRequest{Month: "March", Year: 24, Amount: "300", DueDate: "2024-03-10"}, wantField: "year"},
		{name: "negative amount", br: fee.BulkRequest{Month: "March", Year: 2024, Amount: "-1", DueDate: "2024-03-10"}, wantField: "amount"},
		{name: "bad due date", br: fee.BulkRequest{Month: "March", Year: 2024, Amount: "300", DueDate: "10/03/2024"}, wantField: "due_date"},
		{name: "discount too big", br: fee.BulkRequest{Month: "March", Year: 2024, Amount: "300", Discount: "300.01", DueDate: "2024-03-10"}, wantField: "discount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := tt.br
			assert.Contains(t, validationFields(t, br.Validate(validate)), tt.wantField)
		})
	}
}

func TestYearlyRequest_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name      string
		yr        fee.YearlyRequest
		wantField string
	}{
		{name: "defaults", yr: fee.YearlyRequest{StudentID: 1, Amount: "300"}},
		{name: "full", yr: fee.YearlyRequest{StudentID: 1, Amount: "300", Discount: "300", DueDay: "31", Year: "2024"}},
		{name: "no student", yr: fee.YearlyRequest{Amount: "300"}, wantField: "student_id"},
		{name: "due day 0", yr: fee.YearlyRequest{StudentID: 1, Amount: "300", DueDay: "0"}, wantField: "due_day"},
		{name: "due day 32", yr: fee.YearlyRequest{StudentID: 1, Amount: "300", DueDay: "32"}, wantField: "due_day"},
		{name: "bad year", yr: fee.YearlyRequest{StudentID: 1, Amount: "300", Year: "99999"}, wantField: "year"},
		{name: "negative charge", yr: fee.YearlyRequest{StudentID: 1, Amount: "300", Discount: "350"}, wantField: "discount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yr := tt.yr
			err := yr.Validate(validate, 10, 2024)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, validationFields(t, err), tt.wantField)
		})
	}
}

func TestUpdateFee_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	uf := fee.UpdateFee{Amount: "280", DueDate: "2024-03-10", Status: " PAID "}
	require.NoError(t, uf.Validate(validate))
	assert.Equal(t, fee.StatusPaid, uf.Status)

	uf = fee.UpdateFee{Amount: "280", DueDate: "2024-03-10", Status: "cancelled"}
	assert.Contains(t, validationFields(t, uf.Validate(validate)), "status")
}
