package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core/fee"
)

func testReceipt() fee.Receipt {
	paid := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	return fee.Receipt{
		SchoolName:     "Escola São João",
		FeeID:          42,
		IssueDate:      time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC),
		PaymentDate:    &paid,
		StudentName:    "João Conceição",
		GuardianName:   "Maria Conceição",
		Month:          "March",
		Year:           2024,
		Amount:         decimal.RequireFromString("250"),
		CurrencySymbol: "R$",
	}
}

func TestRender(t *testing.T) {
	r := testReceipt()
	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().Render(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	t.Run("without optional relations", func(t *testing.T) {
		r.GuardianName = ""
		r.PaymentDate = nil
		buf.Reset()
		require.NoError(t, NewPDFRenderer().Render(&buf, r))
		assert.NotZero(t, buf.Len())
	})
}

func TestLines(t *testing.T) {
	r := testReceipt()
	lines := Lines(r)
	assert.Equal(t, [2]string{"Payment ID:", "42"}, lines[0])
	assert.Equal(t, [2]string{"Payment date:", "05/03/2024"}, lines[2])
	assert.Equal(t, [2]string{"Guardian:", "Maria Conceição"}, lines[4])
	assert.Equal(t, [2]string{"Reference:", "March/2024"}, lines[5])
	assert.Equal(t, [2]string{"Amount:", "R$ 250.00"}, lines[6])

	r.GuardianName = ""
	r.PaymentDate = nil
	lines = Lines(r)
	assert.Equal(t, PayDatePlaceholder, lines[2][1])
	assert.Equal(t, GuardianPlaceholder, lines[4][1])
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name    string
		month   string
		student string
		want    string
	}{
		{"accents", "March", "João Conceição", "receipt_march_joao_conceicao.pdf"},
		{"punctuation", "April", "  Ana-Maria O'Neil ", "receipt_april_ana_maria_o_neil.pdf"},
		{"empty name", "May", "", "receipt_may_student.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(fee.Receipt{Month: tt.month, StudentName: tt.student}))
		})
	}
}
