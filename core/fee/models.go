package fee

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
)

// Statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

var AllStatuses = []string{StatusPending, StatusPaid}

// Fee is one billing instance for one student for one month.
// PaymentDate is set iff Status is StatusPaid.
type Fee struct {
	ID          int
	StudentID   int
	StudentName string // read-only
	Month       string
	Year        int
	Amount      decimal.Decimal
	Status      string
	DueDate     time.Time  // date, UTC midnight
	PaymentDate *time.Time // date, UTC midnight
	Generated   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (f Fee) IsPaid() bool { return f.Status == StatusPaid }

func (f *Fee) markPaid(today time.Time) {
	f.Status = StatusPaid
	f.PaymentDate = &today
}

func (f *Fee) markPending() {
	f.Status = StatusPending
	f.PaymentDate = nil
}

// NewFee contains information needed to create a single Fee.
type NewFee struct {
	StudentID int    `form:"student_id" validate:"required,min=1"`
	Month     string `form:"month" validate:"required,month"`
	Amount    string `form:"amount" validate:"required,money"`
	DueDate   string `form:"due_date" validate:"required,isodate"`

	amount  decimal.Decimal
	dueDate time.Time
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.Month = core.CleanString(nf.Month)
	nf.Amount = core.CleanString(nf.Amount)
	nf.DueDate = core.CleanString(nf.DueDate)
	if err := validate.Struct(nf); err != nil {
		return err
	}

	m, _ := ParseMonth(nf.Month)
	nf.Month = MonthLabel(m)

	var err error
	if nf.amount, err = core.ParseMoney(nf.Amount); err != nil {
		return core.NewFieldError("amount", err.Error())
	}
	if nf.dueDate, err = core.ParseDate(nf.DueDate, time.UTC); err != nil {
		return core.NewFieldError("due_date", "enter a valid date (YYYY-MM-DD)")
	}
	return nil
}

// charge returns base - discount, a negative result is a ValidationError.
func charge(base, discount decimal.Decimal) (decimal.Decimal, error) {
	c := base.Sub(discount)
	if c.IsNegative() {
		return decimal.Zero, core.NewFieldError("discount", "discount cannot be greater than the amount")
	}
	return c, nil
}

func parseDiscount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := core.ParseMoney(s)
	if err != nil {
		return decimal.Zero, core.NewFieldError("discount", err.Error())
	}
	return d, nil
}

// BulkRequest generates one month's fee for every student.
type BulkRequest struct {
	Month    string `form:"month" validate:"required,month"`
	Year     int    `form:"year" validate:"required,min=1900,max=2100"`
	Amount   string `form:"amount" validate:"required,money"`
	Discount string `form:"discount" validate:"omitempty,money"`
	DueDate  string `form:"due_date" validate:"required,isodate"`

	charge  decimal.Decimal
	dueDate time.Time
}

func (br *BulkRequest) Validate(validate *validator.Validate) error {
	br.Month = core.CleanString(br.Month)
	br.Amount = core.CleanString(br.Amount)
	br.Discount = core.CleanString(br.Discount)
	br.DueDate = core.CleanString(br.DueDate)
	if err := validate.Struct(br); err != nil {
		return err
	}

	m, _ := ParseMonth(br.Month)
	br.Month = MonthLabel(m)

	base, err := core.ParseMoney(br.Amount)
	if err != nil {
		return core.NewFieldError("amount", err.Error())
	}
	discount, err := parseDiscount(br.Discount)
	if err != nil {
		return err
	}
	if br.charge, err = charge(base, discount); err != nil {
		return err
	}
	if br.dueDate, err = core.ParseDate(br.DueDate, time.UTC); err != nil {
		return core.NewFieldError("due_date", "enter a valid date (YYYY-MM-DD)")
	}
	return nil
}

// YearlyRequest generates the twelve monthly fees of one student.
type YearlyRequest struct {
	StudentID int    `form:"student_id" validate:"required,min=1"`
	Amount    string `form:"amount" validate:"required,money"`
	Discount  string `form:"discount" validate:"omitempty,money"`
	DueDay    string `form:"due_day" validate:"omitempty,numeric"`
	Year      string `form:"year" validate:"omitempty,numeric"`

	charge decimal.Decimal
	dueDay int
	year   int
}

// Validate parses the request. defaultDueDay and currentYear are used for the omitted fields.
func (yr *YearlyRequest) Validate(validate *validator.Validate, defaultDueDay, currentYear int) error {
	yr.Amount = core.CleanString(yr.Amount)
	yr.Discount = core.CleanString(yr.Discount)
	yr.DueDay = core.CleanString(yr.DueDay)
	yr.Year = core.CleanString(yr.Year)
	if err := validate.Struct(yr); err != nil {
		return err
	}

	base, err := core.ParseMoney(yr.Amount)
	if err != nil {
		return core.NewFieldError("amount", err.Error())
	}
	discount, err := parseDiscount(yr.Discount)
	if err != nil {
		return err
	}
	if yr.charge, err = charge(base, discount); err != nil {
		return err
	}

	yr.dueDay = defaultDueDay
	if yr.DueDay != "" {
		if yr.dueDay, err = strconv.Atoi(yr.DueDay); err != nil {
			return core.NewFieldError("due_day", "due day must be between 1 and 31")
		}
	}
	if yr.dueDay < 1 || yr.dueDay > 31 {
		return core.NewFieldError("due_day", "due day must be between 1 and 31")
	}

	yr.year = currentYear
	if yr.Year != "" {
		if yr.year, err = strconv.Atoi(yr.Year); err != nil || yr.year < 1900 || yr.year > 2100 {
			return core.NewFieldError("year", "enter a valid year")
		}
	}
	return nil
}

// UpdateFee defines the manually editable fields of a Fee.
type UpdateFee struct {
	Amount  string `form:"amount" validate:"required,money"`
	DueDate string `form:"due_date" validate:"required,isodate"`
	Status  string `form:"status" validate:"required,oneof=pending paid"`

	amount  decimal.Decimal
	dueDate time.Time
}

func (uf *UpdateFee) Validate(validate *validator.Validate) error {
	uf.Amount = core.CleanString(uf.Amount)
	uf.DueDate = core.CleanString(uf.DueDate)
	uf.Status = core.CleanString(uf.Status, true /* lower */)
	if err := validate.Struct(uf); err != nil {
		return err
	}

	var err error
	if uf.amount, err = core.ParseMoney(uf.Amount); err != nil {
		return core.NewFieldError("amount", err.Error())
	}
	if uf.dueDate, err = core.ParseDate(uf.DueDate, time.UTC); err != nil {
		return core.NewFieldError("due_date", "enter a valid date (YYYY-MM-DD)")
	}
	return nil
}

type QueryFilter struct {
	StudentID int
	Status    string
	Month     string
	Year      int
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	m, ok := ParseMonth(qf.Month)
	qf.Month = ""
	if ok {
		qf.Month = MonthLabel(m)
	}
}

// GenerationResult reports the outcome of a bulk or yearly generation.
type GenerationResult struct {
	Created []Fee
	Skipped int
}

func (r GenerationResult) CreatedCount() int { return len(r.Created) }

// Summary aggregates the fees for the dashboard.
type Summary struct {
	Students     int
	PaidCount    int
	PaidTotal    decimal.Decimal
	PendingCount int
	PendingTotal decimal.Decimal
}

// Receipt holds everything printed on a payment receipt.
type Receipt struct {
	SchoolName     string
	FeeID          int
	IssueDate      time.Time
	PaymentDate    *time.Time
	StudentName    string
	GuardianName   string // empty when the student has no guardian
	Month          string
	Year           int
	Amount         decimal.Decimal
	CurrencySymbol string
}
