package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
)

type feeRow struct {
	ID          int             `db:"id"`
	StudentID   int             `db:"student_id"`
	StudentName string          `db:"student_name"`
	Month       string          `db:"month"`
	Year        int             `db:"year"`
	Amount      decimal.Decimal `db:"amount"`
	Status      string          `db:"status"`
	DueDate     time.Time       `db:"due_date"`
	PaymentDate null.Time       `db:"payment_date"`
	Generated   bool            `db:"generated"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

const feeSelect = `
	SELECT f.id, f.student_id, s.name AS student_name, f.month, f.year, f.amount, f.status,
	       f.due_date, f.payment_date, f.generated, f.created_at, f.updated_at
	FROM fees f JOIN students s ON s.id = f.student_id`

var feeOrdering = map[string]string{
	"id":           "f.id",
	"student_name": "s.name",
	"year":         "f.year",
	"month": `array_position(ARRAY['January', 'February', 'March', 'April', 'May', 'June', 'July',
	                         'August', 'September', 'October', 'November', 'December']::varchar[], f.month)`,
	"amount":    "f.amount",
	"status":    "f.status",
	"due_date":  "f.due_date",
	"generated": "f.generated",
}

type feeRepository struct {
	baseRepository
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(exec core.DBExecutor) *feeRepository {
	return &feeRepository{baseRepository{exec: exec}}
}

func (repo feeRepository) unboil(row feeRow) fee.Fee {
	f := fee.Fee{
		ID:          row.ID,
		StudentID:   row.StudentID,
		StudentName: row.StudentName,
		Month:       row.Month,
		Year:        row.Year,
		Amount:      row.Amount,
		Status:      row.Status,
		DueDate:     toDate(row.DueDate),
		Generated:   row.Generated,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.PaymentDate.Valid {
		pd := toDate(row.PaymentDate.Time)
		f.PaymentDate = &pd
	}
	return f
}

// toDate drops the time & location parts of a DATE column.
func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateArg(t time.Time) string {
	return t.Format(core.DateLayout)
}

func nullDateArg(t *time.Time) null.String {
	if t == nil {
		return null.String{}
	}
	return null.StringFrom(dateArg(*t))
}

func (repo feeRepository) getFee(ctx context.Context, e core.DBExecutor, id int) (fee.Fee, error) {
	var row feeRow
	if err := sqlx.GetContext(ctx, e, &row, feeSelect+" WHERE f.id = $1", id); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "selecting fee")
	}
	return repo.unboil(row), nil
}

func (repo feeRepository) CreateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	e := repo.getExec(exec)
	var id int
	err := sqlx.GetContext(ctx, e, &id, `
		INSERT INTO fees (student_id, month, year, amount, status, due_date, payment_date, generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		f.StudentID, f.Month, f.Year, f.Amount, f.Status, dateArg(f.DueDate), nullDateArg(f.PaymentDate),
		f.Generated, f.CreatedAt.UTC(), f.UpdatedAt.UTC())
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return repo.getFee(ctx, e, id)
}

func (repo feeRepository) InsertGeneratedFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, bool, error) {
	e := repo.getExec(exec)
	var ids []int
	err := sqlx.SelectContext(ctx, e, &ids, `
		INSERT INTO fees (student_id, month, year, amount, status, due_date, payment_date, generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, TRUE, $7, $8)
		ON CONFLICT (student_id, month, year) WHERE generated DO NOTHING
		RETURNING id`,
		f.StudentID, f.Month, f.Year, f.Amount, f.Status, dateArg(f.DueDate), f.CreatedAt.UTC(), f.UpdatedAt.UTC())
	if err != nil {
		return fee.Fee{}, false, errors.Wrap(err, "inserting generated fee")
	}
	if len(ids) == 0 {
		return fee.Fee{}, false, nil
	}
	created, err := repo.getFee(ctx, e, ids[0])
	if err != nil {
		return fee.Fee{}, false, err
	}
	return created, true, nil
}

func (repo feeRepository) FeeExists(ctx context.Context, studentID int, month string, year int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, repo.getExec(exec), &exists,
		"SELECT EXISTS (SELECT 1 FROM fees WHERE student_id = $1 AND month = $2 AND year = $3)",
		studentID, month, year)
	if err != nil {
		return false, errors.Wrap(err, "checking fee existence")
	}
	return exists, nil
}

func (repo feeRepository) GetFee(ctx context.Context, id int, exec ...core.DBExecutor) (fee.Fee, error) {
	return repo.getFee(ctx, repo.getExec(exec), id)
}

func (repo feeRepository) QueryFees(ctx context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]fee.Fee, error) {
	e := repo.getExec(exec)
	w := &where{}
	if filter != nil {
		if filter.StudentID != 0 {
			w.add("f.student_id = ?", filter.StudentID)
		}
		if filter.Status != "" {
			w.add("f.status = ?", filter.Status)
		}
		if filter.Month != "" {
			w.add("f.month = ?", filter.Month)
		}
		if filter.Year != 0 {
			w.add("f.year = ?", filter.Year)
		}
	}
	q := feeSelect + w.String() + orderBy(ordering, feeOrdering, "f.id ASC")

	var rows []feeRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting fees")
	}
	fees := make([]fee.Fee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, repo.unboil(row))
	}
	return fees, nil
}

func (repo feeRepository) UpdateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	e := repo.getExec(exec)
	err := execOne(ctx, e, fee.ErrNotFound, "updating fee", `
		UPDATE fees SET amount = $2, status = $3, due_date = $4, payment_date = $5, updated_at = $6
		WHERE id = $1`,
		f.ID, f.Amount, f.Status, dateArg(f.DueDate), nullDateArg(f.PaymentDate), f.UpdatedAt.UTC())
	if err != nil {
		return fee.Fee{}, err
	}
	return repo.getFee(ctx, e, f.ID)
}

func (repo feeRepository) SummarizeFees(ctx context.Context, exec ...core.DBExecutor) (fee.Summary, error) {
	var row struct {
		PaidCount    int             `db:"paid_count"`
		PaidTotal    decimal.Decimal `db:"paid_total"`
		PendingCount int             `db:"pending_count"`
		PendingTotal decimal.Decimal `db:"pending_total"`
	}
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'paid')                    AS paid_count,
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)    AS paid_total,
			COUNT(*) FILTER (WHERE status = 'pending')                 AS pending_count,
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0) AS pending_total
		FROM fees`)
	if err != nil {
		return fee.Summary{}, errors.Wrap(err, "summarizing fees")
	}
	return fee.Summary{
		PaidCount:    row.PaidCount,
		PaidTotal:    row.PaidTotal,
		PendingCount: row.PendingCount,
		PendingTotal: row.PendingTotal,
	}, nil
}
