package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db}
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// fee returns a copy of f with its student name. The lock must be held.
func (repo *feeRepository) fee(f *fee.Fee) fee.Fee {
	cp := *f
	cp.PaymentDate = copyTime(f.PaymentDate)
	cp.StudentName = ""
	if s, ok := repo.db.students[f.StudentID]; ok {
		cp.StudentName = s.Name
	}
	return cp
}

// insert must be called with the write lock held.
func (repo *feeRepository) insert(f fee.Fee) (fee.Fee, error) {
	if _, ok := repo.db.students[f.StudentID]; !ok {
		return fee.Fee{}, school.ErrStudentNotFound
	}
	f.ID = repo.db.nextID("fees")
	f.PaymentDate = copyTime(f.PaymentDate)
	repo.db.fees[f.ID] = &f
	return repo.fee(&f), nil
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.insert(f)
}

func (repo *feeRepository) InsertGeneratedFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.fees {
		if existing.Generated && existing.StudentID == f.StudentID && existing.Month == f.Month && existing.Year == f.Year {
			return fee.Fee{}, false, nil
		}
	}
	f.Generated = true
	created, err := repo.insert(f)
	if err != nil {
		return fee.Fee{}, false, err
	}
	return created, true, nil
}

func (repo *feeRepository) FeeExists(_ context.Context, studentID int, month string, year int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, f := range repo.db.fees {
		if f.StudentID == studentID && f.Month == month && f.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (repo *feeRepository) GetFee(_ context.Context, id int, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.fees[id]; ok {
		return repo.fee(f), nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func (repo *feeRepository) QueryFees(_ context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fees := make([]fee.Fee, 0, len(repo.db.fees))
	for _, f := range repo.db.fees {
		if filter != nil {
			if filter.StudentID != 0 && f.StudentID != filter.StudentID {
				continue
			}
			if filter.Status != "" && f.Status != filter.Status {
				continue
			}
			if filter.Month != "" && f.Month != filter.Month {
				continue
			}
			if filter.Year != 0 && f.Year != filter.Year {
				continue
			}
		}
		fees = append(fees, repo.fee(f))
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].ID < fees[j].ID })

	order(fees, ordering, func(i, j int, field string) int {
		a, b := fees[i], fees[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "student_name":
			return cmpStr(a.StudentName, b.StudentName)
		case "year":
			return cmpInt(a.Year, b.Year)
		case "month":
			ma, _ := fee.ParseMonth(a.Month)
			mb, _ := fee.ParseMonth(b.Month)
			return cmpInt(int(ma), int(mb))
		case "amount":
			return a.Amount.Cmp(b.Amount)
		case "status":
			return cmpStr(a.Status, b.Status)
		case "due_date":
			return cmpTime(a.DueDate, b.DueDate)
		case "generated":
			return cmpBool(a.Generated, b.Generated)
		}
		return 0
	})
	return fees, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.fees[f.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	// identity & billing key are immutable
	f.StudentID = orig.StudentID
	f.Month = orig.Month
	f.Year = orig.Year
	f.Generated = orig.Generated
	f.CreatedAt = orig.CreatedAt
	f.PaymentDate = copyTime(f.PaymentDate)
	repo.db.fees[f.ID] = &f
	return repo.fee(&f), nil
}

func (repo *feeRepository) SummarizeFees(_ context.Context, _ ...core.DBExecutor) (fee.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sum := fee.Summary{PaidTotal: decimal.Zero, PendingTotal: decimal.Zero}
	for _, f := range repo.db.fees {
		if f.IsPaid() {
			sum.PaidCount++
			sum.PaidTotal = sum.PaidTotal.Add(f.Amount)
		} else {
			sum.PendingCount++
			sum.PendingTotal = sum.PendingTotal.Add(f.Amount)
		}
	}
	return sum, nil
}
