package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
)

// DB is a mutex-guarded in-memory store. All tables share one lock.
type DB struct {
	mu  sync.RWMutex
	seq map[string]int

	users     map[int]*user.User
	guardians map[int]*school.Guardian
	students  map[int]*school.Student
	teachers  map[int]*school.Teacher
	classes   map[int]*school.Class
	fees      map[int]*fee.Fee
}

func Open() *DB {
	return &DB{
		seq:       make(map[string]int),
		users:     make(map[int]*user.User),
		guardians: make(map[int]*school.Guardian),
		students:  make(map[int]*school.Student),
		teachers:  make(map[int]*school.Teacher),
		classes:   make(map[int]*school.Class),
		fees:      make(map[int]*fee.Fee),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

type txManager struct{}

var _ core.TxManager = txManager{}

// NewTxManager returns a TxManager running fn without transaction: exec is nil and nothing is rolled back.
func NewTxManager() core.TxManager {
	return txManager{}
}

func (txManager) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

// ordering helpers

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpStr(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// order sorts slice by ordering. cmp compares elements i & j on field, unknown fields compare equal.
// slice must already be sorted by id.
func order(slice interface{}, ordering []core.DBOrdering, cmp func(i, j int, field string) int) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
