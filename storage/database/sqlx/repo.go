package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

// getExec returns the transaction passed by the service, if any.
func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// where accumulates AND-ed conditions using "?" placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// orderBy builds the ORDER BY clause. Only the fields in columns are kept.
func orderBy(ordering []core.DBOrdering, columns map[string]string, dflt string) string {
	allowed := make([]string, 0, len(columns))
	for f := range columns {
		allowed = append(allowed, f)
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range core.CleanOrdering(ordering, allowed...) {
		parts = append(parts, core.DBOrdering{Field: columns[ord.Field], Ascending: ord.Ascending}.String())
	}
	parts = append(parts, dflt)
	return " ORDER BY " + strings.Join(parts, ", ")
}
