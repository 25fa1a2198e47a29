package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

const (
	orderingParam = "ordering"
	searchParam   = "q"
	formURLKey    = "formURL"
)

// bindOrdering reads ?ordering=name,-id
func bindOrdering(ctx echo.Context, dflt ...core.DBOrdering) []core.DBOrdering {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return dflt
	}
	var orderings []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
	return orderings
}

// paramID parses the :id path param. Malformed ids are not found.
func paramID(ctx echo.Context, notFound error) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

func queryInt(ctx echo.Context, name string) int {
	n, _ := strconv.Atoi(ctx.QueryParam(name))
	return n
}

// setFormURL records the page validation errors redirect to.
func setFormURL(ctx echo.Context, u string) {
	ctx.Set(formURLKey, u)
}

// formURL returns the page to go back to: the recorded form page, the referer's path or the dashboard.
func formURL(ctx echo.Context) string {
	if u, ok := ctx.Get(formURLKey).(string); ok && u != "" {
		return u
	}
	if ref := ctx.Request().Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && isLocalPath(u.Path) && (u.Host == "" || u.Host == ctx.Request().Host) {
			if u.RawQuery != "" {
				return u.Path + "?" + u.RawQuery
			}
			return u.Path
		}
	}
	return "/dashboard"
}

// isLocalPath reports whether p is a path on this host.
// "//host" and "/\\host" are treated as absolute URLs by browsers.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	return len(p) == 1 || (p[1] != '/' && p[1] != '\\')
}

// bind binds the request form into i. Malformed values are reported as a ValidationError.
func bind(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		if _, ok := err.(*echo.HTTPError); ok {
			return core.NewValidationError(errors.New("invalid form data"))
		}
		return errors.Wrap(err, "binding form")
	}
	return nil
}

func seeOther(ctx echo.Context, url string) error {
	return ctx.Redirect(http.StatusSeeOther, url)
}
