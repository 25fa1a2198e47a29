package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/user"
	appfs "github.com/trezcool/escola/fs"
)

// page is the data passed to every web template.
type page struct {
	AppName    string
	SchoolName string
	Title      string
	Path       string
	User       *user.User
	Flash      *Flash
	Data       interface{}
}

type templateRenderer struct {
	conf      *core.Config
	templates map[string]*template.Template
}

var _ echo.Renderer = (*templateRenderer)(nil)

// newTemplateRenderer parses every page of the web templates dir along with the "_base" layout.
func newTemplateRenderer(logger core.Logger, conf *core.Config) *templateRenderer {
	r := &templateRenderer{conf: conf, templates: make(map[string]*template.Template)}

	funcs := template.FuncMap{
		"money":  func(d decimal.Decimal) string { return core.FormatMoney(conf.CurrencySymbol, d) },
		"date":   formatDate,
		"months": func() []string { return fee.Months },
		"roles":  func() []user.Role { return user.Roles },
		"same":   func(a, b interface{}) bool { return fmt.Sprint(a) == fmt.Sprint(b) },
		"intval": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
	}

	base := path.Join(appfs.WebTemplatesDir, "_base.gohtml")
	fps, err := fs.Glob(appfs.FS, path.Join(appfs.WebTemplatesDir, "*.gohtml"))
	if err != nil {
		logger.Fatal(fmt.Sprintf("echoapi.newTemplateRenderer: %v", err), err)
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ".gohtml")
		r.templates[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(appfs.FS, base, fp))
	}
	return r
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	if p, ok := data.(page); ok {
		p.AppName = r.conf.AppName
		p.SchoolName = r.conf.SchoolName
		data = p
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// render renders the page template name, with the session user and the pending flash.
func render(ctx echo.Context, code int, name, title string, data interface{}) error {
	p := page{
		Title: title,
		Path:  ctx.Request().URL.Path,
		Flash: popFlash(ctx),
		Data:  data,
	}
	if usr, err := getContextUser(ctx); err == nil {
		p.User = &usr
	}
	return ctx.Render(code, name, p)
}

func formatDate(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(core.DateLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(core.DateLayout)
	}
	return ""
}
