package echoapi

import (
	"context"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	appfs "github.com/trezcool/escola/fs"
	"github.com/trezcool/escola/testutil"
)

func TestEmbeddedLayouts(t *testing.T) {
	for _, fp := range []string{
		path.Join(appfs.WebTemplatesDir, "_base.gohtml"),
		path.Join(appfs.EmailTemplatesDir, "_base.txt"),
		path.Join(appfs.EmailTemplatesDir, "_base.gohtml"),
	} {
		_, err := fs.Stat(appfs.FS, fp)
		assert.NoError(t, err, fp)
	}
}

func TestTemplateRenderer_parsesEveryPage(t *testing.T) {
	env := testutil.NewEnv()
	fps, err := fs.Glob(appfs.FS, path.Join(appfs.WebTemplatesDir, "*.gohtml"))
	require.NoError(t, err)

	var pages []string
	for _, fp := range fps {
		if name := path.Base(fp); !strings.HasPrefix(name, "_") {
			pages = append(pages, strings.TrimSuffix(name, ".gohtml"))
		}
	}
	require.NotEmpty(t, pages)

	r := newTemplateRenderer(env.Logger, env.Conf)
	assert.Len(t, r.templates, len(pages))
	for _, name := range pages {
		tmpl, ok := r.templates[name]
		if assert.True(t, ok, name) {
			assert.NotNil(t, tmpl.Lookup("base"), name)
			assert.NotNil(t, tmpl.Lookup("content"), name)
		}
	}
}

func TestPages(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	g := testutil.CreateGuardian(t, app.SchoolRepo, "Maria", "maria@example.com")
	s := testutil.CreateStudent(t, app.SchoolRepo, "Pedro", &g)
	tc := testutil.CreateTeacher(t, app.SchoolRepo, "Helena")
	cl, err := app.SchoolRepo.CreateClass(ctx, school.Class{Name: "3A", Year: 2024, TeacherID: &tc.ID})
	require.NoError(t, err)
	f := testutil.CreateFee(t, app.FeeRepo, s, "March", 2024, "300", fee.StatusPending)

	tests := []struct {
		target string
		code   int
		want   string
	}{
		{target: "/dashboard", code: http.StatusOK, want: "<title>Dashboard | Escola Test</title>"},
		{target: "/guardians", code: http.StatusOK, want: "Maria"},
		{target: "/guardians/" + itoa(g.ID) + "/edit", code: http.StatusOK, want: "Maria"},
		{target: "/students", code: http.StatusOK, want: "Pedro"},
		{target: "/students/" + itoa(s.ID) + "/edit", code: http.StatusOK, want: "Pedro"},
		{target: "/teachers", code: http.StatusOK, want: "Helena"},
		{target: "/teachers/" + itoa(tc.ID) + "/edit", code: http.StatusOK, want: "Helena"},
		{target: "/classes", code: http.StatusOK, want: "3A"},
		{target: "/classes/" + itoa(cl.ID) + "/edit", code: http.StatusOK, want: "3A"},
		{target: "/finance", code: http.StatusOK, want: "Pedro"},
		{target: "/finance/" + itoa(f.ID) + "/edit", code: http.StatusOK, want: "300.00"},
		{target: "/nope", code: http.StatusNotFound, want: "<title>Not Found | Escola Test</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := app.do(t, &app.director, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	t.Run("/login", func(t *testing.T) {
		rec := app.do(t, nil, http.MethodGet, "/login", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<title>Log in | Escola Test</title>")
	})
}
