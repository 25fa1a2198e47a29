package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func Test_formURL(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{name: "no referer", want: "/dashboard"},
		{name: "same host", referer: "http://example.com/finance?month=March&year=2024", want: "/finance?month=March&year=2024"},
		{name: "relative", referer: "/students", want: "/students"},
		{name: "root", referer: "http://example.com/", want: "/"},
		{name: "other host", referer: "http://evil.com/finance", want: "/dashboard"},
		{name: "no path", referer: "http://example.com", want: "/dashboard"},
		{name: "protocol-relative path", referer: "http://example.com//evil.com/x", want: "/dashboard"},
		{name: "backslash path", referer: `http://example.com/\evil.com`, want: "/dashboard"},
		{name: "relative backslash path", referer: `/\evil.com`, want: "/dashboard"},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/finance/1/pay", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			ctx := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, formURL(ctx))
		})
	}

	t.Run("recorded form page wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/finance/1/pay", nil)
		req.Header.Set("Referer", "http://example.com/students")
		ctx := e.NewContext(req, httptest.NewRecorder())
		setFormURL(ctx, "/finance/1/edit")
		assert.Equal(t, "/finance/1/edit", formURL(ctx))
	})
}
