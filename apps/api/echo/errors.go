package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

// errorPage is the data of the error template.
type errorPage struct {
	Code    int
	Message string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors:
//  - validation errors are flashed and redirect back to the form page
//  - unauthenticated requests redirect to /login
//  - not found & permission errors render an error page
//  - anything else is logged and renders a 500 page
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(conf *core.Config, logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
			err = core.TranslateValidationErrors(vErrs, translator)
		}

		var (
			code    int
			message string
		)
		switch origErr := errors.Cause(err).(type) {
		case *core.ValidationError:
			msg := origErr.Error()
			if len(origErr.Fields) > 1 {
				msg = "Please correct the errors below."
			}
			setFlash(ctx, flashError, msg, origErr.Fields...)
			redirect(ctx, formURL(ctx))
			return

		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing || origErr.Code == http.StatusUnauthorized {
				clearSessionCookie(ctx, conf)
				redirect(ctx, "/login")
				return
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)

		default:
			switch {
			case core.IsNotFound(err):
				code = http.StatusNotFound
				message = err.Error()
			case core.IsPermissionDenied(err):
				code = http.StatusForbidden
				message = err.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(code)

				args := []interface{}{errors.Wrap(err, message)}
				if usr, uErr := getContextUser(ctx); uErr == nil {
					args = append(args, usr)
				}
				logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Request().URL.Path, err), args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = fmt.Sprintf("%+v", err)
		}

		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = render(ctx, code, "error", http.StatusText(code), errorPage{Code: code, Message: message})
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func redirect(ctx echo.Context, url string) {
	if err := ctx.Redirect(http.StatusSeeOther, url); err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
