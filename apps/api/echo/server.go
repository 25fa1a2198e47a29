package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
)

type (
	// Pinger reports whether the storage is reachable.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	Deps struct {
		UserSvc    *user.Service
		SchoolSvc  *school.Service
		FeeSvc     *fee.Service
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *Metrics
		DB         Pinger // optional
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.conf, s.logger, s.deps.Translator, s.signalShutdown)
	s.app.Renderer = newTemplateRenderer(s.logger, s.conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", func(ctx echo.Context) error { return ctx.Redirect(http.StatusSeeOther, "/dashboard") })
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	auth := authAPI{svc: s.deps.UserSvc, conf: s.conf}
	s.app.GET("/login", auth.loginForm)
	s.app.POST("/login", auth.login)
	s.app.GET("/logout", auth.logout)
	s.app.POST("/logout", auth.logout)

	authed := s.app.Group("", middleware.JWTWithConfig(newJWTConfig(s.conf)), sessionUserMiddleware(s.deps.UserSvc), noStoreMiddleware)
	authed.GET("/dashboard", dashboardAPI{schoolSvc: s.deps.SchoolSvc, feeSvc: s.deps.FeeSvc}.dashboard)

	registerGuardianAPI(authed, s.deps)
	registerStudentAPI(authed, s.deps)
	registerTeacherAPI(authed, s.deps)
	registerClassAPI(authed, s.deps)
	registerFinanceAPI(authed, s.deps, s.conf)
}

// Start listens until the server is shut down. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) healthz(ctx echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.conf.Build})
}
