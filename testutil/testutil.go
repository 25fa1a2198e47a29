// Package testutil wires in-memory services for tests.
package testutil

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
	emailsvc "github.com/trezcool/escola/services/email"
	logsvc "github.com/trezcool/escola/services/logger"
	"github.com/trezcool/escola/services/receipt"
	inmemdb "github.com/trezcool/escola/storage/database/inmem"
)

// Env holds in-memory repositories and the services built on them.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	LogOutput  *bytes.Buffer
	DB         *inmemdb.DB
	UserRepo   user.Repository
	SchoolRepo school.Repository
	FeeRepo    fee.Repository
	UserSvc    *user.Service
	SchoolSvc  *school.Service
	FeeSvc     *fee.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

// Config returns a TEST configuration that does not depend on the environment.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		Build:            "test",
		AppName:          "Escola",
		SchoolName:       "Escola Test",
		SecretKey:        "test-secret-key-test-secret-key-test",
		TimeZone:         "UTC",
		CurrencySymbol:   "R$",
		DefaultFromEmail: "noreply@escola.test",
		Server: core.ServerConfig{
			SessionExpiration: time.Hour,
			ShutdownTimeout:   time.Second,
		},
		Fees: core.FeesConfig{DefaultDueDay: 10},
	}
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	return validate, translator
}

// NewEnv builds the services over a fresh in-memory database.
// Receipts are rendered as PDFs and emailed through the console mock.
func NewEnv() *Env {
	conf := Config()
	var out bytes.Buffer
	logger := logsvc.NewRollbarLogger(log.New(&out, "TEST : ", 0), conf)
	db := inmemdb.Open()
	txm := inmemdb.NewTxManager()
	validate, translator := NewValidator()

	e := &Env{
		Conf:       conf,
		Logger:     logger,
		LogOutput:  &out,
		DB:         db,
		UserRepo:   inmemdb.NewUserRepository(db),
		SchoolRepo: inmemdb.NewSchoolRepository(db),
		FeeRepo:    inmemdb.NewFeeRepository(db),
		Validate:   validate,
		Translator: translator,
	}
	e.UserSvc = user.NewService(e.UserRepo)
	e.SchoolSvc = school.NewService(e.SchoolRepo, txm)
	e.FeeSvc = fee.NewService(
		e.FeeRepo, e.SchoolRepo, txm, conf, logger,
		emailsvc.NewConsoleServiceMock(conf, logger),
		receipt.NewPDFRenderer(),
	)
	return e
}

func CreateUser(t *testing.T, repo user.Repository, name, uname, pwd, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateGuardian(t *testing.T, repo school.Repository, name, email string) school.Guardian {
	t.Helper()
	now := time.Now().UTC()
	g, err := repo.CreateGuardian(context.Background(), school.Guardian{Name: name, Email: email, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateGuardian() failed: %v", err)
	}
	return g
}

// CreateStudent creates a student, attached to guardian when it is not nil.
func CreateStudent(t *testing.T, repo school.Repository, name string, guardian *school.Guardian) school.Student {
	t.Helper()
	now := time.Now().UTC()
	s := school.Student{Name: name, CreatedAt: now, UpdatedAt: now}
	if guardian != nil {
		id := guardian.ID
		s.GuardianID = &id
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateTeacher(t *testing.T, repo school.Repository, name string) school.Teacher {
	t.Helper()
	now := time.Now().UTC()
	tc, err := repo.CreateTeacher(context.Background(), school.Teacher{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tc
}

// CreateFee inserts a fee as is. A paid fee without payment date is paid on its due date.
func CreateFee(t *testing.T, repo fee.Repository, s school.Student, month string, year int, amount string, status string) fee.Fee {
	t.Helper()
	m, ok := fee.ParseMonth(month)
	if !ok {
		t.Fatalf("CreateFee(): invalid month %q", month)
	}
	now := time.Now().UTC()
	f := fee.Fee{
		StudentID: s.ID,
		Month:     fee.MonthLabel(m),
		Year:      year,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
		DueDate:   time.Date(year, m, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == fee.StatusPaid {
		pd := f.DueDate
		f.PaymentDate = &pd
	}
	f, err := repo.CreateFee(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return f
}

// Date returns the UTC midnight of y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
