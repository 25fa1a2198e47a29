package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/escola/apps/api/echo"
	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
	emailsvc "github.com/trezcool/escola/services/email"
	logsvc "github.com/trezcool/escola/services/logger"
	"github.com/trezcool/escola/services/receipt"
	"github.com/trezcool/escola/storage/database"
	sqlxrepos "github.com/trezcool/escola/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type depsParam struct {
	dig.In
	UserSvc    *user.Service
	SchoolSvc  *school.Service
	FeeSvc     *fee.Service
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *echoapi.Metrics
	DB         *sqlx.DB
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB creates the database if needed, connects to it and applies the pending migrations.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newDBExecutor(db *sqlx.DB) core.DBExecutor {
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newDeps(p depsParam) echoapi.Deps {
	return echoapi.Deps{
		UserSvc:    p.UserSvc,
		SchoolSvc:  p.SchoolSvc,
		FeeSvc:     p.FeeSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    p.Metrics,
		DB:         p.DB,
	}
}

func newUserRepository(db core.DBExecutor) user.Repository {
	return sqlxrepos.NewUserRepository(db)
}

func newSchoolRepository(db core.DBExecutor) school.Repository {
	return sqlxrepos.NewSchoolRepository(db)
}

func newFeeRepository(db core.DBExecutor) fee.Repository {
	return sqlxrepos.NewFeeRepository(db)
}

func newReceiptRenderer() fee.ReceiptRenderer {
	return receipt.NewPDFRenderer()
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newDBExecutor))
	must(c.Provide(database.NewTxManager))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	provideApp(c)

	return c
}

// provideApp registers the repositories, the services and the web server.
func provideApp(c *dig.Container) {
	// repositories
	must(c.Provide(newUserRepository))
	must(c.Provide(newSchoolRepository))
	must(c.Provide(newFeeRepository))

	// services
	must(c.Provide(newReceiptRenderer))
	must(c.Provide(user.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(fee.NewService))

	must(c.Provide(echoapi.NewMetrics))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
