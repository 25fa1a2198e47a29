package dig_container

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/escola/apps/api/echo"
	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
	"github.com/trezcool/escola/core/user"
	emailsvc "github.com/trezcool/escola/services/email"
	"github.com/trezcool/escola/storage/database"
	"github.com/trezcool/escola/testutil"
)

func TestProvideApp(t *testing.T) {
	env := testutil.NewEnv()
	c := dig.New()

	// infrastructure without a database connection
	require.NoError(t, c.Provide(func() *core.Config { return env.Conf }))
	require.NoError(t, c.Provide(func() core.Logger { return env.Logger }))
	require.NoError(t, c.Provide(func() *sqlx.DB { return nil }))
	require.NoError(t, c.Provide(newDBExecutor))
	require.NoError(t, c.Provide(database.NewTxManager))
	require.NoError(t, c.Provide(func() core.EmailService { return emailsvc.NewConsoleServiceMock(env.Conf, env.Logger) }))
	require.NoError(t, c.Provide(validator.New))
	require.NoError(t, c.Provide(newTranslator))

	provideApp(c)

	err := c.Invoke(func(
		usrRepo user.Repository,
		schoolRepo school.Repository,
		feeRepo fee.Repository,
		renderer fee.ReceiptRenderer,
		feeSvc *fee.Service,
		srv *echoapi.Server,
	) {
		assert.NotNil(t, usrRepo)
		assert.NotNil(t, schoolRepo)
		assert.NotNil(t, feeRepo)
		assert.NotNil(t, renderer)
		assert.NotNil(t, feeSvc)
		assert.NotNil(t, srv)
	})
	assert.NoError(t, err)
}
