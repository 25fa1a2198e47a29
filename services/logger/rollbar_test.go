package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST", Debug: true})
	logger.Enable(false)

	usr := user.User{ID: 7, Username: "director"}
	logger.Error("something failed", errors.New("boom"), usr)

	out := buf.String()
	assert.Contains(t, out, "TEST : ERROR: something failed")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "director")

	args := logger.prepare("msg", []interface{}{usr, map[string]interface{}{"k": "v"}})
	assert.Len(t, args, 2)
	assert.Equal(t, "msg", args[0])
}
