package log

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/domain"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	})
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) record {
	t.Helper()
	var r record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &r), buf.String())
	return r
}

func TestBackgroundError(t *testing.T) {
	buf := capture(t)
	err := errors.Annotate(errors.New("disk full"), "save cart")
	Error(nil, "cart.save", err, map[string]any{"user_id": "u-kossi"})

	r := decode(t, buf)
	assert.Equal(t, "error", r.Level)
	assert.Equal(t, "cart.save", r.Action)
	assert.Equal(t, "save cart: disk full", r.Err)
	assert.Len(t, r.Trace, 2, "one location per annotation")
	assert.Regexp(t, `:\d+$`, r.Trace[0])
	assert.Empty(t, r.Path)
}

func TestRequestFields(t *testing.T) {
	buf := capture(t)
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals(UserKey, domain.User{ID: "u-ama", Role: domain.RoleSeller})
		c.Status(fiber.StatusForbidden)
		Security(c, "access.denied.admin", nil)
		return nil
	})
	_, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)

	r := decode(t, buf)
	assert.Equal(t, "warn", r.Level)
	assert.Equal(t, "/x", r.Path)
	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "u-ama", r.UserID)
	assert.Equal(t, "seller", r.Role)
	assert.Equal(t, fiber.StatusForbidden, r.Status)
	assert.Nil(t, r.Trace)
}
