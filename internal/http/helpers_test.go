package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/config"
	apphttp "marketplacetg/internal/http"
	"marketplacetg/internal/http/handlers"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/storage"
)

var testLimits = apphttp.Limits{PerMinute: 500, Logins: 3, LoginWindow: time.Minute, FittingCalls: 10}

type server struct {
	app   *fiber.App
	db    *sqlx.DB
	blobs *storage.DiskStore
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := repos.OpenDB(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	blobs, err := storage.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	deps := handlers.NewDeps(db, config.Config{OTPCode: "123456"}, blobs, nil)
	app := apphttp.New(apphttp.Options{Deps: deps, Limits: testLimits})
	return &server{app: app, db: db, blobs: blobs}
}

// client keeps the cookies of one browser and sends the csrf header on
// unsafe requests.
type client struct {
	t       *testing.T
	srv     *server
	cookies map[string]string
}

func (s *server) client(t *testing.T) *client {
	c := &client{t: t, srv: s, cookies: map[string]string{}}
	resp, _ := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, c.cookies["csrf_"], "csrf cookie issued on a safe request")
	require.NotEmpty(t, c.cookies["sid"], "session cookie issued on first visit")
	return c
}

func (c *client) request(method, target string, body any) *http.Request {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(csrf.HeaderName, c.cookies["csrf_"])
	}
	return req
}

// send runs req and records the cookies the server set.
func (c *client) send(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	resp, err := c.srv.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, b
}

func (c *client) do(method, target string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	resp, b := c.send(c.request(method, target, body))
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(c.t, json.Unmarshal(b, &out), string(b))
	}
	return resp, out
}

func (c *client) login(email string) {
	c.t.Helper()
	resp, body := c.do(http.MethodPost, "/api/v1/auth/login", map[string]any{"email": email, "password": "Passw0rd!"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode, "%v", body)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Status int            `json:"status"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// captureLogs collects the JSON log lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	w := &lockedWriter{}
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(w)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		var e logEntry
		if json.Unmarshal([]byte(strings.TrimSpace(line)), &e) == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
