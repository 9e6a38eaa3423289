// Package log writes one JSON object per line through the standard logger.
// Request-scoped calls pass the fiber context; background calls pass nil.
package log

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

type record struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Trace     []string       `json:"trace,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

const (
	// UserKey is the fiber.Ctx local holding the signed-in domain.User.
	UserKey = "user"

	// StartedKey holds the time.Time the request entered the app.
	StartedKey = "started"
)

// fromRequest copies what the request tells about who did what.
func (r *record) fromRequest(c *fiber.Ctx) {
	r.IP = c.IP()
	r.Method = c.Method()
	r.Path = c.Path()
	r.Status = c.Response().StatusCode()
	if rid, ok := c.Locals("requestid").(string); ok {
		r.ReqID = rid
	}
	if u, ok := c.Locals(UserKey).(domain.User); ok {
		r.UserID = u.ID
		r.Role = string(u.Role)
	}
	if start, ok := c.Locals(StartedKey).(time.Time); ok {
		r.LatencyMs = time.Since(start).Milliseconds()
	}
}

var reLocation = regexp.MustCompile(`^(\S+:\d+): `)

// trace lists the annotation locations juju/errors recorded, innermost
// first. Plain errors have none.
func trace(err error) []string {
	var out []string
	for _, line := range strings.Split(errors.ErrorStack(err), "\n") {
		if m := reLocation.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	r := record{TS: time.Now().UTC().Format(time.RFC3339Nano), Level: level, Action: action, Fields: fields}
	if c != nil {
		r.fromRequest(c)
	}
	if err != nil {
		r.Err = err.Error()
		r.Trace = trace(err)
	}
	b, _ := json.Marshal(r)
	log.Println(string(b))
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }

// Audit records a state-changing action by a user.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}

// Security records rejected input, denied access and rate limit hits.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}
