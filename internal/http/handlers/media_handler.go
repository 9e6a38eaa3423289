package handlers

import (
	"mime"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	applog "marketplacetg/internal/log"
	"marketplacetg/internal/storage"
)

// MediaHandler serves uploaded blobs under /media.
type MediaHandler struct {
	Blobs storage.Store
}

// GET /media/*
func (h *MediaHandler) Serve(c *fiber.Ctx) error {
	raw := c.Params("*")
	lower := strings.ToLower(raw)
	// Block encoded traversal attempts as well as raw .. or null bytes
	if strings.Contains(lower, "..") || strings.Contains(lower, "%2e") || strings.Contains(lower, "\x00") {
		applog.Security(c, "media.traversal.block", map[string]any{"path": raw})
		return c.SendStatus(fiber.StatusNotFound)
	}
	key, err := storage.CleanKey(raw)
	if err != nil {
		applog.Security(c, "media.traversal.block", map[string]any{"path": raw})
		return c.SendStatus(fiber.StatusNotFound)
	}
	data, err := h.Blobs.Get(c.UserContext(), key)
	if errors.Is(err, errors.NotFound) {
		return c.SendStatus(fiber.StatusNotFound)
	}
	if err != nil {
		applog.Error(c, "media.read.fail", err, map[string]any{"key": key})
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
