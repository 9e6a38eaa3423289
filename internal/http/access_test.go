package http_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRF_RejectsMissingOrForeignToken(t *testing.T) {
	c := newServer(t).client(t)
	body := map[string]any{"productId": "pagne-001", "quantity": 1}

	req := c.request(http.MethodPost, "/api/v1/cart/items", body)
	req.Header.Del(csrf.HeaderName)
	var resp *http.Response
	var raw []byte
	entries := captureLogs(t, func() {
		resp, raw = c.send(req)
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(raw), `"code":"csrf"`)
	_, ok := findLog(entries, "csrf.fail")
	assert.True(t, ok)

	req = c.request(http.MethodPost, "/api/v1/cart/items", body)
	req.Header.Set(csrf.HeaderName, "forged-token")
	resp, _ = c.send(req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/api/v1/cart/items", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "the issued token is accepted")
}

func TestAccess_AnonymousNeedsSignIn(t *testing.T) {
	c := newServer(t).client(t)

	for _, target := range []string{"/api/v1/orders", "/api/v1/wishlist", "/api/v1/seller/dashboard", "/api/v1/admin/users"} {
		resp, body := c.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target)
		assert.Equal(t, "unauthorized", body["code"], target)
	}
	resp, _ := c.do(http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAccess_RoleGates(t *testing.T) {
	c := newServer(t).client(t)
	c.login("kossi@marketplace.tg")

	var status int
	entries := captureLogs(t, func() {
		resp, _ := c.do(http.MethodGet, "/api/v1/admin/dashboard", nil)
		status = resp.StatusCode
	})
	assert.Equal(t, http.StatusForbidden, status)
	denied, ok := findLog(entries, "access.denied.admin")
	require.True(t, ok, "denied admin access is logged")
	assert.Equal(t, "u-kossi", denied.UserID)

	resp, _ := c.do(http.MethodDelete, "/api/v1/admin/users/u-afi", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = c.do(http.MethodPost, "/api/v1/seller/products/pagne-001/toggle", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAccess_AdminRoutes(t *testing.T) {
	c := newServer(t).client(t)
	c.login("admin@marketplace.tg")

	resp, body := c.do(http.MethodGet, "/api/v1/admin/users?role=seller", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, _ := body["users"].([]any)
	assert.Len(t, users, 2)

	resp, _ = c.do(http.MethodGet, "/api/v1/admin/users?role=superuser", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	entries := captureLogs(t, func() {
		resp, body = c.do(http.MethodPost, "/api/v1/admin/users/u-afi/toggle", nil)
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isActive"])
	_, ok := findLog(entries, "admin.users.toggle")
	assert.True(t, ok, "admin actions are audited")

	resp, body = c.do(http.MethodGet, "/api/v1/admin/commissions?status=pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "commissions")
	resp, _ = c.do(http.MethodGet, "/api/v1/admin/commissions?status=refunded", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccess_SellerOwnsListings(t *testing.T) {
	c := newServer(t).client(t)
	c.login("yao@marketplace.tg")

	resp, _ := c.do(http.MethodPost, "/api/v1/seller/products/pagne-001/toggle", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "ama's listing")

	resp, body := c.do(http.MethodPost, "/api/v1/seller/products/tel-004/stock", map[string]any{"stock": 9})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)

	resp, body = c.do(http.MethodGet, "/api/v1/products/tel-004/availability", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 9, body["qty"])
	assert.Equal(t, "IN_STOCK", body["status"])
}
