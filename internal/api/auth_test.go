package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"agendapro/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.APIAuthConfig {
	return config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		HeaderExtra:  "x-api-extra",
		APIKeys: []config.APIClientKey{
			{Key: "admin-key", Extra: "admin-extra", Name: "ops", Permissions: []string{config.PermissionAdmin}},
			{Key: "merchant-key", Extra: "m-extra", Name: "any", Permissions: []string{config.PermissionMerchant}},
			{Key: "scoped-key", Extra: "s-extra", Name: "t1", Permissions: []string{config.PermissionMerchant}, TenantID: "t1"},
			{Key: "bare-key", Extra: "b-extra", Name: "none"},
		},
	}
}

func serveProtected(auth *HTTPAuth, permission, path string, headers map[string]string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, r *http.Request) {
		client, _ := ClientFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"client": client.Name})
	}
	mux.HandleFunc("GET /tenants/{tenantID}/x", auth.Require(permission, ok))
	mux.HandleFunc("GET /admin/x", auth.Require(permission, ok))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func creds(key, extra string) map[string]string {
	return map[string]string{"x-api-key": key, "x-api-extra": extra}
}

func TestHTTPAuthRequire(t *testing.T) {
	auth := NewHTTPAuth(testAuthConfig())

	tests := []struct {
		name       string
		permission string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{"MerchantOwnRoute", config.PermissionMerchant, "/tenants/t9/x", creds("merchant-key", "m-extra"), http.StatusOK},
		{"AdminImpliesMerchant", config.PermissionMerchant, "/tenants/t9/x", creds("admin-key", "admin-extra"), http.StatusOK},
		{"MerchantOnAdminRoute", config.PermissionAdmin, "/admin/x", creds("merchant-key", "m-extra"), http.StatusForbidden},
		{"ScopedOwnTenant", config.PermissionMerchant, "/tenants/t1/x", creds("scoped-key", "s-extra"), http.StatusOK},
		{"ScopedOtherTenant", config.PermissionMerchant, "/tenants/t2/x", creds("scoped-key", "s-extra"), http.StatusForbidden},
		{"NoPermissions", config.PermissionMerchant, "/tenants/t1/x", creds("bare-key", "b-extra"), http.StatusForbidden},
		{"MissingHeaders", config.PermissionMerchant, "/tenants/t1/x", nil, http.StatusUnauthorized},
		{"UnknownKey", config.PermissionMerchant, "/tenants/t1/x", creds("nope", "m-extra"), http.StatusUnauthorized},
		{"WrongExtra", config.PermissionMerchant, "/tenants/t1/x", creds("merchant-key", "bad"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveProtected(auth, tt.permission, tt.path, tt.headers)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHTTPAuthDisabled(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Enabled = false
	rec := serveProtected(NewHTTPAuth(cfg), config.PermissionAdmin, "/admin/x", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuthCustomHeaders(t *testing.T) {
	cfg := testAuthConfig()
	cfg.HeaderAPIKey = "X-Key"
	cfg.HeaderExtra = "X-Secret"
	auth := NewHTTPAuth(cfg)

	rec := serveProtected(auth, config.PermissionAdmin, "/admin/x",
		map[string]string{"X-Key": "admin-key", "X-Secret": "admin-extra"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ops"`)
}

func TestClientKey(t *testing.T) {
	auth := NewHTTPAuth(testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "host:10.0.0.7", auth.clientKey(req))

	req.Header.Set("x-api-key", "merchant-key")
	req.Header.Set("x-api-extra", "m-extra")
	assert.Equal(t, "key:merchant-key", auth.clientKey(req))

	req.Header.Set("x-api-extra", "wrong")
	assert.Equal(t, "host:10.0.0.7", auth.clientKey(req))

	req.Header.Set("x-api-key", "made-up")
	assert.Equal(t, "host:10.0.0.7", auth.clientKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "garbage"
	assert.Equal(t, clientKeyUnknown, auth.clientKey(req))
}

func TestRateLimiter(t *testing.T) {
	lim := newRateLimiter(config.APIRateLimitConfig{RPS: 0.001, Burst: 2})
	assert.True(t, lim.allow("a"))
	assert.True(t, lim.allow("a"))
	assert.False(t, lim.allow("a"))
	assert.True(t, lim.allow("b"))

	off := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 10; i++ {
		assert.True(t, off.allow("a"))
	}
}
