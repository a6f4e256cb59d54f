package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"agendapro/internal/config"
	"agendapro/internal/logging"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
	errTenantScope        = errors.New("api key is not allowed for this tenant")
)

type clientCtxKey struct{}

// HTTPAuth checks API keys, their permissions and their tenant scope.
type HTTPAuth struct {
	cfg          config.APIAuthConfig
	apiKeyHeader string
	extraHeader  string
	clients      map[string]config.APIClientKey
}

func NewHTTPAuth(cfg config.APIAuthConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &HTTPAuth{cfg: cfg, apiKeyHeader: apiKeyHeader, extraHeader: extraHeader, clients: m}
}

// Require wraps next so it only runs for keys holding permission. Routes with a
// {tenantID} path value also enforce the key's tenant scope.
func (a *HTTPAuth) Require(permission string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next(w, r)
			return
		}

		client, err := a.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err := checkPermission(client, permission); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		if err := checkTenantScope(client, r.PathValue("tenantID")); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), clientCtxKey{}, client)
		if tenantID := r.PathValue("tenantID"); tenantID != "" {
			ctx = logging.WithTenant(ctx, tenantID)
		}
		next(w, r.WithContext(ctx))
	}
}

func (a *HTTPAuth) authenticate(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader))
	extra := strings.TrimSpace(r.Header.Get(a.extraHeader))
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingCredentials
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	return client, nil
}

// checkPermission grants admin keys everything. A key without permissions can
// reach no protected route.
func checkPermission(client config.APIClientKey, required string) error {
	for _, p := range client.Permissions {
		p = strings.TrimSpace(p)
		if p == required || p == config.PermissionAdmin {
			return nil
		}
	}
	return errPermissionDenied
}

func checkTenantScope(client config.APIClientKey, tenantID string) error {
	if client.TenantID == "" || tenantID == "" {
		return nil
	}
	if client.TenantID != tenantID {
		return errTenantScope
	}
	return nil
}

// ClientFromContext returns the authenticated key of the request, if any.
func ClientFromContext(ctx context.Context) (config.APIClientKey, bool) {
	c, ok := ctx.Value(clientCtxKey{}).(config.APIClientKey)
	return c, ok
}

// clientKey identifies the caller for rate limiting. Only a key that
// authenticates gets its own bucket; everyone else is bucketed by host.
func (a *HTTPAuth) clientKey(r *http.Request) string {
	if client, err := a.authenticate(r); err == nil {
		return "key:" + client.Key
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "host:" + host
	}
	return clientKeyUnknown
}
