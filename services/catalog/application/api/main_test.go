package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/productcatalog/pkg/app"
	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/logger"
	"github.com/ghuser/productcatalog/services/catalog/application/api"
	"github.com/ghuser/productcatalog/services/catalog/application/handlers"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// client drives the catalog routes through httptest, carrying the session cookie.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T) *client {
	t.Helper()
	a := &app.Application{
		Logger: logger.New(&config.Config{LogLevel: "error"}),
		SessionStore: sessions.NewCookieStore(
			[]byte("test-auth-key-must-be-32-bytes!!"),
			[]byte("test-enc-key-must-be-32-bytes!!!"),
		),
	}
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		api.CatalogRoutes(r, a, appsvcs.New(a, appsvcs.WorkspaceLimits{}))
	})
	return &client{t: t, handler: r}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if set := rr.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func TestCatalogRoutes_RequireWorkspace(t *testing.T) {
	c := newClient(t)
	rr := c.do(http.MethodGet, "/api/items", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCatalogRoutes_WidgetScenario(t *testing.T) {
	c := newClient(t)

	rr := c.do(http.MethodPost, "/api/workspaces", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	ws := decode[handlers.WorkspaceResponse](t, rr)

	rr = c.do(http.MethodGet, "/api/workspaces/current", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ws.WorkspaceID, decode[handlers.WorkspaceResponse](t, rr).WorkspaceID)

	rr = c.do(http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Widget", "price": "10"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	item := decode[handlers.ListingResponse](t, rr)
	assert.Equal(t, "Product: Widget (Price: $10)", item.Display)

	rr = c.do(http.MethodPost, "/api/bundles", map[string]any{"code": "B1", "name": "Starter Pack"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/api/bundles/B1/items", map[string]any{"item_code": "W1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	bundle := decode[handlers.ListingResponse](t, rr)
	assert.Equal(t, "10", bundle.Price)
	assert.Equal(t, []string{"W1"}, bundle.Children)

	rr = c.do(http.MethodPost, "/api/discounts", map[string]any{"item_code": "W1", "offer_name": "Sale", "rate": 20})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	discount := decode[handlers.ListingResponse](t, rr)
	assert.Equal(t, "8", discount.Price)
	assert.Equal(t, "Special Offer: Sale (Discount: 20%)", discount.Display)

	rr = c.do(http.MethodGet, "/api/discounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[handlers.ListingsResponse](t, rr).Total)
}

func TestCatalogRoutes_ErrorMapping(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/workspaces", nil).Code)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Widget", "price": "10"}).Code)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/bundles", map[string]any{"code": "B1", "name": "One"}).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown bundle", http.MethodPost, "/api/bundles/NOPE/items", map[string]any{"item_code": "W1"}, http.StatusNotFound},
		{"unknown item", http.MethodGet, "/api/items/W9", nil, http.StatusNotFound},
		{"duplicate item", http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Again", "price": "1"}, http.StatusConflict},
		{"self nesting", http.MethodPost, "/api/bundles/B1/bundles", map[string]any{"bundle_code": "B1"}, http.StatusConflict},
		{"rate over 100", http.MethodPost, "/api/discounts", map[string]any{"item_code": "W1", "offer_name": "Sale", "rate": "101"}, http.StatusUnprocessableEntity},
		{"negative price", http.MethodPost, "/api/items", map[string]any{"code": "W2", "name": "Widget", "price": "-1"}, http.StatusUnprocessableEntity},
		{"code with space", http.MethodPost, "/api/items", map[string]any{"code": "W 2", "name": "Widget", "price": "1"}, http.StatusUnprocessableEntity},
		{"missing code", http.MethodPost, "/api/bundles", map[string]any{"name": "No Code"}, http.StatusUnprocessableEntity},
		{"delete unknown discount", http.MethodDelete, "/api/discounts/W1", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := c.do(http.MethodGet, "/api/bundles/B1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[handlers.ListingResponse](t, rr).Children)
}

func TestCatalogRoutes_InvalidJSON(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/workspaces", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader("{oops"))
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCatalogRoutes_WorkspacesAreIsolated(t *testing.T) {
	first := newClient(t)
	require.Equal(t, http.StatusCreated, first.do(http.MethodPost, "/api/workspaces", nil).Code)
	require.Equal(t, http.StatusCreated, first.do(http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Widget", "price": "10"}).Code)

	// A second session on the same router gets its own catalog.
	second := &client{t: t, handler: first.handler}
	require.Equal(t, http.StatusCreated, second.do(http.MethodPost, "/api/workspaces", nil).Code)

	rr := second.do(http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[handlers.ListingsResponse](t, rr).Total)
}

func TestCatalogRoutes_DeleteItemKeepsBundle(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/workspaces", nil).Code)
	c.do(http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Widget", "price": "2.50"})
	c.do(http.MethodPost, "/api/bundles", map[string]any{"code": "B1", "name": "Pack"})
	c.do(http.MethodPost, "/api/bundles/B1/items", map[string]any{"item_code": "W1"})

	rr := c.do(http.MethodDelete, "/api/items/W1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = c.do(http.MethodGet, "/api/bundles/B1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2.5", decode[handlers.ListingResponse](t, rr).Price)
}

func TestCatalogRoutes_EscapedCodes(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/workspaces", nil).Code)

	tests := []struct {
		code string
		path string
	}{
		{"A/1", "/api/items/A%2F1"},
		{"50%", "/api/items/50%25"},
		{"a%2Fb", "/api/items/a%252Fb"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := c.do(http.MethodPost, "/api/items", map[string]any{"code": tt.code, "name": "Widget", "price": "1"})
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			rr = c.do(http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decode[handlers.ListingResponse](t, rr).Code)

			rr = c.do(http.MethodDelete, tt.path, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, tt.path, nil).Code)
		})
	}

	rr := c.do(http.MethodPost, "/api/bundles", map[string]any{"code": "B/1", "name": "Pack"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c.do(http.MethodPost, "/api/items", map[string]any{"code": "W1", "name": "Widget", "price": "3"})
	rr = c.do(http.MethodPost, "/api/bundles/B%2F1/items", map[string]any{"item_code": "W1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "3", decode[handlers.ListingResponse](t, rr).Price)
}
