package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-session/api/controllers"
	"github.com/angelmondragon/storefront-session/api/middleware"
	"github.com/angelmondragon/storefront-session/internal/cart"
	"github.com/angelmondragon/storefront-session/internal/checkout"
	"github.com/angelmondragon/storefront-session/internal/customers"
	"github.com/angelmondragon/storefront-session/internal/recent"
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/internal/wishlist"
	"github.com/angelmondragon/storefront-session/pkg/config"
	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/shopapi"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

// fakeShop keeps cart lines per cart id and answers with the shop envelope.
type fakeShop struct {
	mu    sync.Mutex
	carts map[string][]types.CartLineItem
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "carts" {
		writeShopEnvelope(w, http.StatusNotFound, "99", "not found", nil)
		return
	}
	cartID := parts[1]
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		items, ok := f.carts[cartID]
		if !ok {
			writeShopEnvelope(w, http.StatusNotFound, "99", "cart not found", nil)
			return
		}
		writeShopEnvelope(w, http.StatusOK, shopapi.CodeSuccess, "", items)
	case r.Method == http.MethodPost && len(parts) == 3:
		var item types.CartLineItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeShopEnvelope(w, http.StatusBadRequest, "99", err.Error(), nil)
			return
		}
		f.carts[cartID] = append(f.carts[cartID], item)
		writeShopEnvelope(w, http.StatusOK, shopapi.CodeSuccess, "added", nil)
	default:
		writeShopEnvelope(w, http.StatusMethodNotAllowed, "99", "unsupported", nil)
	}
}

func writeShopEnvelope(w http.ResponseWriter, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"responseCode": code, "message": message, "data": data})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	shop := httptest.NewServer(&fakeShop{carts: map[string][]types.CartLineItem{}})
	t.Cleanup(shop.Close)

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Session: config.SessionConfig{Secret: "test-secret", Issuer: "storefront-test", TokenTTL: time.Hour},
		ShopAPI: config.ShopAPIConfig{BaseURL: shop.URL, Timeout: time.Second},
		Guest:   config.GuestConfig{EmailDomain: "guest.test"},
	}
	logg := logger.Nop()
	registry := prometheus.NewRegistry()
	store := kvstore.NewMemoryStore()

	sessions, err := session.NewManager(store, time.Hour, logg)
	require.NoError(t, err)
	client, err := shopapi.New(cfg.ShopAPI, shopapi.WithMetrics(metrics.NewShopAPIMetrics(registry)))
	require.NoError(t, err)

	cartSvc, err := cart.NewService(client, sessions, cart.NewGuard(), metrics.NewCartMetrics(registry), logg)
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(sessions, logg)
	require.NoError(t, err)
	customerSvc, err := customers.NewService(customers.ServiceParams{
		API: client, Sessions: sessions, Logger: logg, GuestEmailDomain: cfg.Guest.EmailDomain,
	})
	require.NoError(t, err)
	wishlistSvc, err := wishlist.NewService(sessions)
	require.NoError(t, err)
	recentSvc, err := recent.NewService(sessions, 3)
	require.NoError(t, err)

	return NewRouter(Params{
		Config:    cfg,
		Logger:    logg,
		Sessions:  sessions,
		Readiness: map[string]controllers.Pinger{"slots": store},
		Gatherer:  registry,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Customers: customerSvc,
		Wishlist:  wishlistSvc,
		Recent:    recentSvc,
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", "", "").Code)

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartFlowKeepsStateAcrossRequests(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, token)

	rec = do(t, h, http.MethodPost, "/api/v1/cart/items", token,
		`{"productId":"A","productName":"Lamp","price":"12.50","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/cart/selection/A/toggle", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/cart", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view cart.View
	decodeData(t, rec, &view)
	require.Len(t, view.Items, 1)
	require.Equal(t, []string{"A"}, view.SelectedIDs)
	require.Equal(t, "25.00", view.SelectedSubtotal)

	rec = do(t, h, http.MethodPost, "/api/v1/cart/items", token, `{"productId":"A","price":"12.50"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutWithoutIdentityAsksForAuthentication(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/checkout/prepare", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result checkout.Result
	decodeData(t, rec, &result)
	require.Equal(t, "authentication_required", result.Status.String())
	require.Nil(t, result.Handoff)
}

func TestRecentlyViewedRoundTrip(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/recently-viewed", "", `{"productId":"A"}`)
	require.Less(t, rec.Code, 300, rec.Body.String())
	token := rec.Header().Get(middleware.SessionHeader)

	rec = do(t, h, http.MethodPost, "/api/v1/recently-viewed", token, `{"productId":"B"}`)
	require.Less(t, rec.Code, 300, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/recently-viewed", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Regexp(t, `"B".*"A"`, rec.Body.String())
}
