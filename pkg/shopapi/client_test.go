package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-session/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(config.ShopAPIConfig{BaseURL: srv.URL + "/", APIKey: "k-1", Timeout: time.Second}, opts...)
	require.NoError(t, err)
	return client
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"responseCode": code, "message": message, "data": data})
}

func TestGetCartDecodesItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/carts/cart-1", r.URL.Path)
		assert.Equal(t, "k-1", r.Header.Get("X-API-Key"))
		writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", []map[string]any{
			{"productId": "A", "productName": "Lamp", "price": 12.5, "quantity": 2},
			{"productId": "B", "productName": "Rug", "price": "40.00", "quantity": 1},
		})
	})

	snap, err := client.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Equal(t, "cart-1", snap.CartID)
	require.Equal(t, []string{"A", "B"}, snap.ProductIDs())
	require.Equal(t, "65.00", types.Subtotal(snap.Items).StringFixed(2))
	require.False(t, snap.FetchedAt.IsZero())
}

func TestGetCartAcceptsWrappedItemsAndDropsZeroQuantity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, CodeSuccess, "", map[string]any{
			"items": []map[string]any{
				{"productId": "A", "price": 1, "quantity": 1},
				{"productId": "Z", "price": 1, "quantity": 0},
			},
		})
	})

	snap, err := client.GetCart(context.Background(), "cart-2")
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, snap.ProductIDs())
}

func TestGetCartNotFoundIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	snap, err := client.GetCart(context.Background(), "missing")
	require.NoError(t, err)
	require.NotNil(t, snap.Items)
	require.Empty(t, snap.Items)
}

func TestServerErrorIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadGateway, "99", "upstream down", nil)
	})

	err := client.RemoveCartItem(context.Background(), "cart-1", "A")
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "upstream down", statusErr.Message)
}

func TestAddAndUpdateSendBodies(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = append(seen, r.Method+" "+r.URL.Path+" "+string(raw))
		writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", nil)
	})

	ctx := context.Background()
	require.NoError(t, client.AddCartItem(ctx, "cart-1", AddItemRequest{
		ProductID: "A", ProductName: "Lamp", Price: decimal.RequireFromString("12.50"), Quantity: 1,
	}))
	require.NoError(t, client.UpdateCartItem(ctx, "cart-1", "A", 3))

	require.Len(t, seen, 2)
	assert.Equal(t, `POST /carts/cart-1/items {"productId":"A","productName":"Lamp","price":"12.5","quantity":1}`, seen[0])
	assert.Equal(t, `PUT /carts/cart-1/items/A {"quantity":3}`, seen[1])
}

func TestCreateCustomerAlreadyExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		writeEnvelope(w, http.StatusOK, CodeAlreadyExists, "Customer already exists", nil)
	})

	_, err := client.CreateCustomer(context.Background(), types.CustomerIdentity{ContactNumber: "0551234567"})
	require.Error(t, err)
	require.True(t, IsAlreadyExists(err))
	business, ok := AsBusiness(err)
	require.True(t, ok)
	require.Equal(t, "Customer already exists", business.Message)
}

func TestLoginAndGetCustomer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customers/login":
			var body loginRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Password != "pw" {
				writeEnvelope(w, http.StatusOK, "05", "Invalid credentials", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, CodeSuccess, "", map[string]any{"customerAccountNumber": "C-1", "firstName": "Ama"})
		case "/customers/C-1":
			writeEnvelope(w, http.StatusOK, CodeSuccess, "", map[string]any{"customerAccountNumber": "C-1", "accountStatus": "deactivated"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	identity, err := client.LoginCustomer(ctx, "0551234567", "pw")
	require.NoError(t, err)
	require.Equal(t, "C-1", identity.CustomerAccountNumber)
	require.Equal(t, "Ama", identity.FirstName)

	_, err = client.LoginCustomer(ctx, "0551234567", "nope")
	business, ok := AsBusiness(err)
	require.True(t, ok)
	require.Equal(t, "05", business.Code)

	remote, err := client.GetCustomer(ctx, "C-1")
	require.NoError(t, err)
	require.False(t, remote.AccountStatus.Usable())
}

func TestTimeoutIsEnforced(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(config.ShopAPIConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.GetCart(context.Background(), "slow")
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetricsRecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, CodeAlreadyExists, "exists", nil)
	}, WithMetrics(metrics.NewShopAPIMetrics(reg)))

	_, _ = client.CreateCustomer(context.Background(), types.CustomerIdentity{})

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "shop_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == opCreateCustomer && labels["outcome"] == metrics.OutcomeRejected {
				found = m.GetCounter().GetValue() == 1
			}
		}
	}
	require.True(t, found, "expected rejected create_customer sample")
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(config.ShopAPIConfig{BaseURL: "not a url"})
	require.Error(t, err)
}
