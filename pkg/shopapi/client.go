// Package shopapi talks to the remote shop REST API that owns carts and customers.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-session/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

const (
	opGetCart        = "get_cart"
	opAddCartItem    = "add_cart_item"
	opUpdateCartItem = "update_cart_item"
	opRemoveCartItem = "remove_cart_item"
	opCreateCustomer = "create_customer"
	opLoginCustomer  = "login_customer"
	opGetCustomer    = "get_customer"

	maxErrorBody = 4 << 10
)

// API is the surface the session services consume.
type API interface {
	GetCart(ctx context.Context, cartID string) (*types.CartSnapshot, error)
	AddCartItem(ctx context.Context, cartID string, item AddItemRequest) error
	UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, productID string) error
	CreateCustomer(ctx context.Context, identity types.CustomerIdentity) (*types.CustomerIdentity, error)
	LoginCustomer(ctx context.Context, contactNumber, password string) (*types.CustomerIdentity, error)
	GetCustomer(ctx context.Context, accountNumber string) (*types.CustomerIdentity, error)
}

// Client is the HTTP implementation of API. Calls are never retried.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.ShopAPIMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithMetrics(m *metrics.ShopAPIMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logg = l
		}
	}
}

func New(cfg config.ShopAPIConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid shop api base url %q", cfg.BaseURL)
	}
	c := &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		logg:    logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetCart fetches the full snapshot. A 404 means the cart has no lines yet.
func (c *Client) GetCart(ctx context.Context, cartID string) (*types.CartSnapshot, error) {
	var data cartData
	status, err := c.do(ctx, opGetCart, http.MethodGet, c.path("carts", cartID), nil, &data, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	snapshot := &types.CartSnapshot{CartID: cartID, Items: []types.CartLineItem{}, FetchedAt: c.now().UTC()}
	if status == http.StatusNotFound {
		return snapshot, nil
	}
	for _, item := range data.Items {
		if item.Quantity < 1 {
			continue
		}
		snapshot.Items = append(snapshot.Items, item)
	}
	return snapshot, nil
}

func (c *Client) AddCartItem(ctx context.Context, cartID string, item AddItemRequest) error {
	_, err := c.do(ctx, opAddCartItem, http.MethodPost, c.path("carts", cartID, "items"), item, nil)
	return err
}

func (c *Client) UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := c.do(ctx, opUpdateCartItem, http.MethodPut, c.path("carts", cartID, "items", productID), updateItemRequest{Quantity: quantity}, nil)
	return err
}

func (c *Client) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	_, err := c.do(ctx, opRemoveCartItem, http.MethodDelete, c.path("carts", cartID, "items", productID), nil, nil)
	return err
}

// CreateCustomer submits identity; a "01" reply surfaces as a BusinessError (see IsAlreadyExists).
func (c *Client) CreateCustomer(ctx context.Context, identity types.CustomerIdentity) (*types.CustomerIdentity, error) {
	var out types.CustomerIdentity
	if _, err := c.do(ctx, opCreateCustomer, http.MethodPost, c.path("customers"), identity, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LoginCustomer(ctx context.Context, contactNumber, password string) (*types.CustomerIdentity, error) {
	var out types.CustomerIdentity
	body := loginRequest{ContactNumber: contactNumber, Password: password}
	if _, err := c.do(ctx, opLoginCustomer, http.MethodPost, c.path("customers", "login"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, accountNumber string) (*types.CustomerIdentity, error) {
	var out types.CustomerIdentity
	if _, err := c.do(ctx, opGetCustomer, http.MethodGet, c.path("customers", accountNumber), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

// do sends one request and decodes the envelope's data into out. Statuses listed in
// passthrough are returned to the caller without an error and without decoding.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any, passthrough ...int) (int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := c.now()
	status, err := c.send(ctx, op, method, target, body, out, passthrough)
	elapsed := c.now().Sub(started)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		if _, ok := AsBusiness(err); ok {
			outcome = metrics.OutcomeRejected
		}
	}
	c.metrics.Observe(op, outcome, elapsed)

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"shop_api_op": op,
		"status":      status,
		"outcome":     outcome,
		"elapsed_ms":  elapsed.Milliseconds(),
	})
	c.logg.Debug(logCtx, "shop api request finished")
	return status, err
}

func (c *Client) send(ctx context.Context, op, method, target string, body, out any, passthrough []int) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode shop api request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shop api request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shop api %s timed out", op))
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shop api %s failed", op))
	}
	defer resp.Body.Close()

	for _, status := range passthrough {
		if resp.StatusCode == status {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Operation: op, StatusCode: resp.StatusCode, Message: envelopeMessage(raw)}
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, statusErr, fmt.Sprintf("shop api %s failed", op))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode shop api %s response", op))
	}
	if env.ResponseCode != "" && env.ResponseCode != CodeSuccess {
		return resp.StatusCode, &BusinessError{Operation: op, Code: env.ResponseCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode shop api %s data", op))
		}
	}
	return resp.StatusCode, nil
}

func envelopeMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return strings.TrimSpace(string(raw))
}
