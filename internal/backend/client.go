// Package backend is the typed client for the storefront REST backend.
//
// Every call returns (value, error). Transport failures wrap ErrUnreachable,
// non-2xx answers are *StatusError, and bodies that cannot be decoded wrap
// ErrMalformed, so callers can tell "empty" apart from "down". Failures are
// logged once here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/model"
)

// ErrRejected is returned when the backend answers 2xx but reports failure,
// e.g. a cart clear that returns false.
var ErrRejected = errors.New("backend rejected request")

// ErrNoUser is a 2xx login answer carrying no user (empty body, null, false).
var ErrNoUser = errors.New("backend returned no user")

const maxBody = 8 << 20

type Client struct {
	baseURL    string
	http       *http.Client
	log        *zap.Logger
	tries      uint
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout bounds each attempt, not the whole retried call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = logx.OrNop(l) } }

// WithRetries sets how many attempts idempotent calls get; 1 disables retry.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.tries = uint(n)
	}
}

func WithBackOff(f func() backoff.BackOff) Option { return func(c *Client) { c.newBackOff = f } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        zap.NewNop(),
		tries:      3,
		newBackOff: defaultBackOff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// Preference is the payment processor session created by the backend.
type Preference struct {
	ID        string `json:"id,omitempty"`
	InitPoint string `json:"init_point"`
}

type addToCartReq struct {
	ProductID string `json:"productoId"`
	Quantity  int    `json:"cantidad"`
}

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	b, err := c.do(ctx, http.MethodGet, "/api/products", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOr(c, "/api/products", func() ([]model.Product, error) {
		return decodeList[model.Product](b, "productoList")
	})
}

func (c *Client) GetProduct(ctx context.Context, id string) (model.Product, error) {
	path := "/api/products/" + url.PathEscape(id)
	var p model.Product
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	b, err := c.do(ctx, http.MethodGet, "/api/users", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOr(c, "/api/users", func() ([]model.User, error) {
		return decodeList[model.User](b, "usuarioList")
	})
}

func (c *Client) RegisterUser(ctx context.Context, u model.User) (model.User, error) {
	var created model.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/users", nil, u, &created); err != nil {
		return model.User{}, err
	}
	if created.ID == "" {
		return model.User{}, c.malformed("/api/users", errors.New("created user has no identifier"))
	}
	return created, nil
}

// Login authenticates with GET /api/users/login?correo=..&pass=..
func (c *Client) Login(ctx context.Context, email, pass string) (model.User, error) {
	q := url.Values{"correo": {email}, "pass": {pass}}
	b, err := c.do(ctx, http.MethodGet, "/api/users/login", q, nil)
	if err != nil {
		return model.User{}, err
	}
	switch string(bytes.TrimSpace(b)) {
	case "", "null", "false", `""`:
		return model.User{}, ErrNoUser
	}
	var u model.User
	if err := json.Unmarshal(b, &u); err != nil {
		return model.User{}, c.malformed("/api/users/login", err)
	}
	if u.ID == "" {
		return model.User{}, c.malformed("/api/users/login", errors.New("user has no identifier"))
	}
	return u, nil
}

func (c *Client) GetCart(ctx context.Context, userID string) ([]model.CartItem, error) {
	path := cartPath(userID)
	b, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOr(c, path, func() ([]model.CartItem, error) { return decodeCart(b) })
}

func (c *Client) AddToCart(ctx context.Context, userID, productID string, qty int) ([]model.CartItem, error) {
	path := cartPath(userID) + "/add"
	b, err := c.do(ctx, http.MethodPost, path, nil, addToCartReq{ProductID: productID, Quantity: qty})
	if err != nil {
		return nil, err
	}
	return decodeOr(c, path, func() ([]model.CartItem, error) { return decodeCart(b) })
}

// RemoveFromCart decrements the product by one; the backend drops the line at zero.
func (c *Client) RemoveFromCart(ctx context.Context, userID, productID string) ([]model.CartItem, error) {
	path := cartPath(userID) + "/remove/" + url.PathEscape(productID)
	b, err := c.do(ctx, http.MethodPut, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOr(c, path, func() ([]model.CartItem, error) { return decodeCart(b) })
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	path := cartPath(userID)
	b, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("false")) {
		c.log.Warn("backend rejected cart clear", zap.String("path", path))
		return fmt.Errorf("DELETE %s: %w", path, ErrRejected)
	}
	return nil
}

// CreatePreference sends the raw cart lines and returns the hosted checkout link.
func (c *Client) CreatePreference(ctx context.Context, items []model.CartItem) (Preference, error) {
	var p Preference
	if err := c.doJSON(ctx, http.MethodPost, "/api/mercadopago/create-preference", nil, items, &p); err != nil {
		return Preference{}, err
	}
	return p, nil
}

func cartPath(userID string) string { return "/api/carrito/" + url.PathEscape(userID) }

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	b, err := c.do(ctx, method, path, q, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return c.malformed(path, err)
	}
	return nil
}

func decodeOr[T any](c *Client, path string, decode func() (T, error)) (T, error) {
	v, err := decode()
	if err != nil {
		var zero T
		return zero, c.malformed(path, err)
	}
	return v, nil
}

func (c *Client) malformed(path string, err error) error {
	c.log.Warn("backend response malformed", zap.String("path", path), zap.Error(err))
	return fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
}

// do sends one logical call. GET and DELETE are retried on transport
// errors and 5xx; everything else gets a single attempt.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	tries := c.tries
	if method != http.MethodGet && method != http.MethodDelete {
		tries = 1
	}

	start := time.Now()
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.once(ctx, method, path, target, payload)
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(tries))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		c.log.Warn("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, method, path, target string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build %s %s: %w", method, path, err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%s %s: %w: %w", method, path, ErrUnreachable, err)
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: truncate(string(body), 512)}
		if se.Retryable() {
			return nil, se
		}
		return nil, backoff.Permanent(se)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
