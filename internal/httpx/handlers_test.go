package httpx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront.git/internal/account"
	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/backend/backendtest"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/notify"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/session"
)

type stack struct {
	fake *backendtest.Fake
	mr   *miniredis.Miniredis
	srv  *httptest.Server
	c    *http.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := &stack{fake: backendtest.New(), mr: miniredis.RunT(t)}
	t.Cleanup(s.fake.Close)
	s.fake.AddProducts(
		model.Product{ID: "p1", Name: "Watchmen", Price: 12990, Category: "Comics"},
		model.Product{ID: "p2", Name: "Akira", Price: 5000, Category: "Manga"},
	)
	s.fake.AddUsers(model.User{ID: "u1", Name: "Ana", Email: "ana@duoc.cl", Password: "secret1"})

	rdb := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := backend.New(s.fake.URL(), backend.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(0) }))
	hub := notify.NewHub()
	sessions := session.NewStore(rdb, time.Hour)
	store := orders.NewMemoryStore()
	cs := &cart.Service{API: api, RDB: rdb, Notify: hub}

	h := &Handlers{
		Catalog:  &catalog.Service{API: api},
		Cart:     cs,
		Checkout: &checkout.Service{Cart: cs, API: api, Orders: store, RDB: rdb},
		Accounts: &account.Service{
			API: api, Sessions: sessions, Notify: hub,
			Regions: account.DefaultRegions(), AllowedDomains: []string{"@duoc.cl"},
		},
		Sessions: sessions,
		Orders:   store,
		Hub:      hub,
	}
	r := NewRouter()
	h.Register(r)
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s.c = &http.Client{Jar: jar, Timeout: 5 * time.Second}
	return s
}

func (s *stack) do(t *testing.T, method, path string, body any, hdr ...string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := s.c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (s *stack) login(t *testing.T) {
	t.Helper()
	resp, _ := s.do(t, http.MethodPost, "/api/session/login", map[string]string{"correo": "ana@duoc.cl", "pass": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := newStack(t)
	resp, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestCatalogRoutes(t *testing.T) {
	s := newStack(t)

	resp, body := s.do(t, http.MethodGet, "/api/products?categoria=Manga", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[catalog.Page](t, body)
	assert.Equal(t, []string{"Comics", "Manga"}, page.Categories)
	require.Len(t, page.Sections, 1)

	resp, body = s.do(t, http.MethodGet, "/api/products/featured?n=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Product](t, body), 1)

	resp, body = s.do(t, http.MethodGet, "/api/products/p2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(5000), decode[model.Product](t, body).Price)

	resp, body = s.do(t, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[ErrorBody](t, body).Error)
}

func TestBackendDownIsBadGateway(t *testing.T) {
	s := newStack(t)
	s.fake.Close()

	resp, body := s.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "backend_unreachable", decode[ErrorBody](t, body).Error)
}

func TestLoginAndSession(t *testing.T) {
	s := newStack(t)

	resp, body := s.do(t, http.MethodPost, "/api/session/login", map[string]string{"correo": "ana@duoc.cl", "pass": "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, account.MsgBadCredentials, decode[ErrorBody](t, body).Message)

	s.login(t)
	resp, body = s.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[sessionResp](t, body)
	require.NotNil(t, got.User)
	assert.Equal(t, "u1", got.User.ID)
	assert.Empty(t, got.User.Password)
}

func TestRegisterRejectsDomainWithoutBackendCall(t *testing.T) {
	s := newStack(t)
	before := s.fake.TotalCalls()

	resp, body := s.do(t, http.MethodPost, "/api/session/register", account.Registration{
		Name: "Beto", Email: "b@gmail.com", EmailConfirm: "b@gmail.com",
		Password: "12345", PasswordConfirm: "12345", Region: "Biobío", Comuna: "Concepción",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, account.MsgEmailDomain, decode[ErrorBody](t, body).Message)
	assert.Equal(t, before, s.fake.TotalCalls())
}

func TestCorruptSessionForcesLogout(t *testing.T) {
	s := newStack(t)
	require.NoError(t, s.mr.Set("session:broken", "{"))

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/products", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "broken"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	eb := decode[ErrorBody](t, mustRead(t, resp.Body))
	assert.Equal(t, "/login", eb.Details["redirect"])
	assert.False(t, s.mr.Exists("session:broken"))

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestCartNeedsLogin(t *testing.T) {
	s := newStack(t)
	resp, body := s.do(t, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", decode[ErrorBody](t, body).Details["redirect"])

	resp, body = s.do(t, http.MethodGet, "/api/cart/count", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[map[string]int](t, body)["count"])
}

func TestCartAndCheckoutFlow(t *testing.T) {
	s := newStack(t)
	s.login(t)

	resp, body := s.do(t, http.MethodPost, "/api/checkout", validCheckout())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, checkout.MsgEmptyCart, decode[checkout.Result](t, body).Message)

	resp, _ = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productoId": "p1", "cantidad": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = s.do(t, http.MethodPut, "/api/cart/items/p1/remove", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[cart.View](t, body).Summary.Units)

	resp, body = s.do(t, http.MethodGet, "/api/cart/count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[map[string]int](t, body)["count"])

	resp, body = s.do(t, http.MethodGet, "/api/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, checkout.Ready, decode[checkout.Result](t, body).State)

	bad := validCheckout()
	bad["telefono"] = "123"
	resp, body = s.do(t, http.MethodPost, "/api/checkout", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode[checkout.Result](t, body).Errors, "telefono")

	resp, body = s.do(t, http.MethodPost, "/api/checkout", validCheckout(), IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[checkout.Result](t, body)
	assert.Equal(t, checkout.OrderPlaced, res.State)
	assert.Equal(t, "/", res.Redirect)

	resp, body = s.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]orders.Order](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, res.OrderID, list[0].ID)
}

func TestLogout(t *testing.T) {
	s := newStack(t)
	s.login(t)

	resp, body := s.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "confirmation_required", decode[ErrorBody](t, body).Error)

	resp, body = s.do(t, http.MethodDelete, "/api/session?confirm=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[sessionResp](t, body).Reload)

	_, body = s.do(t, http.MethodGet, "/api/session", nil)
	assert.Nil(t, decode[sessionResp](t, body).User)
}

func TestEventStream(t *testing.T) {
	s := newStack(t)
	s.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.srv.URL+"/api/events", nil)
	require.NoError(t, err)
	stream := &http.Client{Jar: s.c.Jar}
	resp, err := stream.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, ": connected", lines.Text())

	resp2, _ := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productoId": "p2"})
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var got []string
	for len(got) < 2 && lines.Scan() {
		if l := lines.Text(); strings.HasPrefix(l, "event:") || strings.HasPrefix(l, "data:") {
			got = append(got, l)
		}
	}
	assert.Equal(t, []string{"event: cart.changed", `data: {"kind":"cart.changed"}`}, got)
}

func validCheckout() map[string]string {
	return map[string]string{
		"nombre": "Ana", "direccion": "Los Aromos 12", "ciudad": "Concepción",
		"telefono": "977827552", "metodoPago": "transferencia",
	}
}

func mustRead(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}
