package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/backend/backendtest"
	"github.com/ariefcatur/go-storefront.git/internal/model"
)

func noDelay() backoff.BackOff { return backoff.NewConstantBackOff(0) }

func newClient(url string) *backend.Client {
	return backend.New(url, backend.WithRetries(3), backend.WithBackOff(noDelay))
}

func seed(f *backendtest.Fake) {
	f.AddProducts(
		model.Product{ID: "p1", Name: "Watchmen", Price: 12990, Category: "Comics"},
		model.Product{ID: "p2", Name: "Akira", Price: 1299990, Category: "Manga"},
	)
}

func TestListProductsBothShapes(t *testing.T) {
	for _, embedded := range []bool{false, true} {
		f := backendtest.New()
		seed(f)
		f.UseEmbedded(embedded)

		ps, err := newClient(f.URL()).ListProducts(context.Background())
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "p1", ps[0].ID)
		assert.Equal(t, int64(12990), ps[0].Price)
		assert.Equal(t, int64(1299990), ps[1].Price)
		f.Close()
	}
}

func TestGetProductNotFound(t *testing.T) {
	f := backendtest.New()
	defer f.Close()

	_, err := newClient(f.URL()).GetProduct(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
	assert.Equal(t, 1, f.Calls(backendtest.RouteGetProduct), "4xx must not be retried")
}

func TestUnreachableIsDistinctFromEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url).ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrUnreachable))

	f := backendtest.New()
	defer f.Close()
	ps, err := newClient(f.URL()).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestGetRetriedOn5xx(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	f.FailWith(backendtest.RouteGetCart, http.StatusServiceUnavailable)

	_, err := newClient(f.URL()).GetCart(context.Background(), "u1")
	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, 3, f.Calls(backendtest.RouteGetCart))
}

func TestMutationsNotRetried(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	f.FailWith(backendtest.RouteAddToCart, http.StatusInternalServerError)

	_, err := newClient(f.URL()).AddToCart(context.Background(), "u1", "p1", 1)
	require.Error(t, err)
	assert.Equal(t, 1, f.Calls(backendtest.RouteAddToCart))
}

func TestCartRoundTrip(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	c := newClient(f.URL())
	ctx := context.Background()

	items, err := c.AddToCart(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, []model.CartItem{{ProductID: "p1", Quantity: 2}}, items)

	items, err = c.RemoveFromCart(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, []model.CartItem{{ProductID: "p1", Quantity: 1}}, items)

	require.NoError(t, c.ClearCart(ctx, "u1"))
	items, err = c.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClearCartFalseIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("false"))
	}))
	defer srv.Close()

	err := newClient(srv.URL).ClearCart(context.Background(), "u1")
	assert.ErrorIs(t, err, backend.ErrRejected)
}

func TestLoginNormalizesIdentifier(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	f.AddUsers(model.User{ID: "abc", Name: "Ana", Email: "ana@gmail.com", Password: "12345"})
	c := newClient(f.URL())

	u, err := c.Login(context.Background(), "ana@gmail.com", "12345")
	require.NoError(t, err)
	assert.Equal(t, "abc", u.ID)

	_, err = c.Login(context.Background(), "ana@gmail.com", "wrong")
	assert.True(t, backend.IsClientError(err))
}

func TestLoginWithoutUserBody(t *testing.T) {
	for _, body := range []string{"", "null", " null\n", "false"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := newClient(srv.URL).Login(context.Background(), "ana@gmail.com", "12345")
		srv.Close()
		assert.ErrorIs(t, err, backend.ErrNoUser, "body %q", body)
		assert.NotErrorIs(t, err, backend.ErrMalformed, "body %q", body)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": "nope"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).GetCart(context.Background(), "u1")
	assert.ErrorIs(t, err, backend.ErrMalformed)
}

func TestCreatePreferenceSendsRawItems(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	items := []model.CartItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p9", Quantity: 1}}

	pref, err := newClient(f.URL()).CreatePreference(context.Background(), items)
	require.NoError(t, err)
	assert.NotEmpty(t, pref.InitPoint)
	assert.Equal(t, items, f.LastPreference())
}

func TestCanceledContextStopsRetrying(t *testing.T) {
	f := backendtest.New()
	defer f.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(f.URL()).ListProducts(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, f.TotalCalls())
}
