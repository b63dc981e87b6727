package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront.git/internal/model"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) ListProducts(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *mockAPI) GetProduct(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func products() []model.Product {
	return []model.Product{
		{ID: "1", Name: "Watchmen", Category: "Comics"},
		{ID: "2", Name: "Akira", Category: "Manga"},
		{ID: "3", Name: "Maus", Category: "Comics"},
		{ID: "4", Name: "Dune", Category: "Novelas"},
	}
}

func TestListGroupsByCategory(t *testing.T) {
	api := &mockAPI{}
	api.On("ListProducts", mock.Anything).Return(products(), nil)
	s := &Service{API: api}

	page, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Comics", "Manga", "Novelas"}, page.Categories)
	assert.Equal(t, AllCategories, page.Selected)
	require.Len(t, page.Sections, 3)
	assert.Len(t, page.Sections[0].Products, 2)

	page, err = s.List(context.Background(), "Manga")
	require.NoError(t, err)
	require.Len(t, page.Sections, 1)
	assert.Equal(t, "Akira", page.Sections[0].Products[0].Name)
	assert.Len(t, page.Categories, 3, "filter keeps the full category menu")

	page, err = s.List(context.Background(), "Poesía")
	require.NoError(t, err)
	assert.Empty(t, page.Sections)
}

func TestListPropagatesBackendError(t *testing.T) {
	api := &mockAPI{}
	down := errors.New("down")
	api.On("ListProducts", mock.Anything).Return(nil, down)

	_, err := (&Service{API: api}).List(context.Background(), "")
	assert.ErrorIs(t, err, down)
}

func TestFeatured(t *testing.T) {
	api := &mockAPI{}
	api.On("ListProducts", mock.Anything).Return(products(), nil)
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	s := &Service{API: api, Shuffle: reverse}

	got, err := s.Featured(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	got, err = s.Featured(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 4, "fewer products than the default")
}
