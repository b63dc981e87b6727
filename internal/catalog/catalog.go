// Package catalog serves the product listing, category sections and the
// home page selection.
package catalog

import (
	"context"
	"math/rand/v2"

	"github.com/ariefcatur/go-storefront.git/internal/model"
)

const (
	AllCategories   = "Todas"
	DefaultFeatured = 8
)

type API interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
}

type Section struct {
	Category string          `json:"categoria"`
	Products []model.Product `json:"productos"`
}

type Page struct {
	Categories []string  `json:"categorias"` // every category, first-seen order
	Selected   string    `json:"seleccionada"`
	Sections   []Section `json:"secciones"`
}

type Service struct {
	API API
	// Shuffle defaults to math/rand/v2; tests pin it.
	Shuffle func(n int, swap func(i, j int))
}

// List groups the catalog by category. An empty or AllCategories filter
// shows every section; an unknown category yields no sections.
func (s *Service) List(ctx context.Context, category string) (Page, error) {
	ps, err := s.API.ListProducts(ctx)
	if err != nil {
		return Page{}, err
	}
	if category == "" {
		category = AllCategories
	}
	return Group(ps, category), nil
}

func Group(ps []model.Product, category string) Page {
	page := Page{Categories: []string{}, Selected: category, Sections: []Section{}}
	seen := map[string]bool{}
	for _, p := range ps {
		if !seen[p.Category] {
			seen[p.Category] = true
			page.Categories = append(page.Categories, p.Category)
		}
	}
	for _, c := range page.Categories {
		if category != AllCategories && c != category {
			continue
		}
		sec := Section{Category: c}
		for _, p := range ps {
			if p.Category == c {
				sec.Products = append(sec.Products, p)
			}
		}
		page.Sections = append(page.Sections, sec)
	}
	return page
}

// Featured returns up to n products in random order.
func (s *Service) Featured(ctx context.Context, n int) ([]model.Product, error) {
	if n <= 0 {
		n = DefaultFeatured
	}
	ps, err := s.API.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	shuffle := s.Shuffle
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
	if len(ps) > n {
		ps = ps[:n]
	}
	return ps, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Product, error) {
	return s.API.GetProduct(ctx, id)
}
