// Package cart joins the backend cart with the catalog into the rows and
// totals every page shows.
package cart

import (
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/pricing"
)

const UnavailableLabel = "Producto no disponible"

// Detail is one cart row. Product is nil when the catalog no longer has it;
// the row still carries its quantity.
type Detail struct {
	ProductID string         `json:"productoId"`
	Quantity  int            `json:"cantidad"`
	Product   *model.Product `json:"product"`
}

func (d Detail) Available() bool { return d.Product != nil }

func (d Detail) LineTotal() int64 {
	if d.Product == nil {
		return 0
	}
	return d.Product.Price * int64(d.Quantity)
}

type Summary struct {
	Units    int   `json:"units"`
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"iva"`
	Total    int64 `json:"total"`
}

// View is what the cart and checkout pages render.
type View struct {
	Items   []Detail `json:"items"`
	Summary Summary  `json:"summary"`
}

func (v View) Empty() bool { return len(v.Items) == 0 }

// CartItems returns the rows as the backend sent them, unavailable ones included.
func (v View) CartItems() []model.CartItem {
	out := make([]model.CartItem, 0, len(v.Items))
	for _, d := range v.Items {
		out = append(out, model.CartItem{ProductID: d.ProductID, Quantity: d.Quantity})
	}
	return out
}

// BuildView keeps one row per cart entry in cart order.
func BuildView(items []model.CartItem, products []model.Product) []Detail {
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	rows := make([]Detail, 0, len(items))
	for _, it := range items {
		rows = append(rows, Detail{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Product:   byID[it.ProductID],
		})
	}
	return rows
}

func Summarize(rows []Detail) Summary {
	var s Summary
	for _, r := range rows {
		s.Units += r.Quantity
		s.Subtotal += r.LineTotal()
	}
	s.Tax = pricing.Tax(s.Subtotal)
	s.Total = s.Subtotal + s.Tax
	return s
}

func NewView(items []model.CartItem, products []model.Product) View {
	rows := BuildView(items, products)
	return View{Items: rows, Summary: Summarize(rows)}
}

// Units sums quantities straight from the backend cart.
func Units(items []model.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
