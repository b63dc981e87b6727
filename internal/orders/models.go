package orders

import (
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/model"
)

// Order is a checkout snapshot kept by the storefront itself. It is never
// reconciled with a backend order resource.
type Order struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Email     string           `json:"correo"`
	Method    string           `json:"metodoPago"`
	Items     []model.CartItem `json:"items"` // as returned by the backend cart
	Total     int64            `json:"total"` // pesos, IVA included
	Shipping  Shipping         `json:"detallesEnvio"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Shipping never carries card data.
type Shipping struct {
	Name    string `json:"nombre"`
	Address string `json:"direccion"`
	City    string `json:"ciudad"`
	Phone   string `json:"telefono"`
}

func (o Order) Units() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
