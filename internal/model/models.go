// Package model holds the storefront records exchanged with the backend.
// Identifiers are normalized on decode: "_id" and "id" (string or number)
// both land in ID, and only "id" is ever written back.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-storefront.git/internal/pricing"
)

type User struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"nombre"`
	Email    string `json:"correo"`
	Password string `json:"pass,omitempty"`
	Phone    string `json:"telefono,omitempty"`
	Region   string `json:"region"`
	Comuna   string `json:"comuna"`
}

// Sanitized returns a copy safe to keep in a session.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		ID    json.RawMessage `json:"id"`
		Mongo json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	id, err := firstID(aux.Mongo, aux.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*u = User(aux.plain)
	u.ID = id
	return nil
}

type Product struct {
	ID          string `json:"id"`
	Image       string `json:"img"`
	Name        string `json:"nombre"`
	Price       int64  `json:"precio"` // whole pesos
	Category    string `json:"categoria"`
	Description string `json:"descripcion"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	var aux struct {
		plain
		ID    json.RawMessage `json:"id"`
		Mongo json.RawMessage `json:"_id"`
		Price json.RawMessage `json:"precio"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	id, err := firstID(aux.Mongo, aux.ID)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*p = Product(aux.plain)
	p.ID = id
	if isNull(aux.Price) {
		return nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(aux.Price))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("product %s precio: %w", id, err)
	}
	if p.Price, err = pricing.Parse(raw); err != nil {
		return fmt.Errorf("product %s precio: %w", id, err)
	}
	return nil
}

// CartItem is one line of the backend-held cart.
type CartItem struct {
	ProductID string `json:"productoId"`
	Quantity  int    `json:"cantidad"`
}

// UnmarshalJSON also reads the legacy {id, cantidad} shape.
func (c *CartItem) UnmarshalJSON(b []byte) error {
	var aux struct {
		ProductID json.RawMessage `json:"productoId"`
		Legacy    json.RawMessage `json:"id"`
		Quantity  int             `json:"cantidad"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	id, err := firstID(aux.ProductID, aux.Legacy)
	if err != nil {
		return fmt.Errorf("cart item productoId: %w", err)
	}
	c.ProductID = id
	c.Quantity = aux.Quantity
	return nil
}

func firstID(candidates ...json.RawMessage) (string, error) {
	for _, raw := range candidates {
		id, err := decodeID(raw)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unsupported identifier %s", raw)
	}
	return n.String(), nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
