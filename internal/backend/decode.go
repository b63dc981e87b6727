package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-storefront.git/internal/model"
)

// decodeList accepts either a bare array or a HAL page
// {"_embedded": {"<key>": [...]}}.
func decodeList[T any](b []byte, embeddedKey string) ([]T, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []T{}, nil
	}
	if b[0] == '[' {
		var out []T
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var page struct {
		Embedded map[string]json.RawMessage `json:"_embedded"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, err
	}
	raw, ok := page.Embedded[embeddedKey]
	if !ok {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("_embedded.%s: %w", embeddedKey, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// decodeCart accepts {"items": [...]} or a bare item list.
func decodeCart(b []byte) ([]model.CartItem, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []model.CartItem{}, nil
	}
	if b[0] == '[' {
		var items []model.CartItem
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var cart struct {
		Items []model.CartItem `json:"items"`
	}
	if err := json.Unmarshal(b, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return cart.Items, nil
}
