// Package backendtest runs an in-memory stand-in for the storefront REST
// backend, with per-route call counters and error injection.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/pricing"
)

const (
	RouteListProducts     = "GET /api/products"
	RouteGetProduct       = "GET /api/products/{id}"
	RouteListUsers        = "GET /api/users"
	RouteRegisterUser     = "POST /api/users"
	RouteLogin            = "GET /api/users/login"
	RouteGetCart          = "GET /api/carrito/{userId}"
	RouteAddToCart        = "POST /api/carrito/{userId}/add"
	RouteRemoveFromCart   = "PUT /api/carrito/{userId}/remove/{productoId}"
	RouteClearCart        = "DELETE /api/carrito/{userId}"
	RouteCreatePreference = "POST /api/mercadopago/create-preference"
)

type Fake struct {
	mu       sync.Mutex
	products []model.Product
	users    []model.User
	carts    map[string][]model.CartItem
	calls    map[string]int
	fail     map[string]int

	embedded       bool
	preferenceURL  string
	lastPreference []model.CartItem

	srv *httptest.Server
}

func New() *Fake {
	f := &Fake{
		carts:         map[string][]model.CartItem{},
		calls:         map[string]int{},
		fail:          map[string]int{},
		preferenceURL: "https://pay.example.com/checkout?pref=1",
	}
	r := chi.NewRouter()
	f.handle(r, RouteListProducts, f.listProducts)
	f.handle(r, RouteGetProduct, f.getProduct)
	f.handle(r, RouteListUsers, f.listUsers)
	f.handle(r, RouteRegisterUser, f.registerUser)
	f.handle(r, RouteLogin, f.login)
	f.handle(r, RouteGetCart, f.getCart)
	f.handle(r, RouteAddToCart, f.addToCart)
	f.handle(r, RouteRemoveFromCart, f.removeFromCart)
	f.handle(r, RouteClearCart, f.clearCart)
	f.handle(r, RouteCreatePreference, f.createPreference)
	f.srv = httptest.NewServer(r)
	return f
}

func (f *Fake) URL() string { return f.srv.URL }

func (f *Fake) Close() { f.srv.Close() }

// UseEmbedded wraps list responses in a HAL "_embedded" page.
func (f *Fake) UseEmbedded(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedded = on
}

// SetPreferenceURL changes the init_point returned; empty omits it.
func (f *Fake) SetPreferenceURL(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferenceURL = u
}

// LastPreference returns the items of the most recent preference request.
func (f *Fake) LastPreference() []model.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPreference
}

func (f *Fake) AddProducts(ps ...model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, ps...)
}

func (f *Fake) AddUsers(us ...model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, us...)
}

func (f *Fake) SetCart(userID string, items ...model.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = append([]model.CartItem{}, items...)
}

func (f *Fake) Cart(userID string) []model.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CartItem{}, f.carts[userID]...)
}

// FailWith makes route answer with status until Recover is called.
func (f *Fake) FailWith(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[route] = status
}

func (f *Fake) Recover(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, route)
}

func (f *Fake) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) handle(r chi.Router, route string, h http.HandlerFunc) {
	method, pattern, _ := strings.Cut(route, " ")
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.calls[route]++
		status, failing := f.fail[route]
		f.mu.Unlock()
		if failing {
			writeJSON(w, status, map[string]string{"error": "injected"})
			return
		}
		h(w, req)
	}))
}

// wireProduct mimics the backend revision that serializes prices as strings.
type wireProduct struct {
	ID          string `json:"_id"`
	Image       string `json:"img"`
	Name        string `json:"nombre"`
	Price       string `json:"precio"`
	Category    string `json:"categoria"`
	Description string `json:"descripcion"`
}

func toWire(p model.Product) wireProduct {
	return wireProduct{ID: p.ID, Image: p.Image, Name: p.Name, Price: pricing.Format(p.Price), Category: p.Category, Description: p.Description}
}

func (f *Fake) list(key string, v any) any {
	f.mu.Lock()
	embedded := f.embedded
	f.mu.Unlock()
	if !embedded {
		return v
	}
	return map[string]any{"_embedded": map[string]any{key: v}}
}

func (f *Fake) listProducts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]wireProduct, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, toWire(p))
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.list("productoList", out))
}

func (f *Fake) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, toWire(p))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (f *Fake) listUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := append([]model.User{}, f.users...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.list("usuarioList", out))
}

func (f *Fake) registerUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	f.mu.Lock()
	u.ID = "u" + strconv.Itoa(len(f.users)+1)
	f.users = append(f.users, u)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, u)
}

func (f *Fake) login(w http.ResponseWriter, r *http.Request) {
	email, pass := r.URL.Query().Get("correo"), r.URL.Query().Get("pass")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.Password == pass {
			// this backend revision names the key "_id"
			writeJSON(w, http.StatusOK, map[string]any{
				"_id": u.ID, "nombre": u.Name, "correo": u.Email, "pass": u.Password,
				"telefono": u.Phone, "region": u.Region, "comuna": u.Comuna,
			})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func (f *Fake) cartBody(userID string) map[string]any {
	items := f.carts[userID]
	if items == nil {
		items = []model.CartItem{}
	}
	return map[string]any{"usuarioId": userID, "items": items}
}

func (f *Fake) getCart(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.cartBody(uid))
}

func (f *Fake) addToCart(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "userId")
	var in model.CartItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ProductID == "" || in.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.carts[uid]
	found := false
	for i := range items {
		if items[i].ProductID == in.ProductID {
			items[i].Quantity += in.Quantity
			found = true
		}
	}
	if !found {
		items = append(items, in)
	}
	f.carts[uid] = items
	writeJSON(w, http.StatusOK, f.cartBody(uid))
}

func (f *Fake) removeFromCart(w http.ResponseWriter, r *http.Request) {
	uid, pid := chi.URLParam(r, "userId"), chi.URLParam(r, "productoId")
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []model.CartItem{}
	for _, it := range f.carts[uid] {
		if it.ProductID == pid {
			it.Quantity--
			if it.Quantity <= 0 {
				continue
			}
		}
		items = append(items, it)
	}
	f.carts[uid] = items
	writeJSON(w, http.StatusOK, f.cartBody(uid))
}

func (f *Fake) clearCart(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "userId")
	f.mu.Lock()
	delete(f.carts, uid)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, true)
}

func (f *Fake) createPreference(w http.ResponseWriter, r *http.Request) {
	var items []model.CartItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid items"})
		return
	}
	f.mu.Lock()
	f.lastPreference = items
	url := f.preferenceURL
	f.mu.Unlock()
	body := map[string]string{"id": "pref-1"}
	if url != "" {
		body["init_point"] = url
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
