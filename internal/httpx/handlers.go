package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/account"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/notify"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/session"
)

const IdempotencyHeader = "Idempotency-Key"

type Handlers struct {
	Catalog       *catalog.Service
	Cart          *cart.Service
	Checkout      *checkout.Service
	Accounts      *account.Service
	Sessions      *session.Store
	Orders        orders.Store
	Hub           *notify.Hub
	Log           *zap.Logger
	SecureCookies bool
}

func (h *Handlers) log() *zap.Logger { return logx.OrNop(h.Log) }

func (h *Handlers) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.loadSession)

		r.With(requireUser).Get("/events", h.events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/products", h.listProducts)
			r.Get("/products/featured", h.featured)
			r.Get("/products/{id}", h.getProduct)

			r.Get("/session", h.getSession)
			r.Post("/session/login", h.login)
			r.Post("/session/register", h.register)
			r.Delete("/session", h.logout)

			r.Get("/cart/count", h.cartCount)
			r.Get("/checkout", h.beginCheckout)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/cart", h.getCart)
				r.Post("/cart/items", h.addItem)
				r.Put("/cart/items/{productId}/remove", h.removeItem)
				r.Post("/checkout", h.submitCheckout)
				r.Get("/orders", h.listOrders)
			})
		})
	})
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.List(r.Context(), r.URL.Query().Get("categoria"))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) featured(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	ps, err := h.Catalog.Featured(r.Context(), n)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type sessionResp struct {
	User   *model.User `json:"user"`
	Reload bool        `json:"reload,omitempty"`
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	writeJSON(w, http.StatusOK, sessionResp{User: u})
}

type loginReq struct {
	Email    string `json:"correo"`
	Password string `json:"pass"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u, token, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	h.replaceSession(w, r, token)
	writeJSON(w, http.StatusOK, sessionResp{User: &u})
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req account.Registration
	if !decodeJSON(w, r, &req) {
		return
	}
	u, token, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	h.replaceSession(w, r, token)
	writeJSON(w, http.StatusCreated, sessionResp{User: &u})
}

// replaceSession drops the session the browser held before a new login.
func (h *Handlers) replaceSession(w http.ResponseWriter, r *http.Request, token string) {
	if _, old := currentUser(r.Context()); old != "" {
		if err := h.Sessions.Delete(r.Context(), old); err != nil {
			h.log().Warn("delete previous session failed", zap.Error(err))
		}
	}
	h.setCookie(w, token)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	u, token := currentUser(r.Context())
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if u == nil {
		if !confirmed {
			fail(w, h.log(), account.ErrConfirmationRequired)
			return
		}
		h.clearCookie(w)
		writeJSON(w, http.StatusOK, sessionResp{Reload: true})
		return
	}
	if err := h.Accounts.Logout(r.Context(), token, u.ID, confirmed); err != nil {
		fail(w, h.log(), err)
		return
	}
	h.clearCookie(w)
	writeJSON(w, http.StatusOK, sessionResp{Reload: true})
}

func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	v, err := h.Cart.View(r.Context(), u.ID)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type addItemReq struct {
	ProductID string `json:"productoId"`
	Quantity  *int   `json:"cantidad"`
}

func (h *Handlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "Falta el producto.", nil)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	u, _ := currentUser(r.Context())
	v, err := h.Cart.Add(r.Context(), u.ID, req.ProductID, qty)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) removeItem(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	v, err := h.Cart.Decrement(r.Context(), u.ID, chi.URLParam(r, "productId"))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// cartCount is the header badge; anonymous visitors see zero.
func (h *Handlers) cartCount(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]int{"count": 0})
		return
	}
	n, err := h.Cart.Count(r.Context(), u.ID)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handlers) beginCheckout(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	res, err := h.Checkout.Begin(r.Context(), u)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var checkoutStatus = map[checkout.State]int{
	checkout.OrderPlaced:      http.StatusCreated,
	checkout.Redirected:       http.StatusOK,
	checkout.Ready:            http.StatusConflict,
	checkout.ValidationFailed: http.StatusUnprocessableEntity,
	checkout.SubmitFailed:     http.StatusBadGateway,
	checkout.Loading:          http.StatusBadGateway,
}

func (h *Handlers) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if !decodeJSON(w, r, &form) {
		return
	}
	u, _ := currentUser(r.Context())
	res, err := h.Checkout.Submit(r.Context(), u, r.Header.Get(IdempotencyHeader), form)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	code, ok := checkoutStatus[res.State]
	if !ok {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	list, err := h.Orders.ListByUser(r.Context(), u.ID)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}
