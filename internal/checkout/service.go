// Package checkout runs the checkout page: an entry guard, form validation
// and one of two payment paths, hosted redirect or local order.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
)

const (
	MsgEmptyCart      = "Tu carrito está vacío."
	MsgThanks         = "¡Gracias por tu compra! Tu pedido ha sido procesado."
	MsgNoPaymentLink  = "Error: El servidor no devolvió el link de pago."
	MsgServerDown     = "Error al conectar con el servidor."
	MsgClearRejected  = "Hubo un error al procesar el pedido. Intenta nuevamente."
	MsgClearFailed    = "Error al procesar el pedido. Intenta nuevamente."
	MsgCartLoadFailed = "No pudimos cargar tu carrito. Intenta nuevamente."
)

var (
	ErrNoSession = errors.New("checkout requires a logged-in user")
	ErrInFlight  = errors.New("checkout already in progress")
)

// API is the backend surface checkout mutates.
type API interface {
	ClearCart(ctx context.Context, userID string) error
	CreatePreference(ctx context.Context, items []model.CartItem) (backend.Preference, error)
}

// OrderEvents is satisfied by *orders.EventPublisher.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, o orders.Order)
}

type Service struct {
	Cart   *cart.Service
	API    API
	Orders orders.Store
	Events OrderEvents // optional
	RDB    redis.Cmdable
	Log    *zap.Logger
	Now    func() time.Time
}

type Result struct {
	State    State             `json:"state"`
	Message  string            `json:"message,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	OrderID  string            `json:"orderId,omitempty"`
	Cart     *cart.View        `json:"cart,omitempty"`
	Replayed bool              `json:"replayed,omitempty"`
}

// Begin is the page entry guard.
func (s *Service) Begin(ctx context.Context, user *model.User) (Result, error) {
	if user == nil || user.ID == "" {
		return Result{}, ErrNoSession
	}
	m := newMachine()
	v, err := s.Cart.View(ctx, user.ID)
	if err != nil {
		return Result{}, err
	}
	if err := m.to(Ready); err != nil {
		return Result{}, err
	}
	return Result{State: m.state, Cart: &v}, nil
}

// Submit places the order. Backend failures resolve to SubmitFailed; the
// returned error is reserved for session, concurrency and storage faults.
func (s *Service) Submit(ctx context.Context, user *model.User, idemKey string, f Form) (Result, error) {
	if user == nil || user.ID == "" {
		return Result{}, ErrNoSession
	}
	log := logx.OrNop(s.Log).With(zap.String("user_id", user.ID))

	release, err := redisx.Lock(ctx, s.RDB, fmt.Sprintf(redisx.KeyCheckoutInflight, user.ID), redisx.TTLInflight)
	if errors.Is(err, redisx.ErrLocked) {
		return Result{}, ErrInFlight
	}
	if err != nil {
		return Result{}, fmt.Errorf("checkout lock: %w", err)
	}
	defer release()

	if prev, ok, err := s.replay(ctx, user.ID, idemKey); err != nil {
		return Result{}, err
	} else if ok {
		return prev, nil
	}

	m := newMachine()
	v, err := s.Cart.View(ctx, user.ID)
	if err != nil {
		log.Warn("checkout cart load failed", zap.Error(err))
		return Result{State: Loading, Message: MsgCartLoadFailed}, nil
	}
	if err := m.to(Ready); err != nil {
		return Result{}, err
	}
	if v.Empty() {
		return Result{State: m.state, Message: MsgEmptyCart, Cart: &v}, nil
	}

	if err := m.to(Submitting); err != nil {
		return Result{}, err
	}
	if errs := f.Validate(); errs != nil {
		if err := m.to(ValidationFailed); err != nil {
			return Result{}, err
		}
		return Result{State: m.state, Errors: errs, Cart: &v}, nil
	}

	var res Result
	if f.Method == MethodMercadoPago {
		res = s.redirect(ctx, log, v)
	} else {
		res, err = s.placeLocal(ctx, log, user, idemKey, f, v)
		if err != nil {
			return Result{}, err
		}
	}
	if err := m.to(res.State); err != nil {
		return Result{}, err
	}
	if res.State.Terminal() {
		s.remember(ctx, log, user.ID, idemKey, res)
	}
	return res, nil
}

// redirect hands payment to the hosted provider. The cart stays as is.
func (s *Service) redirect(ctx context.Context, log *zap.Logger, v cart.View) Result {
	pref, err := s.API.CreatePreference(ctx, v.CartItems())
	if err != nil {
		log.Warn("create preference failed", zap.Error(err))
		return Result{State: SubmitFailed, Message: MsgServerDown, Cart: &v}
	}
	if pref.InitPoint == "" {
		return Result{State: SubmitFailed, Message: MsgNoPaymentLink, Cart: &v}
	}
	return Result{State: Redirected, Redirect: pref.InitPoint}
}

func (s *Service) placeLocal(ctx context.Context, log *zap.Logger, user *model.User, idemKey string, f Form, v cart.View) (Result, error) {
	o := orders.Order{
		ID:        orderID(user.ID, idemKey),
		UserID:    user.ID,
		Email:     user.Email,
		Method:    string(f.Method),
		Items:     v.CartItems(),
		Total:     v.Summary.Total,
		Shipping:  f.Shipping(),
		CreatedAt: s.now(),
	}
	// order history is best effort; the backend cart is what checkout settles
	if err := s.Orders.Save(ctx, o); err != nil {
		log.Error("save order snapshot failed", zap.String("order_id", o.ID), zap.Error(err))
	}

	if err := s.API.ClearCart(ctx, user.ID); err != nil {
		log.Warn("clear cart failed", zap.String("order_id", o.ID), zap.Error(err))
		msg := MsgClearFailed
		if errors.Is(err, backend.ErrRejected) {
			msg = MsgClearRejected
		}
		return Result{State: SubmitFailed, Message: msg, Cart: &v}, nil
	}

	s.Cart.Changed(ctx, user.ID)
	if s.Events != nil {
		s.Events.OrderPlaced(ctx, o)
	}
	log.Info("order placed", zap.String("order_id", o.ID), zap.String("method", o.Method), zap.Int64("total", o.Total))
	return Result{State: OrderPlaced, Message: MsgThanks, Redirect: "/", OrderID: o.ID}, nil
}

func (s *Service) replay(ctx context.Context, userID, idemKey string) (Result, bool, error) {
	if idemKey == "" {
		return Result{}, false, nil
	}
	b, err := s.RDB.Get(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, userID, idemKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("checkout replay: %w", err)
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return Result{}, false, nil
	}
	res.Replayed = true
	return res, true, nil
}

func (s *Service) remember(ctx context.Context, log *zap.Logger, userID, idemKey string, res Result) {
	if idemKey == "" {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.RDB.Set(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, userID, idemKey), b, redisx.TTLIdempotency).Err(); err != nil {
		log.Warn("store checkout result failed", zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// orderID is stable per idempotency key so a retried save lands on the
// same row.
func orderID(userID, idemKey string) string {
	if idemKey == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront:order:"+userID+":"+idemKey)).String()
}
