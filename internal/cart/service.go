package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/notify"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// API is the slice of the backend client the cart needs.
type API interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetCart(ctx context.Context, userID string) ([]model.CartItem, error)
	AddToCart(ctx context.Context, userID, productID string, qty int) ([]model.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, productID string) ([]model.CartItem, error)
}

type Service struct {
	API    API
	Notify notify.Notifier
	RDB    redis.Cmdable // optional; nil disables the badge cache
	Log    *zap.Logger
}

// View fetches cart and catalog in parallel. Either failing fails the view;
// an empty cart is a valid result.
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	var (
		items    []model.CartItem
		products []model.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.API.GetCart(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.API.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return NewView(items, products), nil
}

func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (View, error) {
	if qty <= 0 {
		return View{}, ErrInvalidQuantity
	}
	if _, err := s.API.AddToCart(ctx, userID, productID, qty); err != nil {
		return View{}, err
	}
	s.Changed(ctx, userID)
	return s.View(ctx, userID)
}

// Decrement removes one unit; the backend drops the line at zero.
func (s *Service) Decrement(ctx context.Context, userID, productID string) (View, error) {
	if _, err := s.API.RemoveFromCart(ctx, userID, productID); err != nil {
		return View{}, err
	}
	s.Changed(ctx, userID)
	return s.View(ctx, userID)
}

// Changed is called after a cart mutation has completed on the backend.
func (s *Service) Changed(ctx context.Context, userID string) {
	s.Invalidate(ctx, userID)
	if s.Notify != nil {
		s.Notify.Notify(ctx, notify.Event{Kind: notify.CartChanged, UserID: userID})
	}
}

func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.RDB == nil {
		return
	}
	if err := s.RDB.Del(ctx, countKey(userID)).Err(); err != nil {
		logx.OrNop(s.Log).Warn("cart count invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Count is the header badge: cache-aside on cart_count:{user}.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	log := logx.OrNop(s.Log)
	if s.RDB != nil {
		v, err := s.RDB.Get(ctx, countKey(userID)).Result()
		switch {
		case err == nil:
			if n, convErr := strconv.Atoi(v); convErr == nil {
				return n, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Warn("cart count cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	items, err := s.API.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := Units(items)
	if err := s.StoreCount(ctx, userID, n); err != nil {
		log.Warn("cart count cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return n, nil
}

func (s *Service) StoreCount(ctx context.Context, userID string, n int) error {
	if s.RDB == nil {
		return nil
	}
	return s.RDB.Set(ctx, countKey(userID), n, redisx.TTLCartCount).Err()
}

func countKey(userID string) string { return fmt.Sprintf(redisx.KeyCartCount, userID) }
