// Package cartsync keeps the header badge count warm. It consumes
// CartChanged envelopes, re-fetches the user's cart from the backend and
// writes the unit count to Redis.
package cartsync

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
)

type Service struct {
	Cart        *cart.Service
	Redis       redis.Cmdable
	ServiceName string
	Log         *zap.Logger
}

// HandleCartChanged is installed as the consumer handler.
func (s *Service) HandleCartChanged(ctx context.Context, m kafkago.Message) error {
	log := logx.OrNop(s.Log)

	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		log.Warn("skip bad envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventCartChanged {
		return nil
	}

	// dedup on event_id; the claim is released if processing fails so a
	// redelivery gets another try
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	fresh, err := s.Redis.SetNX(ctx, dkey, "1", redisx.TTLDedup).Result()
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !fresh {
		return nil
	}

	userID, err := userOf(env, m)
	if err != nil {
		log.Warn("skip cart event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	items, err := s.Cart.API.GetCart(ctx, userID)
	if err != nil {
		_ = s.Redis.Del(ctx, dkey).Err()
		return fmt.Errorf("refresh cart %s: %w", userID, err)
	}
	n := cart.Units(items)
	if err := s.Cart.StoreCount(ctx, userID, n); err != nil {
		_ = s.Redis.Del(ctx, dkey).Err()
		return fmt.Errorf("store count %s: %w", userID, err)
	}
	log.Debug("badge refreshed", zap.String("user_id", userID), zap.Int("units", n), zap.String("producer", env.Producer))
	return nil
}

func userOf(env orders.Envelope, m kafkago.Message) (string, error) {
	p, err := kafkax.UnwrapPayload[orders.CartChangedPayload](env.Payload)
	if err == nil && p.UserID != "" {
		return p.UserID, nil
	}
	if env.CorrelationID != "" {
		return env.CorrelationID, nil
	}
	if len(m.Key) > 0 {
		return string(m.Key), nil
	}
	return "", fmt.Errorf("no user id in event %s", env.EventID)
}
