package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
)

// Kafka republishes events as v1 envelopes, one topic per kind. Instance
// identifies this replica; replicas of one service share Service.
type Kafka struct {
	Cart     orders.Publisher
	Session  orders.Publisher
	Service  string
	Instance string
}

func (k *Kafka) Notify(_ context.Context, ev Event) {
	var (
		pub       orders.Publisher
		eventType string
		payload   []byte
	)
	switch ev.Kind {
	case CartChanged:
		pub, eventType = k.Cart, orders.EventCartChanged
		payload = kafkax.MustMarshal(orders.CartChangedPayload{UserID: ev.UserID})
	case SessionChanged:
		pub, eventType = k.Session, orders.EventSessionChanged
		payload = kafkax.MustMarshal(orders.SessionChangedPayload{UserID: ev.UserID})
	default:
		return
	}
	if pub == nil {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      k.Service,
		Instance:      k.Instance,
		CorrelationID: ev.UserID,
		Payload:       payload,
	}
	pub.Publish(orders.PartitionKey(ev.UserID), kafkax.MustMarshal(env), orders.Headers(eventType)...)
}

// FanIn forwards envelopes published by other replicas into the hub.
// Envelopes whose Instance is self are skipped; the hub already saw them.
func FanIn(h *Hub, self string, log *zap.Logger) kafkax.Handler {
	log = logx.OrNop(log)
	return func(ctx context.Context, m kafkago.Message) error {
		var env orders.Envelope
		if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
			log.Warn("fan-in: bad envelope", zap.Error(err))
			return nil // poison message, commit and move on
		}
		if self != "" && env.Instance == self {
			return nil
		}
		var kind Kind
		switch env.EventType {
		case orders.EventCartChanged:
			kind = CartChanged
		case orders.EventSessionChanged:
			kind = SessionChanged
		default:
			return nil
		}
		userID := env.CorrelationID
		if userID == "" {
			userID = string(m.Key)
		}
		h.Notify(ctx, Event{Kind: kind, UserID: userID})
		return nil
	}
}
