package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
)

// Publisher is satisfied by *kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// EventPublisher emits OrderPlaced envelopes.
type EventPublisher struct {
	Producer Publisher
	Service  string
}

func (p *EventPublisher) OrderPlaced(ctx context.Context, o Order) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: o.UserID,
		Payload: kafkax.MustMarshal(OrderPlacedPayload{
			OrderID: o.ID, UserID: o.UserID, Method: o.Method, Units: o.Units(), Total: o.Total,
		}),
	}
	p.Producer.Publish(PartitionKey(o.UserID), kafkax.MustMarshal(ev), Headers(EventOrderPlaced)...)
}

func Headers(eventType string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}
