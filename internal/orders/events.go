package orders

import (
	"encoding/json"
	"time"
)

const (
	EventCartChanged    = "CartChanged"
	EventSessionChanged = "SessionChanged"
	EventOrderPlaced    = "OrderPlaced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`           // e.g. "storefront-api"
	Instance      string          `json:"instance,omitempty"` // replica that emitted it
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // user_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

// CartChangedPayload carries no cart data: listeners re-fetch by user.
type CartChangedPayload struct {
	UserID string `json:"user_id"`
}

type SessionChangedPayload struct {
	UserID string `json:"user_id"`
}

type OrderPlacedPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Method  string `json:"method"`
	Units   int    `json:"units"`
	Total   int64  `json:"total"`
}
