package redisx

import "time"

const (
	// Session: session:{token} -> sanitized user JSON
	KeySession = "session:%s"

	// Header badge: cart_count:{user_id} -> total units in cart
	KeyCartCount = "cart_count:%s"

	// Checkout in-flight guard: checkout:inflight:{user_id} -> lock token
	KeyCheckoutInflight = "checkout:inflight:%s"

	// Checkout replay: idem:checkout:{user_id}:{idempotency_key} -> result JSON
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCartCount   = 2 * time.Minute
	TTLInflight    = 30 * time.Second
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
