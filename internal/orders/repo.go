package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps local order snapshots.
type Store interface {
	Save(ctx context.Context, o Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

type Repo struct{ DB *pgxpool.Pool }

const schema = `
CREATE TABLE IF NOT EXISTS local_orders (
	id          UUID PRIMARY KEY,
	user_id     TEXT        NOT NULL,
	email       TEXT        NOT NULL,
	method      TEXT        NOT NULL,
	total       BIGINT      NOT NULL,
	items       JSONB       NOT NULL,
	shipping    JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS local_orders_user_idx ON local_orders (user_id, created_at DESC);
`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure local_orders: %w", err)
	}
	return nil
}

// Save upserts on the order id; a retried checkout replaces its earlier snapshot.
func (r *Repo) Save(ctx context.Context, o Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO local_orders(id, user_id, email, method, total, items, shipping, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			method = EXCLUDED.method,
			total = EXCLUDED.total,
			items = EXCLUDED.items,
			shipping = EXCLUDED.shipping,
			created_at = EXCLUDED.created_at
	`, o.ID, o.UserID, o.Email, o.Method, o.Total, items, shipping, o.CreatedAt)
	return err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id::text, user_id, email, method, total, items, shipping, created_at
		FROM local_orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var (
			o               Order
			items, shipping []byte
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Email, &o.Method, &o.Total, &items, &shipping, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("order %s items: %w", o.ID, err)
		}
		if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
			return nil, fmt.Errorf("order %s shipping: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MemoryStore is the process-local variant, lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	byUser map[string][]Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: map[string][]Order{}}
}

func (m *MemoryStore) Save(_ context.Context, o Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[o.UserID]
	for i := range list {
		if list[i].ID == o.ID {
			list[i] = o
			return nil
		}
	}
	m.byUser[o.UserID] = append(list, o)
	return nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	out := append([]Order{}, m.byUser[userID]...)
	m.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
