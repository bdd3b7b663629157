package expo

import "context"

// OrderRepository snapshots the order store to durable storage and restores
// it at startup. Both operations work on the full store content; durability
// is best effort and a Load failure always yields an empty store rather
// than preventing startup.
type OrderRepository interface {
	Save(ctx context.Context, orders []Order) error
	Load(ctx context.Context) ([]Order, error)
}
