package expo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
)

// OrdersTopic is the bus topic observable order changes are published on.
const OrdersTopic = "expo.orders"

// Event types published on OrdersTopic.
const (
	EventOrderCreated = "expo.order.created"
	EventOrderChanged = "expo.order.changed"
)

// OrderChangedEvent is the bus payload for an observable change.
type OrderChangedEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Order          Order     `json:"order"`
}

// OrderDetailFetcher fetches the full order from the order source when a
// webhook event arrives without item data.
type OrderDetailFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*SourceEvent, error)
}

// ChangeResult reports what applying one event did.
type ChangeResult struct {
	Order          Order
	Created        bool
	Observable     bool
	PreviousStatus string
}

const defaultFetchTimeout = 3 * time.Second

// Engine orchestrates inbound events: it serializes every read-modify-write
// on the store behind one mutex, runs the reconciler, and on an observable
// change persists first, then broadcasts (durability before visibility).
// Persistence and publish failures are logged and never surface to the
// ingress caller.
type Engine struct {
	mu sync.Mutex

	store     *Store
	repo      OrderRepository
	hub       *Hub
	publisher events.Publisher
	fetcher   OrderDetailFetcher
	logger    apt.Logger

	fetchTimeout time.Duration
	now          func() time.Time
}

// EngineDeps carries the engine's collaborators. Repo, hub, publisher and
// fetcher are all optional; the engine degrades to in-memory-only operation
// without them.
type EngineDeps struct {
	Store     *Store
	Repo      OrderRepository
	Hub       *Hub
	Publisher events.Publisher
	Fetcher   OrderDetailFetcher
}

// NewEngine creates a reconciliation engine.
func NewEngine(deps EngineDeps, logger apt.Logger) *Engine {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	store := deps.Store
	if store == nil {
		store = NewStore()
	}
	return &Engine{
		store:        store,
		repo:         deps.Repo,
		hub:          deps.Hub,
		publisher:    deps.Publisher,
		fetcher:      deps.Fetcher,
		logger:       logger,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
}

// Store returns the engine's order store.
func (e *Engine) Store() *Store {
	return e.store
}

// SetFetchTimeout overrides the bound on the order-detail fetch.
func (e *Engine) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		e.fetchTimeout = d
	}
}

// ApplySource applies a normalized order-source event. When the event names
// an unseen order and carries no items, the engine asks the source for the
// full order first, bounded by the fetch timeout; on failure it proceeds
// with the partial event rather than blocking or rejecting it.
func (e *Engine) ApplySource(ctx context.Context, evt SourceEvent) ChangeResult {
	if evt.OrderID == "" {
		e.logger.Info("dropping source event without order id")
		return ChangeResult{}
	}

	if evt.Items == nil {
		if _, ok := e.store.Get(evt.OrderID); !ok {
			evt = e.enrichFromSource(ctx, evt)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var existing *Order
	if cur, ok := e.store.Get(evt.OrderID); ok {
		existing = &cur
	}

	next, observable := reconcileSource(existing, evt, e.now())
	e.store.Upsert(next)

	result := ChangeResult{
		Order:      next,
		Created:    existing == nil,
		Observable: observable,
	}
	if existing != nil {
		result.PreviousStatus = existing.Status
	}

	if observable {
		e.commit(ctx, result)
	}
	return result
}

// ApplyDisplay applies a kitchen-staff action. An event referencing an
// unknown order is a no-op, not an error.
func (e *Engine) ApplyDisplay(ctx context.Context, evt DisplayEvent) ChangeResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.resolve(evt)
	if !ok {
		e.logger.Info("dropping display event for unknown order",
			"type", evt.Type, "order_id", evt.OrderID, "order_number", evt.OrderNumber)
		return ChangeResult{}
	}

	next, observable := reconcileDisplay(existing, evt, e.now())
	e.store.Upsert(next)

	result := ChangeResult{
		Order:          next,
		Observable:     observable,
		PreviousStatus: existing.Status,
	}
	if observable {
		e.commit(ctx, result)
	}
	return result
}

func (e *Engine) resolve(evt DisplayEvent) (Order, bool) {
	if evt.OrderID != "" {
		return e.store.Get(evt.OrderID)
	}
	if evt.OrderNumber != "" {
		return e.store.GetByNumber(evt.OrderNumber)
	}
	return Order{}, false
}

// enrichFromSource fetches the full order detail within the fetch timeout.
// Any failure degrades to the original partial event.
func (e *Engine) enrichFromSource(ctx context.Context, evt SourceEvent) SourceEvent {
	if e.fetcher == nil {
		return evt
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	detail, err := e.fetcher.FetchOrder(fetchCtx, evt.OrderID)
	if err != nil {
		e.logger.Info("order detail fetch failed, proceeding with partial event",
			"order_id", evt.OrderID, "error", err)
		return evt
	}
	if detail == nil {
		return evt
	}

	evt.Items = detail.Items
	if evt.OrderNumberHint == "" {
		evt.OrderNumberHint = detail.OrderNumberHint
	}
	if evt.ServiceType == "" {
		evt.ServiceType = detail.ServiceType
	}
	if evt.Note == "" {
		evt.Note = detail.Note
	}
	return evt
}

// commit persists the snapshot and then broadcasts the change. Called with
// the engine mutex held so broadcasts observe completed writes in order.
func (e *Engine) commit(ctx context.Context, result ChangeResult) {
	if e.repo != nil {
		if err := e.repo.Save(ctx, e.store.List()); err != nil {
			e.logger.Errorf("cannot persist order snapshot: %v", err)
		}
	}

	if e.hub != nil {
		e.hub.Publish(result.Order)
	}

	if e.publisher != nil {
		eventType := EventOrderChanged
		if result.Created {
			eventType = EventOrderCreated
		}
		payload := OrderChangedEvent{
			EventType:      eventType,
			OccurredAt:     e.now().UTC(),
			PreviousStatus: result.PreviousStatus,
			Order:          result.Order,
		}
		data, _ := json.Marshal(payload)
		if err := e.publisher.Publish(ctx, OrdersTopic, data); err != nil {
			e.logger.Errorf("cannot publish %s event: %v", eventType, err)
		}
	}
}

// Restore loads the persisted snapshot into the store. Any load failure
// leaves the store empty and is non-fatal.
func (e *Engine) Restore(ctx context.Context) {
	if e.repo == nil {
		return
	}

	orders, err := e.repo.Load(ctx)
	if err != nil {
		e.logger.Info("cannot restore order snapshot, starting empty", "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Replace(orders)
	e.logger.Info("order store restored", "count", len(orders))
}

// Flush persists the current snapshot. Used by the shutdown lifecycle hook.
func (e *Engine) Flush(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	return e.repo.Save(ctx, e.store.List())
}
