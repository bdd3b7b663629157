package expo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/expo/internal/enums/orderstatus"
)

// Order is one kitchen ticket. The store owns every record; callers always
// receive copies and write back whole records through Upsert.
type Order struct {
	ID            string    `bson:"_id" json:"id"`
	Number        string    `bson:"number,omitempty" json:"number,omitempty"`
	Status        string    `bson:"status" json:"status"`
	Items         []Item    `bson:"items" json:"items"`
	ItemCount     int       `bson:"item_count" json:"item_count"`
	IsPrioritized bool      `bson:"is_prioritized" json:"is_prioritized"`
	SourceState   string    `bson:"source_state,omitempty" json:"source_state,omitempty"`
	ServiceType   string    `bson:"service_type,omitempty" json:"service_type,omitempty"`
	Note          string    `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`

	ModelVersion int `bson:"model_version" json:"model_version"`
}

// Item is one line within an order.
type Item struct {
	Name      string   `bson:"name" json:"name"`
	Quantity  int      `bson:"quantity" json:"quantity"`
	Modifiers []string `bson:"modifiers,omitempty" json:"modifiers,omitempty"`
	Completed bool     `bson:"completed" json:"completed"`
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	out := o
	out.Items = cloneItems(o.Items)
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Modifiers != nil {
			out[i].Modifiers = append([]string(nil), it.Modifiers...)
		}
	}
	return out
}

// SumQuantities recomputes the cached item count from the current items.
func SumQuantities(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// SourceEvent is a normalized update from the order source (POS webhook or
// the pos.orders bus topic). A nil Items slice means the source did not
// supply an item list; previously stored items are reused.
type SourceEvent struct {
	OrderID         string       `json:"order_id"`
	SourceState     string       `json:"state"`
	OrderNumberHint string       `json:"order_number,omitempty"`
	Items           []SourceItem `json:"items,omitempty"`
	ServiceType     string       `json:"service_type,omitempty"`
	Note            string       `json:"note,omitempty"`
}

// SourceItem is one raw line item as delivered by the order source.
// Quantity is left untyped because the source has been observed sending
// numbers, numeric strings, junk strings and null for the same field.
type SourceItem struct {
	Name      string   `json:"name"`
	Variant   string   `json:"variant,omitempty"`
	Quantity  any      `json:"quantity"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Display event types, as sent by connected display sessions.
const (
	DisplayMarkReady      = "mark-ready"
	DisplayMarkDone       = "mark-done"
	DisplayReactivate     = "reactivate"
	DisplayCancel         = "cancel"
	DisplayItemToggle     = "item-toggle"
	DisplayPriorityToggle = "priority-toggle"
	DisplaySyncRequest    = "sync-request"
)

// DisplayEvent is a normalized kitchen-staff action. Orders are addressed by
// ID when the display has one, by ticket number otherwise.
type DisplayEvent struct {
	Type          string `json:"type"`
	OrderID       string `json:"order_id,omitempty"`
	OrderNumber   string `json:"order_number,omitempty"`
	ItemIndex     int    `json:"item_index,omitempty"`
	Completed     bool   `json:"completed,omitempty"`
	IsPrioritized bool   `json:"is_prioritized,omitempty"`
}

// NormalizeItems converts raw source items into stored items. Quantities
// are normalized per NormalizeQuantity; names combine the base product name
// with the variant label when the two differ.
func NormalizeItems(raw []SourceItem) []Item {
	if raw == nil {
		return nil
	}
	items := make([]Item, 0, len(raw))
	for _, ri := range raw {
		items = append(items, Item{
			Name:      itemDisplayName(ri.Name, ri.Variant),
			Quantity:  NormalizeQuantity(ri.Quantity),
			Modifiers: append([]string(nil), ri.Modifiers...),
		})
	}
	return items
}

func itemDisplayName(base, variant string) string {
	base = strings.TrimSpace(base)
	variant = strings.TrimSpace(variant)
	if variant == "" || strings.EqualFold(base, variant) {
		return base
	}
	if base == "" {
		return variant
	}
	return fmt.Sprintf("%s (%s)", base, variant)
}

// NormalizeQuantity coerces whatever the source sent into a non-negative
// count. Missing or non-numeric input becomes 1; an explicit numeric zero
// stays 0; negatives clamp to 0.
func NormalizeQuantity(v any) int {
	switch q := v.(type) {
	case nil:
		return 1
	case int:
		return clampQuantity(q)
	case int64:
		return clampQuantity(int(q))
	case float64:
		return clampQuantity(int(q))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return 1
		}
		return clampQuantity(n)
	default:
		return 1
	}
}

func clampQuantity(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// NormalizeSourceState collapses the status-string variants observed from
// the order source into the two codes the reconciler acts on: "canceled",
// "cancelled", "voided" and "closed" all report order termination; anything
// else is a generic open update.
const (
	sourceCancelled = "cancelled"
	sourceOpen      = "open"
)

func NormalizeSourceState(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "canceled", "cancelled", "voided", "closed":
		return sourceCancelled
	default:
		return sourceOpen
	}
}

func isTerminal(status string) bool {
	return orderstatus.IsTerminal(status)
}
