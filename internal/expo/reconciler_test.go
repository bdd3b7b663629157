package expo

import (
	"testing"
	"time"

	"github.com/appetiteclub/expo/internal/enums/orderstatus"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func openEvent(orderID string, items []SourceItem) SourceEvent {
	return SourceEvent{
		OrderID:     orderID,
		SourceState: "OPEN",
		Items:       items,
	}
}

func TestReconcileSourceCreatesOrder(t *testing.T) {
	evt := SourceEvent{
		OrderID:         "o1",
		SourceState:     "OPEN",
		OrderNumberHint: "42",
		ServiceType:     "dine-in",
		Note:            "table by the window",
		Items: []SourceItem{
			{Name: "Ramen", Quantity: float64(2)},
		},
	}

	next, observable := reconcileSource(nil, evt, testNow)

	if !observable {
		t.Error("creating an order must be observable")
	}
	if next.Status != orderstatus.Statuses.New.Code() {
		t.Errorf("status = %q, want %q", next.Status, "new")
	}
	if next.Number != "42" {
		t.Errorf("number = %q, want %q", next.Number, "42")
	}
	if next.ItemCount != 2 {
		t.Errorf("item count = %d, want 2", next.ItemCount)
	}
	if !next.CreatedAt.Equal(testNow) {
		t.Errorf("created at = %v, want %v", next.CreatedAt, testNow)
	}
	if next.ServiceType != "dine-in" || next.Note != "table by the window" {
		t.Errorf("metadata not carried: %q %q", next.ServiceType, next.Note)
	}
}

func TestReconcileSourceCreatesCancelledOrder(t *testing.T) {
	evt := SourceEvent{OrderID: "o1", SourceState: "canceled"}

	next, observable := reconcileSource(nil, evt, testNow)

	if !observable {
		t.Error("creation must be observable")
	}
	if next.Status != orderstatus.Statuses.Cancelled.Code() {
		t.Errorf("status = %q, want cancelled", next.Status)
	}
}

func TestReconcileSourceCancellationOverridesLock(t *testing.T) {
	// Lock exception: source cancellation always lands, even on ready.
	existing := &Order{
		ID:     "o1",
		Status: orderstatus.Statuses.Ready.Code(),
		Items:  []Item{{Name: "Pho", Quantity: 1, Completed: true}},
	}

	next, observable := reconcileSource(existing, SourceEvent{OrderID: "o1", SourceState: "canceled"}, testNow)

	if !observable {
		t.Error("cancellation must be observable")
	}
	if next.Status != orderstatus.Statuses.Cancelled.Code() {
		t.Errorf("status = %q, want cancelled", next.Status)
	}
}

func TestReconcileSourceRedundantCancellation(t *testing.T) {
	existing := &Order{ID: "o1", Status: orderstatus.Statuses.Cancelled.Code()}

	_, observable := reconcileSource(existing, SourceEvent{OrderID: "o1", SourceState: "canceled"}, testNow)

	if observable {
		t.Error("cancelling a cancelled order must not be observable")
	}
}

func TestReconcileSourceStatusLock(t *testing.T) {
	for _, status := range []string{"ready", "done", "cancelled"} {
		t.Run(status, func(t *testing.T) {
			existing := &Order{
				ID:     "o1",
				Status: status,
				Items:  []Item{{Name: "Pho", Quantity: 1, Completed: true}},
			}

			evt := openEvent("o1", []SourceItem{{Name: "Pad Thai", Quantity: float64(3)}})
			next, observable := reconcileSource(existing, evt, testNow)

			if observable {
				t.Error("a generic source update on a locked order must not be observable")
			}
			if next.Status != status {
				t.Errorf("status = %q, want unchanged %q", next.Status, status)
			}
			if len(next.Items) != 1 || next.Items[0].Name != "Pho" {
				t.Errorf("items changed under lock: %+v", next.Items)
			}
			// The raw source state is still recorded for diagnostics.
			if next.SourceState != "OPEN" {
				t.Errorf("source state = %q, want OPEN", next.SourceState)
			}
		})
	}
}

func TestReconcileSourceRedundantUpdateNotObservable(t *testing.T) {
	items := []SourceItem{{Name: "Ramen", Quantity: float64(1)}}
	created, _ := reconcileSource(nil, openEvent("o1", items), testNow)

	_, observable := reconcileSource(&created, openEvent("o1", items), testNow.Add(time.Minute))

	if observable {
		t.Error("a source update with unchanged content must not be observable")
	}
}

func TestReconcileSourceReplacesItemsPreservingFlags(t *testing.T) {
	existing := &Order{
		ID:     "o1",
		Status: orderstatus.Statuses.InProgress.Code(),
		Items: []Item{
			{Name: "Ramen", Quantity: 1, Completed: true},
			{Name: "Gyoza", Quantity: 1},
		},
	}

	evt := openEvent("o1", []SourceItem{
		{Name: "Ramen", Quantity: float64(1)},
		{Name: "Gyoza", Quantity: float64(2)},
		{Name: "Mochi", Quantity: float64(1)},
	})

	next, observable := reconcileSource(existing, evt, testNow)

	if !observable {
		t.Error("an item list change must be observable")
	}
	if next.Status != orderstatus.Statuses.InProgress.Code() {
		t.Errorf("status = %q, want unchanged in-progress", next.Status)
	}
	if !next.Items[0].Completed {
		t.Error("completed flag lost for position 0")
	}
	if next.Items[1].Completed {
		t.Error("position 1 was never completed")
	}
	if next.Items[2].Completed {
		t.Error("a new item must default to not completed")
	}
	if next.ItemCount != 4 {
		t.Errorf("item count = %d, want 4", next.ItemCount)
	}
}

func TestReconcileSourceKeepsItemsWhenOmitted(t *testing.T) {
	existing := &Order{
		ID:     "o1",
		Status: orderstatus.Statuses.InProgress.Code(),
		Items:  []Item{{Name: "Ramen", Quantity: 2, Completed: true}},
	}

	next, observable := reconcileSource(existing, SourceEvent{OrderID: "o1", SourceState: "OPEN"}, testNow)

	if observable {
		t.Error("an update without items or new metadata must not be observable")
	}
	if len(next.Items) != 1 || next.Items[0].Name != "Ramen" || !next.Items[0].Completed {
		t.Errorf("stored items must be reused: %+v", next.Items)
	}
}

func TestReconcileSourceNumberNeverRegressed(t *testing.T) {
	existing := &Order{ID: "o1", Number: "42", Status: "new", Items: []Item{}}

	next, _ := reconcileSource(existing, SourceEvent{OrderID: "o1", SourceState: "OPEN"}, testNow)
	if next.Number != "42" {
		t.Errorf("number = %q, an absent hint must not clear the number", next.Number)
	}

	next, observable := reconcileSource(existing, SourceEvent{OrderID: "o1", SourceState: "OPEN", OrderNumberHint: "B-42"}, testNow)
	if !observable || next.Number != "B-42" {
		t.Errorf("number = %q observable=%v, a new hint must refine the number", next.Number, observable)
	}
}

func TestReconcileDisplayMarkReady(t *testing.T) {
	existing := Order{
		ID:     "o1",
		Status: orderstatus.Statuses.InProgress.Code(),
		Items: []Item{
			{Name: "Ramen", Quantity: 1},
			{Name: "Gyoza", Quantity: 1, Completed: true},
		},
	}

	next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayMarkReady, OrderID: "o1"}, testNow)

	if !observable {
		t.Error("mark-ready must be observable")
	}
	if next.Status != orderstatus.Statuses.Ready.Code() {
		t.Errorf("status = %q, want ready", next.Status)
	}
	for i, it := range next.Items {
		if !it.Completed {
			t.Errorf("item %d not forced to completed", i)
		}
	}
}

func TestReconcileDisplayMarkReadyOnTerminal(t *testing.T) {
	for _, status := range []string{"ready", "done", "cancelled"} {
		existing := Order{ID: "o1", Status: status}
		next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayMarkReady, OrderID: "o1"}, testNow)
		if observable || next.Status != status {
			t.Errorf("mark-ready on %s: observable=%v status=%q, want no-op", status, observable, next.Status)
		}
	}
}

func TestReconcileDisplayMarkDone(t *testing.T) {
	existing := Order{
		ID:     "o1",
		Status: orderstatus.Statuses.Ready.Code(),
		Items:  []Item{{Name: "Ramen", Quantity: 1, Completed: true}},
	}

	next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayMarkDone, OrderID: "o1"}, testNow)

	if !observable || next.Status != orderstatus.Statuses.Done.Code() {
		t.Errorf("bump from ready: observable=%v status=%q, want done", observable, next.Status)
	}

	for _, status := range []string{"done", "cancelled"} {
		existing := Order{ID: "o1", Status: status}
		if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayMarkDone, OrderID: "o1"}, testNow); observable {
			t.Errorf("mark-done on %s must be a no-op", status)
		}
	}
}

func TestReconcileDisplayCancel(t *testing.T) {
	for _, status := range []string{"new", "in-progress", "ready", "done"} {
		existing := Order{ID: "o1", Status: status}
		next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayCancel, OrderID: "o1"}, testNow)
		if !observable || next.Status != orderstatus.Statuses.Cancelled.Code() {
			t.Errorf("cancel from %s: observable=%v status=%q, want cancelled", status, observable, next.Status)
		}
	}

	existing := Order{ID: "o1", Status: "cancelled"}
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayCancel, OrderID: "o1"}, testNow); observable {
		t.Error("cancelling a cancelled order must not be observable")
	}
}

func TestReconcileDisplayReactivateResetsItems(t *testing.T) {
	for _, status := range []string{"ready", "done", "cancelled"} {
		t.Run(status, func(t *testing.T) {
			existing := Order{
				ID:     "o1",
				Status: status,
				Items: []Item{
					{Name: "Ramen", Quantity: 1, Completed: true},
					{Name: "Gyoza", Quantity: 2, Completed: true},
				},
			}

			next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayReactivate, OrderID: "o1"}, testNow)

			if !observable {
				t.Error("reactivation must be observable")
			}
			if next.Status != orderstatus.Statuses.InProgress.Code() {
				t.Errorf("status = %q, want in-progress", next.Status)
			}
			for i, it := range next.Items {
				if it.Completed {
					t.Errorf("item %d completed flag not reset", i)
				}
			}
		})
	}

	existing := Order{ID: "o1", Status: "in-progress"}
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayReactivate, OrderID: "o1"}, testNow); observable {
		t.Error("reactivating a live order must be a no-op")
	}
}

func TestReconcileDisplayItemToggle(t *testing.T) {
	existing := Order{
		ID:     "o1",
		Status: orderstatus.Statuses.New.Code(),
		Items: []Item{
			{Name: "Ramen", Quantity: 1},
			{Name: "Gyoza", Quantity: 1},
		},
	}

	// First touched item moves the order to in-progress.
	next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: 0, Completed: true}, testNow)
	if !observable {
		t.Error("item toggle must be observable")
	}
	if next.Status != orderstatus.Statuses.InProgress.Code() {
		t.Errorf("status = %q, want in-progress after first item", next.Status)
	}

	// Completing the last incomplete item auto-promotes to ready.
	next, observable = reconcileDisplay(next, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: 1, Completed: true}, testNow)
	if !observable {
		t.Error("item toggle must be observable")
	}
	if next.Status != orderstatus.Statuses.Ready.Code() {
		t.Errorf("status = %q, want ready after all items completed", next.Status)
	}
	for i, it := range next.Items {
		if !it.Completed {
			t.Errorf("item %d must be completed", i)
		}
	}
}

func TestReconcileDisplayItemToggleNoops(t *testing.T) {
	existing := Order{
		ID:     "o1",
		Status: orderstatus.Statuses.InProgress.Code(),
		Items:  []Item{{Name: "Ramen", Quantity: 1, Completed: true}},
	}

	// Out of range.
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: 5, Completed: true}, testNow); observable {
		t.Error("out-of-range index must be a no-op")
	}
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: -1, Completed: true}, testNow); observable {
		t.Error("negative index must be a no-op")
	}

	// Toggling to the current value.
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: 0, Completed: true}, testNow); observable {
		t.Error("setting an item to its current state must be a no-op")
	}

	// Locked order.
	locked := Order{ID: "o1", Status: "ready", Items: []Item{{Name: "Ramen", Quantity: 1, Completed: true}}}
	if _, observable := reconcileDisplay(locked, DisplayEvent{Type: DisplayItemToggle, OrderID: "o1", ItemIndex: 0, Completed: false}, testNow); observable {
		t.Error("item toggle on a locked order must be a no-op")
	}
}

func TestReconcileDisplayPriorityToggle(t *testing.T) {
	// Priority is independent of status, terminal included.
	for _, status := range []string{"new", "in-progress", "ready", "done", "cancelled"} {
		existing := Order{ID: "o1", Status: status}
		next, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayPriorityToggle, OrderID: "o1", IsPrioritized: true}, testNow)
		if !observable || !next.IsPrioritized {
			t.Errorf("priority toggle on %s: observable=%v prioritized=%v", status, observable, next.IsPrioritized)
		}
		if next.Status != status {
			t.Errorf("priority toggle must not touch status, got %q", next.Status)
		}
	}

	existing := Order{ID: "o1", Status: "new", IsPrioritized: true}
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: DisplayPriorityToggle, OrderID: "o1", IsPrioritized: true}, testNow); observable {
		t.Error("setting priority to its current value must be a no-op")
	}
}

func TestReconcileDisplayUnknownType(t *testing.T) {
	existing := Order{ID: "o1", Status: "new"}
	if _, observable := reconcileDisplay(existing, DisplayEvent{Type: "nonsense", OrderID: "o1"}, testNow); observable {
		t.Error("unknown display event types must be a no-op")
	}
}
