package expo

import (
	"time"

	"github.com/appetiteclub/expo/internal/enums/orderstatus"
)

// The reconciler is the only place order status is decided. Two authorities
// feed it: the order source (webhook / pos.orders bus) and display sessions.
// Source updates must never regress a status the kitchen has already
// advanced past new/in-progress — a late "open" event from the source would
// otherwise resurrect a ticket the kitchen finished. Source cancellation is
// the sole exception: the source owns the order's existence.

// reconcileSource computes the next state of an order for a source event.
// existing == nil means the order ID has not been seen before. The returned
// bool reports whether the change is observable (worth persisting and
// broadcasting); the sourceState diagnostic field alone never is.
func reconcileSource(existing *Order, evt SourceEvent, now time.Time) (Order, bool) {
	if existing == nil {
		next := Order{
			ID:           evt.OrderID,
			Number:       evt.OrderNumberHint,
			Status:       orderstatus.Statuses.New.Code(),
			Items:        NormalizeItems(evt.Items),
			SourceState:  evt.SourceState,
			ServiceType:  evt.ServiceType,
			Note:         evt.Note,
			CreatedAt:    now,
			UpdatedAt:    now,
			ModelVersion: 1,
		}
		if next.Items == nil {
			next.Items = []Item{}
		}
		if NormalizeSourceState(evt.SourceState) == sourceCancelled {
			next.Status = orderstatus.Statuses.Cancelled.Code()
		}
		next.ItemCount = SumQuantities(next.Items)
		return next, true
	}

	next := existing.Clone()
	next.SourceState = evt.SourceState

	if NormalizeSourceState(evt.SourceState) == sourceCancelled {
		if existing.Status == orderstatus.Statuses.Cancelled.Code() {
			return next, false
		}
		next.Status = orderstatus.Statuses.Cancelled.Code()
		next.UpdatedAt = now
		return next, true
	}

	// Status lock: a generic source update never touches an order the
	// kitchen already advanced to ready/done/cancelled.
	if isTerminal(existing.Status) {
		return next, false
	}

	changed := false

	if evt.Items != nil {
		items := NormalizeItems(evt.Items)
		// No stable item identity from the source; completed flags carry
		// over by position, defaulting to false for added lines.
		for i := range items {
			if i < len(existing.Items) {
				items[i].Completed = existing.Items[i].Completed
			}
		}
		if !itemsEqual(existing.Items, items) {
			next.Items = items
			changed = true
		}
		if existing.ServiceType != evt.ServiceType || existing.Note != evt.Note {
			next.ServiceType = evt.ServiceType
			next.Note = evt.Note
			changed = true
		}
	}

	// A ticket number is only ever refined, never cleared.
	if evt.OrderNumberHint != "" && evt.OrderNumberHint != existing.Number {
		next.Number = evt.OrderNumberHint
		changed = true
	}

	if changed {
		next.UpdatedAt = now
	}
	next.ItemCount = SumQuantities(next.Items)
	return next, changed
}

// reconcileDisplay computes the next state of an order for a kitchen-staff
// action. Callers resolve the order first; unknown orders never reach here.
func reconcileDisplay(existing Order, evt DisplayEvent, now time.Time) (Order, bool) {
	next := existing.Clone()
	changed := false

	switch evt.Type {
	case DisplayCancel:
		if existing.Status != orderstatus.Statuses.Cancelled.Code() {
			next.Status = orderstatus.Statuses.Cancelled.Code()
			changed = true
		}

	case DisplayMarkReady:
		if !isTerminal(existing.Status) {
			next.Status = orderstatus.Statuses.Ready.Code()
			setAllCompleted(next.Items, true)
			changed = true
		}

	case DisplayMarkDone:
		// Bump: ready is the normal origin but any live ticket can be
		// bumped straight through.
		switch existing.Status {
		case orderstatus.Statuses.Done.Code(), orderstatus.Statuses.Cancelled.Code():
		default:
			next.Status = orderstatus.Statuses.Done.Code()
			setAllCompleted(next.Items, true)
			changed = true
		}

	case DisplayReactivate:
		if isTerminal(existing.Status) {
			next.Status = orderstatus.Statuses.InProgress.Code()
			setAllCompleted(next.Items, false)
			changed = true
		}

	case DisplayItemToggle:
		if isTerminal(existing.Status) {
			break
		}
		if evt.ItemIndex < 0 || evt.ItemIndex >= len(next.Items) {
			break
		}
		if next.Items[evt.ItemIndex].Completed == evt.Completed {
			break
		}
		next.Items[evt.ItemIndex].Completed = evt.Completed
		changed = true

		if allCompleted(next.Items) {
			next.Status = orderstatus.Statuses.Ready.Code()
		} else if evt.Completed && existing.Status == orderstatus.Statuses.New.Code() {
			next.Status = orderstatus.Statuses.InProgress.Code()
		}

	case DisplayPriorityToggle:
		if existing.IsPrioritized != evt.IsPrioritized {
			next.IsPrioritized = evt.IsPrioritized
			changed = true
		}
	}

	if changed {
		next.UpdatedAt = now
	}
	next.ItemCount = SumQuantities(next.Items)
	return next, changed
}

func setAllCompleted(items []Item, completed bool) {
	for i := range items {
		items[i].Completed = completed
	}
}

func allCompleted(items []Item) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !it.Completed {
			return false
		}
	}
	return true
}

func itemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name ||
			a[i].Quantity != b[i].Quantity ||
			a[i].Completed != b[i].Completed {
			return false
		}
		if len(a[i].Modifiers) != len(b[i].Modifiers) {
			return false
		}
		for j := range a[i].Modifiers {
			if a[i].Modifiers[j] != b[i].Modifiers[j] {
				return false
			}
		}
	}
	return true
}
