package expo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

const sseKeepalive = 30 * time.Second

// Handler exposes the two ingress surfaces: the POS webhook and the display
// sessions (actions in over HTTP, state out over SSE). Both are thin
// adapters; every rule lives in the engine and reconciler.
type Handler struct {
	engine *Engine
	hub    *Hub
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
}

// NewHandler creates the HTTP handler.
func NewHandler(engine *Engine, hub *Hub, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		engine: engine,
		hub:    hub,
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/orders", h.OrderWebhook)
	})

	r.Route("/displays", func(r chi.Router) {
		r.Get("/orders", h.ListOrders)
		r.Post("/orders", h.CreateTestOrder)
		r.Post("/orders/{id}/ready", h.MarkReady)
		r.Post("/orders/{id}/done", h.MarkDone)
		r.Post("/orders/{id}/cancel", h.Cancel)
		r.Post("/orders/{id}/reactivate", h.Reactivate)
		r.Post("/orders/{id}/priority", h.TogglePriority)
		r.Post("/orders/{id}/items/{index}", h.ToggleItem)
		r.Get("/stream", h.Stream)
		r.Post("/sessions/{id}/sync", h.SyncSession)
	})
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

// OrderWebhook ingests a POS order event. The webhook caller is always
// acknowledged: malformed payloads are logged and dropped, never rejected,
// so the source does not retry-storm over input we cannot use anyway.
func (h *Handler) OrderWebhook(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OrderWebhook")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Info("cannot read webhook body", "error", err)
		apt.RespondSuccess(w, map[string]any{"accepted": false})
		return
	}

	var evt SourceEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		log.Info("dropping malformed webhook payload", "error", err)
		apt.RespondSuccess(w, map[string]any{"accepted": false})
		return
	}
	if evt.OrderID == "" {
		log.Info("dropping webhook payload without order id")
		apt.RespondSuccess(w, map[string]any{"accepted": false})
		return
	}

	result := h.engine.ApplySource(ctx, evt)
	apt.RespondSuccess(w, map[string]any{
		"accepted":   true,
		"observable": result.Observable,
	})
}

// ListOrders returns the full snapshot, same content as an SSE full-sync.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	apt.RespondSuccess(w, map[string]any{
		"orders": h.engine.Store().List(),
	})
}

// CreateTestOrder creates a manual order through the source path with a
// synthetic ID, for displays exercising the board without a live POS.
func (h *Handler) CreateTestOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTestOrder")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var payload struct {
		OrderNumber string       `json:"order_number"`
		Items       []SourceItem `json:"items"`
		ServiceType string       `json:"service_type"`
		Note        string       `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	evt := SourceEvent{
		OrderID:         "test-" + uuid.New().String(),
		SourceState:     "open",
		OrderNumberHint: payload.OrderNumber,
		Items:           payload.Items,
		ServiceType:     payload.ServiceType,
		Note:            payload.Note,
	}
	if evt.Items == nil {
		evt.Items = []SourceItem{}
	}

	result := h.engine.ApplySource(ctx, evt)
	log.Info("test order created", "order_id", result.Order.ID)
	apt.RespondSuccess(w, result.Order)
}

func (h *Handler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, DisplayMarkReady)
}

func (h *Handler) MarkDone(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, DisplayMarkDone)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, DisplayCancel)
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, DisplayReactivate)
}

// TogglePriority flips or sets the rush flag on an order.
func (h *Handler) TogglePriority(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.TogglePriority")
	defer finish()
	ctx := r.Context()

	var payload struct {
		IsPrioritized bool `json:"is_prioritized"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&payload); err != nil && err != io.EOF {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	result := h.engine.ApplyDisplay(ctx, DisplayEvent{
		Type:          DisplayPriorityToggle,
		OrderID:       chi.URLParam(r, "id"),
		IsPrioritized: payload.IsPrioritized,
	})
	apt.RespondSuccess(w, result.Order)
}

// ToggleItem sets one item's completed flag.
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleItem")
	defer finish()
	ctx := r.Context()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid item index")
		return
	}

	var payload struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&payload); err != nil && err != io.EOF {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	result := h.engine.ApplyDisplay(ctx, DisplayEvent{
		Type:      DisplayItemToggle,
		OrderID:   chi.URLParam(r, "id"),
		ItemIndex: index,
		Completed: payload.Completed,
	})
	apt.RespondSuccess(w, result.Order)
}

func (h *Handler) applyAction(w http.ResponseWriter, r *http.Request, action string) {
	w, r, finish := h.tlm.Start(w, r, fmt.Sprintf("Handler.%s", action))
	defer finish()
	ctx := r.Context()

	result := h.engine.ApplyDisplay(ctx, DisplayEvent{
		Type:    action,
		OrderID: chi.URLParam(r, "id"),
	})
	// Unknown orders are a deliberate no-op, still acknowledged.
	apt.RespondSuccess(w, result.Order)
}

// SyncSession resends the full snapshot to one connected display session.
func (h *Handler) SyncSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SyncSession")
	defer finish()

	h.hub.Sync(chi.URLParam(r, "id"))
	apt.RespondSuccess(w, map[string]any{"synced": true})
}

// Stream is the SSE endpoint a display session holds open. The first frame
// names the session (for sync requests), the second is a full snapshot,
// then order-changed deltas follow as they happen.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sessionID := uuid.New().String()
	messages := h.hub.Subscribe(sessionID)
	defer h.hub.Unsubscribe(sessionID)

	fmt.Fprintf(w, "retry: 2000\n\n")
	writeSSE(w, "session", fmt.Sprintf(`{"session_id":%q}`, sessionID))

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE display disconnected", "session_id", sessionID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		case msg, ok := <-messages:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Errorf("cannot marshal hub message: %v", err)
				continue
			}
			writeSSE(w, msg.Type, string(data))
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType, data string) {
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
