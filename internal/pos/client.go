package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/expo/internal/expo"
)

// ErrNotFound is returned when the order source does not know the order.
var ErrNotFound = errors.New("order not found")

// Client fetches full order details from the order source's HTTP API when
// a webhook event arrives without item data. Every call is bounded by the
// client timeout on top of whatever deadline the caller's context carries.
type Client struct {
	baseURL string
	client  *http.Client
}

// orderDetail is the source's order document, reduced to the fields the
// engine consumes.
type orderDetail struct {
	ID          string       `json:"id"`
	State       string       `json:"state"`
	OrderNumber string       `json:"order_number"`
	ServiceType string       `json:"service_type"`
	Note        string       `json:"note"`
	LineItems   []lineItem   `json:"line_items"`
}

type lineItem struct {
	Name      string     `json:"name"`
	Variant   string     `json:"variation_name"`
	Quantity  any        `json:"quantity"`
	Modifiers []modifier `json:"modifiers"`
}

type modifier struct {
	Name string `json:"name"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchOrder retrieves the full order and converts it into the normalized
// source-event shape the engine consumes.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*expo.SourceEvent, error) {
	url := fmt.Sprintf("%s/v2/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var detail orderDetail
		if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return toSourceEvent(orderID, detail), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
}

func toSourceEvent(orderID string, detail orderDetail) *expo.SourceEvent {
	evt := &expo.SourceEvent{
		OrderID:         orderID,
		SourceState:     detail.State,
		OrderNumberHint: detail.OrderNumber,
		ServiceType:     detail.ServiceType,
		Note:            detail.Note,
		Items:           make([]expo.SourceItem, 0, len(detail.LineItems)),
	}
	for _, li := range detail.LineItems {
		item := expo.SourceItem{
			Name:     li.Name,
			Variant:  li.Variant,
			Quantity: li.Quantity,
		}
		for _, m := range li.Modifiers {
			item.Modifiers = append(item.Modifiers, m.Name)
		}
		evt.Items = append(evt.Items, item)
	}
	return evt
}
