package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/expo/internal/expo"
)

// OrderRepo snapshots the order store to a single JSON file. It is the
// persistence adapter for deployments without MongoDB: one kitchen, one
// process, one file. Writes go through a temp file plus rename so a crash
// mid-save never leaves a truncated snapshot behind.
type OrderRepo struct {
	path   string
	logger apt.Logger
}

func NewOrderRepo(path string, logger apt.Logger) *OrderRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderRepo{
		path:   path,
		logger: logger,
	}
}

func (r *OrderRepo) Start(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create snapshot directory: %w", err)
	}
	r.logger.Info("file order repository ready", "path", r.path)
	return nil
}

func (r *OrderRepo) Stop(ctx context.Context) error {
	return nil
}

func (r *OrderRepo) Save(ctx context.Context, orders []expo.Order) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal order snapshot: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write order snapshot: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("cannot replace order snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot back. A missing, empty or unreadable file yields
// an empty set rather than an error so a broken snapshot never prevents
// startup.
func (r *OrderRepo) Load(ctx context.Context) ([]expo.Order, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Info("cannot read order snapshot, starting empty", "path", r.path, "error", err)
		}
		return []expo.Order{}, nil
	}
	if len(data) == 0 {
		return []expo.Order{}, nil
	}

	var orders []expo.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		r.logger.Info("order snapshot is malformed, starting empty", "path", r.path, "error", err)
		return []expo.Order{}, nil
	}
	return orders, nil
}
