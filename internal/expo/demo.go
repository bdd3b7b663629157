package expo

import (
	"context"
	"errors"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const expoDemoSeedApplication = "expo_demo"

// ApplyDemoSeeds creates a handful of demo tickets through the regular
// source path so a fresh install has something on the board. Applied once;
// the seed tracker records the run in the database.
func ApplyDemoSeeds(ctx context.Context, engine *Engine, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return errors.New("database is required for demo seeding")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	tracker := seed.NewMongoTracker(db)
	seeds := []seed.Seed{
		{
			ID:          "2026-08-01_demo_orders_v1",
			Description: "Create demo orders on the display board",
			Run: func(ctx context.Context) error {
				return seedDemoOrders(ctx, engine)
			},
		},
	}

	logger.Info("Applying demo order seeds")
	if err := seed.Apply(ctx, tracker, seeds, expoDemoSeedApplication); err != nil {
		return err
	}
	logger.Info("Demo order seeds applied successfully")
	return nil
}

func seedDemoOrders(ctx context.Context, engine *Engine) error {
	demos := []SourceEvent{
		{
			OrderID:         "demo-" + uuid.New().String(),
			SourceState:     "open",
			OrderNumberHint: "101",
			ServiceType:     "dine-in",
			Items: []SourceItem{
				{Name: "Margherita", Quantity: 1},
				{Name: "Lemonade", Variant: "Large", Quantity: 2, Modifiers: []string{"No Ice"}},
			},
		},
		{
			OrderID:         "demo-" + uuid.New().String(),
			SourceState:     "open",
			OrderNumberHint: "102",
			ServiceType:     "takeout",
			Note:            "Ring twice at pickup",
			Items: []SourceItem{
				{Name: "Carbonara", Quantity: 1, Modifiers: []string{"Extra Pecorino", "Extra Pecorino"}},
			},
		},
		{
			OrderID:         "demo-" + uuid.New().String(),
			SourceState:     "open",
			OrderNumberHint: "103",
			ServiceType:     "delivery",
			Items: []SourceItem{
				{Name: "Tiramisu", Quantity: 1},
				{Name: "Espresso", Variant: "Doppio", Quantity: 1},
			},
		},
	}

	for _, evt := range demos {
		engine.ApplySource(ctx, evt)
	}
	return nil
}
