package app

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	aptevents "github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/expo/internal/events"
	"github.com/appetiteclub/expo/internal/expo"
	filerepo "github.com/appetiteclub/expo/internal/file"
	"github.com/appetiteclub/expo/internal/mongo"
	"github.com/appetiteclub/expo/internal/pos"
)

const (
	AppName    = "expo"
	AppVersion = "0.1.0"
)

// App encapsulates the expo service application
type App struct {
	config *apt.Config
	logger apt.Logger
	micro  *apt.Micro
}

// New creates a new expo service application
func New(config *apt.Config, logger apt.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	store := expo.NewStore()
	hub := expo.NewHub(store, a.logger)

	// Persistence: MongoDB when configured, otherwise a local JSON
	// snapshot file. Either way the engine treats saves as best effort.
	var repo expo.OrderRepository
	var mongoRepo *mongo.OrderRepo
	var lifecycles []interface{}

	persistMode, _ := a.config.GetString("persist.mode")
	if persistMode == "mongo" {
		mongoRepo = mongo.NewOrderRepo(a.config, a.logger)
		repo = mongoRepo
		lifecycles = append(lifecycles, mongoRepo)
	} else {
		snapshotPath, _ := a.config.GetString("persist.file.path")
		if snapshotPath == "" {
			snapshotPath = "data/orders.json"
		}
		fileRepo := filerepo.NewOrderRepo(snapshotPath, a.logger)
		repo = fileRepo
		lifecycles = append(lifecycles, fileRepo)
	}

	// Event bus is optional; without it changes only reach SSE sessions.
	var publisher aptevents.Publisher
	var natsPublisher *events.NATSPublisher
	var natsSubscriber *events.NATSSubscriber

	natsURL, _ := a.config.GetString("nats.url")
	if natsURL != "" {
		var err error
		natsPublisher, err = events.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		publisher = natsPublisher

		natsSubscriber, err = events.NewNATSSubscriber(natsURL)
		if err != nil {
			return err
		}
	}

	// Order-source detail client, used when webhook events omit items.
	var fetcher expo.OrderDetailFetcher
	posURL, _ := a.config.GetString("pos.url")
	if posURL != "" {
		fetcher = pos.NewClient(posURL, 10*time.Second)
	}

	engine := expo.NewEngine(expo.EngineDeps{
		Store:     store,
		Repo:      repo,
		Hub:       hub,
		Publisher: publisher,
		Fetcher:   fetcher,
	}, a.logger)

	if timeoutStr, _ := a.config.GetString("pos.fetch.timeout"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil {
			engine.SetFetchTimeout(d)
		} else {
			a.logger.Infof("Invalid pos.fetch.timeout %q, keeping default", timeoutStr)
		}
	}

	handler := expo.NewHandler(engine, hub, a.config, a.logger)

	if natsSubscriber != nil {
		posSubscriber := events.NewPOSOrderSubscriber(natsSubscriber, engine, a.logger)
		lifecycles = append(lifecycles, posSubscriber)
	}

	// Restore the store after the repository is up, flush on the way down.
	demoEnabled, _ := a.config.GetString("demo.enabled")
	storeLifecycle := apt.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			engine.Restore(ctx)
			if demoEnabled == "true" && mongoRepo != nil {
				if err := expo.ApplyDemoSeeds(ctx, engine, mongoRepo.GetDatabase(), a.logger); err != nil {
					a.logger.Errorf("Demo seeding failed (non-fatal): %v", err)
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := engine.Flush(ctx); err != nil {
				a.logger.Errorf("Cannot flush order snapshot on shutdown: %v", err)
			}
			return nil
		},
	}
	lifecycles = append(lifecycles, storeLifecycle)

	if natsPublisher != nil {
		publisherLifecycle := apt.LifecycleHooks{
			OnStop: func(context.Context) error { return natsPublisher.Close() },
		}
		lifecycles = append(lifecycles, publisherLifecycle)
	}
	if natsSubscriber != nil {
		subscriberLifecycle := apt.LifecycleHooks{
			OnStop: func(context.Context) error { return natsSubscriber.Close() },
		}
		lifecycles = append(lifecycles, subscriberLifecycle)
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
