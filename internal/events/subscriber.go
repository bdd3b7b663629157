package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/expo/internal/expo"
)

// POSOrdersTopic carries normalized order-source events relayed onto the
// bus by a webhook bridge, as an alternative ingress to the HTTP webhook.
const POSOrdersTopic = "pos.orders"

// POSOrderSubscriber feeds bus-delivered source events into the engine.
type POSOrderSubscriber struct {
	subscriber events.Subscriber
	engine     *expo.Engine
	logger     apt.Logger
}

func NewPOSOrderSubscriber(subscriber events.Subscriber, engine *expo.Engine, logger apt.Logger) *POSOrderSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &POSOrderSubscriber{
		subscriber: subscriber,
		engine:     engine,
		logger:     logger,
	}
}

func (s *POSOrderSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting POSOrderSubscriber for topic: " + POSOrdersTopic)

	if err := s.subscriber.Subscribe(ctx, POSOrdersTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", POSOrdersTopic, err)
	}

	s.logger.Info("POSOrderSubscriber started successfully")
	return nil
}

func (s *POSOrderSubscriber) Stop(ctx context.Context) error {
	return nil
}

// handleEvent applies one bus message. Malformed messages are logged and
// dropped; returning nil keeps the subscription alive either way.
func (s *POSOrderSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt expo.SourceEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal source event: %v", err)
		return nil
	}

	if evt.OrderID == "" {
		s.logger.Info("dropping source event without order id")
		return nil
	}

	result := s.engine.ApplySource(ctx, evt)
	if result.Observable {
		s.logger.Infof("Applied source event for order %s, status %s", result.Order.ID, result.Order.Status)
	}
	return nil
}
