package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowops/pkg/eventbus"
	"github.com/dukex/flowops/pkg/events"
)

// watchEvents logs every flow version event seen on the bus. With a kafka bus
// this includes changes made by other API replicas.
func watchEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	eventTypes := []events.EventType{
		events.FlowVersionCreatedEvent,
		events.FlowVersionUpdatedEvent,
		events.FlowVersionLockedEvent,
		events.FlowVersionDeletedEvent,
	}

	for _, eventType := range eventTypes {
		err := bus.Handle(eventType, func(ctx context.Context, event any) error {
			logger.DebugContext(ctx, "Flow version event", "event_type", eventType, "event", event)

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register %s handler: %w", eventType, err)
		}
	}

	if err := bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to flow version events: %w", err)
	}

	return nil
}
