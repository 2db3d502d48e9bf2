// Package events defines the notifications published when flow versions change.
package events

import (
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "flowops.flow_versions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowVersionCreatedEvent EventType = "flow_version.created"
	FlowVersionUpdatedEvent EventType = "flow_version.updated"
	FlowVersionLockedEvent  EventType = "flow_version.locked"
	FlowVersionDeletedEvent EventType = "flow_version.deleted"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	FlowID        string         `json:"flow_id"`
	FlowVersionID string         `json:"flow_version_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, flowID, flowVersionID string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		FlowID:        flowID,
		FlowVersionID: flowVersionID,
		Metadata:      make(map[string]any),
	}
}

type FlowVersionCreated struct {
	BaseEvent

	DisplayName string `json:"display_name"`
	// SourceID is set when the version was drafted from a locked one.
	SourceID string `json:"source_id,omitempty"`
}

func (e FlowVersionCreated) GetType() EventType {
	return FlowVersionCreatedEvent
}

type FlowVersionUpdated struct {
	BaseEvent

	Operation models.OperationType `json:"operation"`
	Revision  int64                `json:"revision"`
	Valid     bool                 `json:"valid"`
}

func (e FlowVersionUpdated) GetType() EventType {
	return FlowVersionUpdatedEvent
}

type FlowVersionLocked struct {
	BaseEvent

	Revision int64 `json:"revision"`
	Valid    bool  `json:"valid"`
}

func (e FlowVersionLocked) GetType() EventType {
	return FlowVersionLockedEvent
}

type FlowVersionDeleted struct {
	BaseEvent
}

func (e FlowVersionDeleted) GetType() EventType {
	return FlowVersionDeletedEvent
}

// New returns an empty event value for eventType, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case FlowVersionCreatedEvent:
		return &FlowVersionCreated{}, true
	case FlowVersionUpdatedEvent:
		return &FlowVersionUpdated{}, true
	case FlowVersionLockedEvent:
		return &FlowVersionLocked{}, true
	case FlowVersionDeletedEvent:
		return &FlowVersionDeleted{}, true
	default:
		return nil, false
	}
}
