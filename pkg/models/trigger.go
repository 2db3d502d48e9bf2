package models

import (
	"errors"
	"fmt"
	"slices"
)

// TriggerType identifies the kind of trigger heading a flow.
type TriggerType string

const (
	TriggerTypeEmpty    TriggerType = "EMPTY"
	TriggerTypeWebhook  TriggerType = "WEBHOOK"
	TriggerTypeSchedule TriggerType = "SCHEDULE"
	TriggerTypePiece    TriggerType = "PIECE"
)

// TriggerName is the fixed name of every flow's trigger.
const TriggerName = "trigger"

// DefaultTriggerDisplayName is shown for a trigger that has not been configured.
const DefaultTriggerDisplayName = "Select Trigger"

// ErrTriggerSettingsMismatch is returned when the settings carried by a trigger
// do not match its type.
var ErrTriggerSettingsMismatch = errors.New("trigger settings do not match trigger type")

// Trigger is the root of the flow. Steps holds the ordered main chain.
type Trigger struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"       validate:"required"`
	Type        TriggerType       `json:"type"               validate:"required,oneof=EMPTY WEBHOOK SCHEDULE PIECE"`
	Valid       bool              `json:"valid"`
	Steps       []string          `json:"steps"`
	Schedule    *ScheduleSettings `json:"schedule,omitempty"`
	Webhook     *WebhookSettings  `json:"webhook,omitempty"`
	Piece       *PieceSettings    `json:"piece,omitempty"`
}

// ScheduleSettings configures a SCHEDULE trigger.
type ScheduleSettings struct {
	// CronExpression uses the standard 5-field format (minute hour day month weekday).
	CronExpression string `json:"cron_expression" validate:"required,cron"`
	Timezone       string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// WebhookSettings configures a WEBHOOK trigger.
type WebhookSettings struct {
	Input map[string]any `json:"input,omitempty"`
}

// NewEmptyTrigger returns the placeholder trigger of a fresh flow version.
func NewEmptyTrigger() Trigger {
	return Trigger{
		Name:        TriggerName,
		DisplayName: DefaultTriggerDisplayName,
		Type:        TriggerTypeEmpty,
		Valid:       false,
		Steps:       make([]string, 0),
	}
}

// Validate checks that exactly the settings matching the trigger type are set.
func (t *Trigger) Validate() error {
	var ok bool

	switch t.Type {
	case TriggerTypeEmpty:
		ok = t.Schedule == nil && t.Webhook == nil && t.Piece == nil
	case TriggerTypeWebhook:
		ok = t.Schedule == nil && t.Piece == nil
	case TriggerTypeSchedule:
		ok = t.Schedule != nil && t.Webhook == nil && t.Piece == nil
	case TriggerTypePiece:
		ok = t.Piece != nil && t.Schedule == nil && t.Webhook == nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrTriggerSettingsMismatch, t.Type)
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrTriggerSettingsMismatch, t.Type)
	}

	return nil
}

// Clone returns a deep copy of the trigger.
func (t Trigger) Clone() Trigger {
	clone := t
	clone.Steps = slices.Clone(t.Steps)

	if t.Schedule != nil {
		schedule := *t.Schedule
		clone.Schedule = &schedule
	}

	if t.Webhook != nil {
		clone.Webhook = &WebhookSettings{Input: CloneMap(t.Webhook.Input)}
	}

	if t.Piece != nil {
		clone.Piece = t.Piece.Clone()
	}

	return clone
}
