package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/flowops/pkg/eventbus"
	"github.com/dukex/flowops/pkg/events"
	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/log"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/otelhelper"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxApplyRetries is how many times Apply reloads a version whose
// revision moved underneath it.
const DefaultMaxApplyRetries = 3

// FlowVersions runs operations against stored flow versions.
type FlowVersions struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	maxRetries  int
	now         func() time.Time
	newID       func() string
}

type Option func(*FlowVersions)

func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(s *FlowVersions) {
		s.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *FlowVersions) {
		s.tracer = tracer
	}
}

// WithMaxApplyRetries sets the number of reload attempts after a revision
// conflict. Negative values are treated as zero.
func WithMaxApplyRetries(retries int) Option {
	return func(s *FlowVersions) {
		s.maxRetries = max(retries, 0)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *FlowVersions) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *FlowVersions) {
		s.newID = newID
	}
}

// NewFlowVersions creates a new flow version service.
func NewFlowVersions(persistence persistence.Persistence, logger *slog.Logger, opts ...Option) *FlowVersions {
	s := &FlowVersions{
		persistence: persistence,
		publisher:   eventbus.NoopEventBus{},
		tracer:      otelhelper.NoopTracer(),
		logger:      logger,
		maxRetries:  DefaultMaxApplyRetries,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HealthCheck checks the health of the persistence layer.
func (s *FlowVersions) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateFlowVersionRequest describes a new draft. Without a template the draft
// starts with an EMPTY trigger and no steps.
type CreateFlowVersionRequest struct {
	// FlowID groups versions of the same flow; a new one is generated when empty.
	FlowID      string               `json:"flow_id"`
	DisplayName string               `json:"display_name"`
	Template    *models.FlowTemplate `json:"template,omitempty"`
}

// Create stores a new draft flow version.
func (s *FlowVersions) Create(ctx context.Context, req CreateFlowVersionRequest) (*models.FlowVersion, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "flow_versions.create")
	defer span.End()

	flowID := req.FlowID
	if flowID == "" {
		flowID = s.newID()
	}

	flowVersion := models.NewFlowVersion(s.newID(), flowID, req.DisplayName)

	if req.Template != nil {
		imported, err := flowops.Apply(flowVersion, s.stamp(req.Template.ImportRequest()))
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		if req.DisplayName != "" {
			imported.DisplayName = req.DisplayName
		}

		flowVersion = imported
	}

	span.SetAttributes(otelhelper.FlowVersionAttributes(flowVersion.FlowID, flowVersion.ID)...)

	if err := s.persistence.FlowVersions().Save(ctx, flowVersion, 0); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create flow version: %w", err)
	}

	s.logger.InfoContext(ctx, "Created flow version",
		log.FlowID(flowVersion.FlowID),
		log.FlowVersionID(flowVersion.ID),
		slog.Int("steps", len(flowVersion.Steps)))

	event := events.FlowVersionCreated{
		BaseEvent:   events.NewBaseEvent(events.FlowVersionCreatedEvent, flowVersion.FlowID, flowVersion.ID),
		DisplayName: flowVersion.DisplayName,
	}
	s.publish(ctx, flowVersion, event)

	return flowVersion, nil
}

// FetchByID returns a stored flow version.
func (s *FlowVersions) FetchByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	return s.persistence.FlowVersions().GetByID(ctx, id)
}

// ListByFlow returns every version of a flow, oldest first.
func (s *FlowVersions) ListByFlow(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	if flowID == "" {
		return nil, ErrEmptyFlowID
	}

	return s.persistence.FlowVersions().ListByFlow(ctx, flowID)
}

// Apply runs op against the stored version and saves the result. When another
// writer saved the version in between, the version is reloaded and op is
// applied again, up to the configured number of retries.
func (s *FlowVersions) Apply(ctx context.Context, id string, op models.Operation) (*models.FlowVersion, error) {
	if op == nil {
		return nil, NewValidationError("Apply", "missing_operation", "operation is required", ErrInvalidRequest)
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "flow_versions.apply",
		attribute.String(otelhelper.FlowVersionIDKey, id),
		attribute.String(otelhelper.OperationKey, string(op.GetType())),
	)
	defer span.End()

	logger := s.logger.With(log.FlowVersionID(id), log.Operation(op.GetType()))
	op = s.stamp(op)
	repository := s.persistence.FlowVersions()

	for attempt := range s.maxRetries + 1 {
		current, err := repository.GetByID(ctx, id)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		next, err := flowops.Apply(current, op)
		if err != nil {
			logger.DebugContext(ctx, "Operation rejected", log.Error(err))
			otelhelper.SetError(span, err)

			return nil, err
		}

		err = repository.Save(ctx, next, current.Revision)
		if err == nil {
			span.SetAttributes(
				attribute.String(otelhelper.FlowIDKey, next.FlowID),
				attribute.Int64(otelhelper.RevisionKey, next.Revision),
			)
			logger.InfoContext(ctx, "Applied operation", log.Revision(next.Revision), slog.Bool("valid", next.Valid))
			s.publishApplied(ctx, next, op)

			return next, nil
		}

		if !persistence.IsRevisionConflict(err) {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to save flow version: %w", err)
		}

		logger.WarnContext(ctx, "Flow version changed while applying, retrying",
			log.Revision(current.Revision),
			slog.Int("attempt", attempt+1))
	}

	err := newConflictError("Apply", fmt.Sprintf("gave up after %d attempts", s.maxRetries+1), ErrTooManyConflicts)
	otelhelper.SetError(span, err)

	return nil, err
}

// stamp fills the server-owned fields of note payloads: ids of new notes and
// their timestamps.
func (s *FlowVersions) stamp(op models.Operation) models.Operation {
	now := s.now()

	switch req := op.(type) {
	case models.AddNoteRequest:
		if req.Note.ID == "" {
			req.Note.ID = s.newID()
		}

		req.Note.CreatedAt = now
		req.Note.UpdatedAt = now

		return req
	case models.UpdateNoteRequest:
		req.Note.UpdatedAt = now

		return req
	case models.ImportFlowRequest:
		req.Notes = slices.Clone(req.Notes)
		for i := range req.Notes {
			if req.Notes[i].ID == "" {
				req.Notes[i].ID = s.newID()
			}

			if req.Notes[i].CreatedAt.IsZero() {
				req.Notes[i].CreatedAt = now
			}

			req.Notes[i].UpdatedAt = now
		}

		return req
	}

	return op
}

func (s *FlowVersions) publishApplied(ctx context.Context, flowVersion *models.FlowVersion, op models.Operation) {
	s.publish(ctx, flowVersion, events.FlowVersionUpdated{
		BaseEvent: events.NewBaseEvent(events.FlowVersionUpdatedEvent, flowVersion.FlowID, flowVersion.ID),
		Operation: op.GetType(),
		Revision:  flowVersion.Revision,
		Valid:     flowVersion.Valid,
	})

	if op.GetType() == models.OperationLockFlow {
		s.publish(ctx, flowVersion, events.FlowVersionLocked{
			BaseEvent: events.NewBaseEvent(events.FlowVersionLockedEvent, flowVersion.FlowID, flowVersion.ID),
			Revision:  flowVersion.Revision,
			Valid:     flowVersion.Valid,
		})
	}
}

// publish sends event keyed by flow ID so the versions of one flow stay
// ordered. The change is already stored, so failures are only logged.
func (s *FlowVersions) publish(ctx context.Context, flowVersion *models.FlowVersion, event eventbus.Event) {
	if err := s.publisher.Publish(ctx, flowVersion.FlowID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("event_type", string(event.GetType())),
			log.FlowVersionID(flowVersion.ID),
			log.Error(err))
	}
}

// Delete removes a flow version.
func (s *FlowVersions) Delete(ctx context.Context, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "flow_versions.delete",
		attribute.String(otelhelper.FlowVersionIDKey, id))
	defer span.End()

	repository := s.persistence.FlowVersions()

	flowVersion, err := repository.GetByID(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if err := repository.Delete(ctx, id); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to delete flow version: %w", err)
	}

	s.logger.InfoContext(ctx, "Deleted flow version", log.FlowID(flowVersion.FlowID), log.FlowVersionID(id))
	s.publish(ctx, flowVersion, events.FlowVersionDeleted{
		BaseEvent: events.NewBaseEvent(events.FlowVersionDeletedEvent, flowVersion.FlowID, id),
	})

	return nil
}

// CreateDraft copies a locked version into a new draft of the same flow.
func (s *FlowVersions) CreateDraft(ctx context.Context, sourceID string) (*models.FlowVersion, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "flow_versions.create_draft",
		attribute.String(otelhelper.FlowVersionIDKey, sourceID))
	defer span.End()

	repository := s.persistence.FlowVersions()

	source, err := repository.GetByID(ctx, sourceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !source.IsLocked() {
		err := newConflictError("CreateDraft", "only locked versions can be drafted from", ErrNotLocked)
		otelhelper.SetError(span, err)

		return nil, err
	}

	draft := source.Clone()
	draft.ID = s.newID()
	draft.State = models.FlowVersionStateDraft
	draft.Revision = 0
	draft.CreatedAt = time.Time{}
	draft.UpdatedAt = time.Time{}

	if err := repository.Save(ctx, draft, 0); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	s.logger.InfoContext(ctx, "Created draft from locked version",
		log.FlowID(draft.FlowID),
		log.FlowVersionID(draft.ID),
		slog.String("source_id", sourceID))

	s.publish(ctx, draft, events.FlowVersionCreated{
		BaseEvent:   events.NewBaseEvent(events.FlowVersionCreatedEvent, draft.FlowID, draft.ID),
		DisplayName: draft.DisplayName,
		SourceID:    sourceID,
	})

	return draft, nil
}

// Export returns the portable template of a stored version.
func (s *FlowVersions) Export(ctx context.Context, id string) (models.FlowTemplate, error) {
	flowVersion, err := s.persistence.FlowVersions().GetByID(ctx, id)
	if err != nil {
		return models.FlowTemplate{}, err
	}

	return flowops.Export(flowVersion), nil
}

// PathToStep returns the names whose outputs the step can reference.
func (s *FlowVersions) PathToStep(ctx context.Context, id, stepName string) ([]string, error) {
	flowVersion, err := s.persistence.FlowVersions().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return flowstructure.FindPathToStep(flowVersion, stepName)
}
