package history

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"
	"github.com/rpattn/talentcrm/internal/repository"

	"github.com/google/uuid"
)

// Service records field-level change events for tracked entities. Every
// write is fire-and-forget: a persistence failure is logged and swallowed so
// audit writes can never abort the business mutation they describe.
type Service struct {
	events   repository.ChangeEventRepository
	profiles repository.UserProfileRepository
	now      func() time.Time
}

func NewService(events repository.ChangeEventRepository, profiles repository.UserProfileRepository) *Service {
	return &Service{
		events:   events,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ChangeContext carries who caused a mutation and under which organization.
// A nil actor means the change was produced by the system rather than a user.
type ChangeContext struct {
	OrganizationID uuid.UUID
	ActorID        *uuid.UUID
	CorrelationID  uuid.UUID
	Automated      bool
}

// CreatedOptions optionally enriches the lifecycle event written when an
// entity first appears.
type CreatedOptions struct {
	EntityName    string
	InitialStatus string
	Metadata      domain.Metadata
}

// ChangeOptions optionally enriches a single recorded change.
type ChangeOptions struct {
	Reason        *string
	OldValueLabel *string
	NewValueLabel *string
	Metadata      domain.Metadata
}

// DiffOptions scopes a snapshot diff. An empty FieldsToTrack means every
// configured field for the entity type.
type DiffOptions struct {
	Reason        *string
	FieldsToTrack []string
	Metadata      domain.Metadata
}

// RecordEntityCreated writes one lifecycle event marking that an entity came
// into existence.
func (s *Service) RecordEntityCreated(ctx context.Context, entityType string, entityID uuid.UUID, cc ChangeContext, opts CreatedOptions) {
	s.bestEffort("entity created", entityType, entityID, func() error {
		return s.attemptEntityCreated(ctx, entityType, entityID, cc, opts)
	})
}

func (s *Service) attemptEntityCreated(ctx context.Context, entityType string, entityID uuid.UUID, cc ChangeContext, opts CreatedOptions) error {
	created := "created"
	label := fmt.Sprintf("%s created", domain.EntityTypeDisplayName(entityType))
	if opts.EntityName != "" {
		label = fmt.Sprintf("%s %q created", domain.EntityTypeDisplayName(entityType), opts.EntityName)
	}

	metadata := opts.Metadata
	if opts.InitialStatus != "" {
		// Copy so the caller's map is never mutated.
		copied := make(domain.Metadata, len(metadata)+1)
		for k, v := range metadata {
			copied[k] = v
		}
		copied["initial_status"] = opts.InitialStatus
		metadata = copied
	}

	event := s.newEvent(entityType, entityID, cc)
	event.Category = domain.ChangeCategoryCustom
	event.FieldName = "lifecycle"
	event.NewValue = &created
	event.NewValueLabel = &label
	event.Metadata = metadata
	return s.events.Insert(ctx, event)
}

// RecordStatusChange writes one status_change event, computing the coarse
// time spent in the previous status from the most recent prior event on the
// same field.
func (s *Service) RecordStatusChange(ctx context.Context, entityType string, entityID uuid.UUID, oldStatus, newStatus string, cc ChangeContext, opts ChangeOptions) {
	s.bestEffort("status change", entityType, entityID, func() error {
		return s.attemptStatusChange(ctx, entityType, entityID, oldStatus, newStatus, cc, opts)
	})
}

func (s *Service) attemptStatusChange(ctx context.Context, entityType string, entityID uuid.UUID, oldStatus, newStatus string, cc ChangeContext, opts ChangeOptions) error {
	const field = "status"

	var duration *string
	prior, err := s.events.Latest(ctx, cc.OrganizationID, entityType, entityID, field)
	if err != nil {
		return fmt.Errorf("failed to look up prior status event: %w", err)
	}
	if prior != nil {
		formatted := FormatDurationCoarse(s.now().Sub(prior.OccurredAt))
		duration = &formatted
	}

	rule, configured := domain.TrackingRuleFor(entityType, field)
	oldLabel := domain.LabelFor(rule, configured, oldStatus)
	newLabel := domain.LabelFor(rule, configured, newStatus)

	event := s.newEvent(entityType, entityID, cc)
	event.Category = domain.ChangeCategoryStatus
	event.FieldName = field
	event.OldValue = optString(oldStatus)
	event.NewValue = optString(newStatus)
	event.OldValueLabel = optString(oldLabel)
	event.NewValueLabel = optString(newLabel)
	event.DurationInPrevState = duration
	event.Reason = opts.Reason
	event.Metadata = opts.Metadata
	return s.events.Insert(ctx, event)
}

// RecordOwnerChange writes one owner_change event, resolving display names
// for both owners. A missing profile yields a nil label, never an error.
func (s *Service) RecordOwnerChange(ctx context.Context, entityType string, entityID uuid.UUID, oldOwnerID, newOwnerID *uuid.UUID, cc ChangeContext, opts ChangeOptions) {
	s.bestEffort("owner change", entityType, entityID, func() error {
		return s.attemptOwnerChange(ctx, entityType, entityID, oldOwnerID, newOwnerID, cc, opts)
	})
}

func (s *Service) attemptOwnerChange(ctx context.Context, entityType string, entityID uuid.UUID, oldOwnerID, newOwnerID *uuid.UUID, cc ChangeContext, opts ChangeOptions) error {
	oldLabel := opts.OldValueLabel
	if oldLabel == nil {
		oldLabel = s.ownerDisplayName(ctx, oldOwnerID)
	}
	newLabel := opts.NewValueLabel
	if newLabel == nil {
		newLabel = s.ownerDisplayName(ctx, newOwnerID)
	}

	event := s.newEvent(entityType, entityID, cc)
	event.Category = domain.ChangeCategoryOwner
	event.FieldName = "owner_id"
	event.OldValue = uuidString(oldOwnerID)
	event.NewValue = uuidString(newOwnerID)
	event.OldValueLabel = oldLabel
	event.NewValueLabel = newLabel
	event.Reason = opts.Reason
	event.Metadata = opts.Metadata
	return s.events.Insert(ctx, event)
}

func (s *Service) ownerDisplayName(ctx context.Context, id *uuid.UUID) *string {
	if id == nil || s.profiles == nil {
		return nil
	}
	name, err := s.profiles.DisplayName(ctx, *id)
	if err != nil {
		log.Printf("[history] owner name lookup failed for %s: %v", id, err)
		return nil
	}
	return name
}

// RecordRelatedObjectAdded surfaces a child-object creation (a note, a
// document, a meeting) in the parent entity's history feed.
func (s *Service) RecordRelatedObjectAdded(ctx context.Context, entityType string, entityID uuid.UUID, related domain.RelatedEntity, cc ChangeContext) {
	s.bestEffort("related object added", entityType, entityID, func() error {
		return s.attemptRelatedObject(ctx, entityType, entityID, related, cc, nil, &related.Type)
	})
}

// RecordRelatedObjectUpdated surfaces a child-object update in the parent
// entity's history feed.
func (s *Service) RecordRelatedObjectUpdated(ctx context.Context, entityType string, entityID uuid.UUID, related domain.RelatedEntity, cc ChangeContext) {
	s.bestEffort("related object updated", entityType, entityID, func() error {
		return s.attemptRelatedObject(ctx, entityType, entityID, related, cc, &related.Type, &related.Type)
	})
}

// RecordRelatedObjectRemoved surfaces a child-object deletion in the parent
// entity's history feed.
func (s *Service) RecordRelatedObjectRemoved(ctx context.Context, entityType string, entityID uuid.UUID, related domain.RelatedEntity, cc ChangeContext) {
	s.bestEffort("related object removed", entityType, entityID, func() error {
		return s.attemptRelatedObject(ctx, entityType, entityID, related, cc, &related.Type, nil)
	})
}

func (s *Service) attemptRelatedObject(ctx context.Context, entityType string, entityID uuid.UUID, related domain.RelatedEntity, cc ChangeContext, oldValue, newValue *string) error {
	event := s.newEvent(entityType, entityID, cc)
	event.Category = domain.ChangeCategoryCustom
	event.FieldName = "related_objects"
	event.OldValue = cloneString(oldValue)
	event.NewValue = cloneString(newValue)
	event.RelatedEntity = &related
	if related.Label != "" {
		label := related.Label
		if newValue != nil {
			event.NewValueLabel = &label
		} else {
			event.OldValueLabel = &label
		}
	}
	return s.events.Insert(ctx, event)
}

// RecordFieldChange is the generic single-field recorder. Unlike the batch
// diff, it records unconfigured fields too, under category custom. Sensitive
// fields are never recorded, same as the batch path.
func (s *Service) RecordFieldChange(ctx context.Context, entityType string, entityID uuid.UUID, fieldName string, oldValue, newValue *string, cc ChangeContext, opts ChangeOptions) {
	s.bestEffort("field change", entityType, entityID, func() error {
		return s.attemptFieldChange(ctx, entityType, entityID, fieldName, oldValue, newValue, cc, opts)
	})
}

func (s *Service) attemptFieldChange(ctx context.Context, entityType string, entityID uuid.UUID, fieldName string, oldValue, newValue *string, cc ChangeContext, opts ChangeOptions) error {
	rule, configured := domain.TrackingRuleFor(entityType, fieldName)
	if configured && rule.Sensitive {
		return nil
	}
	category := domain.ChangeCategoryCustom
	if configured {
		category = rule.Category
	}

	event := s.newEvent(entityType, entityID, cc)
	event.Category = category
	event.FieldName = fieldName
	event.OldValue = cloneString(oldValue)
	event.NewValue = cloneString(newValue)
	if oldValue != nil {
		event.OldValueLabel = optString(domain.LabelFor(rule, configured, *oldValue))
	}
	if newValue != nil {
		event.NewValueLabel = optString(domain.LabelFor(rule, configured, *newValue))
	}
	if opts.OldValueLabel != nil {
		event.OldValueLabel = opts.OldValueLabel
	}
	if opts.NewValueLabel != nil {
		event.NewValueLabel = opts.NewValueLabel
	}
	event.Reason = opts.Reason
	event.Metadata = opts.Metadata
	return s.events.Insert(ctx, event)
}

// DetectAndRecordChanges diffs two snapshots of the same entity and records
// one event per changed tracked field, all in a single batch insert. Zero
// changes means zero writes. Sensitive and unconfigured fields are skipped.
func (s *Service) DetectAndRecordChanges(ctx context.Context, entityType string, entityID uuid.UUID, before, after map[string]any, cc ChangeContext, opts DiffOptions) {
	s.bestEffort("change detection", entityType, entityID, func() error {
		return s.attemptDetectAndRecord(ctx, entityType, entityID, before, after, cc, opts)
	})
}

func (s *Service) attemptDetectAndRecord(ctx context.Context, entityType string, entityID uuid.UUID, before, after map[string]any, cc ChangeContext, opts DiffOptions) error {
	fields := opts.FieldsToTrack
	if len(fields) == 0 {
		fields = domain.TrackedFields(entityType)
	}

	var events []domain.ChangeEvent
	for _, field := range fields {
		rule, configured := domain.TrackingRuleFor(entityType, field)
		if !configured || rule.Sensitive {
			continue
		}

		oldRaw, newRaw := before[field], after[field]
		if valuesEqual(oldRaw, newRaw) {
			continue
		}

		oldValue := stringify(oldRaw)
		newValue := stringify(newRaw)

		event := s.newEvent(entityType, entityID, cc)
		event.Category = rule.Category
		event.FieldName = field
		event.OldValue = oldValue
		event.NewValue = newValue
		if oldValue != nil {
			event.OldValueLabel = optString(domain.LabelFor(rule, configured, *oldValue))
		}
		if newValue != nil {
			event.NewValueLabel = optString(domain.LabelFor(rule, configured, *newValue))
		}
		event.Reason = opts.Reason
		event.Metadata = opts.Metadata
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil
	}
	return s.events.InsertBatch(ctx, events)
}

// ListEntityHistory returns the change events for one entity, newest first.
// Reads are not fire-and-forget; callers see errors.
func (s *Service) ListEntityHistory(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID, limit, offset int) ([]domain.ChangeEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.events.ListByEntity(ctx, organizationID, entityType, entityID, limit, offset)
}

// bestEffort is the single suppression site for the fire-and-forget
// contract: write failures are logged here and go no further.
func (s *Service) bestEffort(operation, entityType string, entityID uuid.UUID, attempt func() error) {
	if err := attempt(); err != nil {
		log.Printf("[history] failed to record %s for %s %s: %v", operation, entityType, entityID, err)
	}
}

func (s *Service) newEvent(entityType string, entityID uuid.UUID, cc ChangeContext) domain.ChangeEvent {
	correlationID := cc.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	return domain.ChangeEvent{
		ID:             uuid.New(),
		OrganizationID: cc.OrganizationID,
		EntityType:     entityType,
		EntityID:       entityID,
		Automated:      cc.Automated || cc.ActorID == nil,
		CorrelationID:  correlationID,
		ActorID:        cc.ActorID,
		OccurredAt:     s.now(),
	}
}

// FormatDurationCoarse renders elapsed time at hour/day granularity only:
// "less than an hour", "N hour(s)", "N day(s)".
func FormatDurationCoarse(d time.Duration) string {
	if d < time.Hour {
		return "less than an hour"
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// valuesEqual treats nil as equal only to nil; a nil is never equal to an
// empty string or a zero. Everything else compares by deep equality.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func stringify(v any) *string {
	if v == nil {
		return nil
	}
	var s string
	switch typed := v.(type) {
	case string:
		s = typed
	case fmt.Stringer:
		s = typed.String()
	default:
		s = fmt.Sprintf("%v", typed)
	}
	return &s
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
