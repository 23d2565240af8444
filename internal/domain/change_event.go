package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeCategory classifies what kind of field changed, independent of the
// literal field name. The UI filters history feeds by category.
type ChangeCategory string

const (
	ChangeCategoryStatus     ChangeCategory = "status_change"
	ChangeCategoryStage      ChangeCategory = "stage_change"
	ChangeCategoryOwner      ChangeCategory = "owner_change"
	ChangeCategoryAssignment ChangeCategory = "assignment_change"
	ChangeCategoryScore      ChangeCategory = "score_change"
	ChangeCategoryPriority   ChangeCategory = "priority_change"
	ChangeCategoryCategory   ChangeCategory = "category_change"
	ChangeCategoryWorkflow   ChangeCategory = "workflow_step"
	ChangeCategoryCustom     ChangeCategory = "custom"
)

// RelatedEntity references a child object (note, document, meeting) whose
// mutation surfaced in a parent entity's history feed.
type RelatedEntity struct {
	Type  string    `json:"type"`
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label,omitempty"`
}

// Metadata is the free-form payload attached to a change event. Values are
// bounded to string, number, boolean, nil, and nested maps of the same so the
// stored JSONB stays schema-checkable; SanitizeMetadata enforces the bound.
type Metadata map[string]any

// SanitizeMetadata returns a copy of m with every value outside the allowed
// set dropped. Nested maps are sanitized recursively. A nil input yields nil.
func SanitizeMetadata(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for key, value := range m {
		switch typed := value.(type) {
		case nil:
			out[key] = nil
		case string, bool,
			int, int32, int64, float32, float64:
			out[key] = typed
		case map[string]any:
			out[key] = map[string]any(SanitizeMetadata(typed))
		case Metadata:
			out[key] = map[string]any(SanitizeMetadata(typed))
		}
	}
	return out
}

// ChangeEvent records one observed mutation of one field on one entity
// instance. Events are append-only; nothing in this system updates or
// deletes them after insert.
type ChangeEvent struct {
	ID                  uuid.UUID      `json:"id"`
	OrganizationID      uuid.UUID      `json:"organization_id"`
	EntityType          string         `json:"entity_type"`
	EntityID            uuid.UUID      `json:"entity_id"`
	Category            ChangeCategory `json:"category"`
	FieldName           string         `json:"field_name"`
	OldValue            *string        `json:"old_value,omitempty"`
	NewValue            *string        `json:"new_value,omitempty"`
	OldValueLabel       *string        `json:"old_value_label,omitempty"`
	NewValueLabel       *string        `json:"new_value_label,omitempty"`
	Reason              *string        `json:"reason,omitempty"`
	RelatedEntity       *RelatedEntity `json:"related_entity,omitempty"`
	Automated           bool           `json:"automated"`
	CorrelationID       uuid.UUID      `json:"correlation_id"`
	ActorID             *uuid.UUID     `json:"actor_id,omitempty"`
	DurationInPrevState *string        `json:"duration_in_previous_state,omitempty"`
	Metadata            Metadata       `json:"metadata,omitempty"`
	OccurredAt          time.Time      `json:"occurred_at"`
}
