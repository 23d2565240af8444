package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type changeEventRepository struct {
	pool *pgxpool.Pool
}

// NewChangeEventRepository wires the append-only event store backed by pgxpool.
func NewChangeEventRepository(pool *pgxpool.Pool) ChangeEventRepository {
	return &changeEventRepository{pool: pool}
}

const insertChangeEventSQL = `INSERT INTO change_events (
	id, organization_id, entity_type, entity_id, category, field_name,
	old_value, new_value, old_value_label, new_value_label, reason,
	related_entity_type, related_entity_id, related_entity_label,
	automated, correlation_id, actor_id, duration_in_previous_state,
	metadata, occurred_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func (r *changeEventRepository) Insert(ctx context.Context, event domain.ChangeEvent) error {
	if r.pool == nil {
		return fmt.Errorf("change event repository not initialized")
	}

	args, err := changeEventArgs(event)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, insertChangeEventSQL, args...); err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}

func (r *changeEventRepository) InsertBatch(ctx context.Context, events []domain.ChangeEvent) error {
	if r.pool == nil {
		return fmt.Errorf("change event repository not initialized")
	}
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		args, err := changeEventArgs(event)
		if err != nil {
			return err
		}
		batch.Queue(insertChangeEventSQL, args...)
	}

	// One transaction around the batch so a partial write never survives.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin change event batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for range events {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert change event batch: %w", execErr)
		}
	}
	if closeErr := results.Close(); closeErr != nil {
		return fmt.Errorf("failed to close change event batch: %w", closeErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit change event batch: %w", err)
	}
	return nil
}

const selectChangeEventSQL = `SELECT
	id, organization_id, entity_type, entity_id, category, field_name,
	old_value, new_value, old_value_label, new_value_label, reason,
	related_entity_type, related_entity_id, related_entity_label,
	automated, correlation_id, actor_id, duration_in_previous_state,
	metadata, occurred_at
FROM change_events`

func (r *changeEventRepository) Latest(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID, fieldName string) (*domain.ChangeEvent, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("change event repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		selectChangeEventSQL+`
		 WHERE organization_id = $1
		   AND entity_type = $2
		   AND entity_id = $3
		   AND field_name = $4
		 ORDER BY occurred_at DESC
		 LIMIT 1`,
		organizationID,
		entityType,
		entityID,
		fieldName,
	)

	event, err := scanChangeEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest change event: %w", err)
	}
	return &event, nil
}

func (r *changeEventRepository) ListByEntity(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID, limit int, offset int) ([]domain.ChangeEvent, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("change event repository not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		selectChangeEventSQL+`
		 WHERE organization_id = $1
		   AND entity_type = $2
		   AND entity_id = $3
		 ORDER BY occurred_at DESC
		 LIMIT $4 OFFSET $5`,
		organizationID,
		entityType,
		entityID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list change events: %w", err)
	}
	defer rows.Close()

	events := []domain.ChangeEvent{}
	for rows.Next() {
		event, scanErr := scanChangeEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", scanErr)
		}
		events = append(events, event)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate change events: %w", rowsErr)
	}
	return events, nil
}

func changeEventArgs(event domain.ChangeEvent) ([]any, error) {
	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		encoded, err := json.Marshal(domain.SanitizeMetadata(event.Metadata))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal change event metadata: %w", err)
		}
		metadataJSON = encoded
	}

	var relatedType, relatedLabel any
	var relatedID any
	if event.RelatedEntity != nil {
		relatedType = event.RelatedEntity.Type
		relatedID = event.RelatedEntity.ID
		if event.RelatedEntity.Label != "" {
			relatedLabel = event.RelatedEntity.Label
		}
	}

	var actorID any
	if event.ActorID != nil {
		actorID = *event.ActorID
	}

	return []any{
		id,
		event.OrganizationID,
		event.EntityType,
		event.EntityID,
		string(event.Category),
		event.FieldName,
		event.OldValue,
		event.NewValue,
		event.OldValueLabel,
		event.NewValueLabel,
		event.Reason,
		relatedType,
		relatedID,
		relatedLabel,
		event.Automated,
		event.CorrelationID,
		actorID,
		event.DurationInPrevState,
		metadataJSON,
		event.OccurredAt,
	}, nil
}

func scanChangeEvent(row pgx.Row) (domain.ChangeEvent, error) {
	var (
		event        domain.ChangeEvent
		category     string
		relatedType  pgtype.Text
		relatedID    pgtype.UUID
		relatedLabel pgtype.Text
		actorID      pgtype.UUID
		metadataJSON []byte
		occurredAt   pgtype.Timestamptz
	)

	if err := row.Scan(
		&event.ID,
		&event.OrganizationID,
		&event.EntityType,
		&event.EntityID,
		&category,
		&event.FieldName,
		&event.OldValue,
		&event.NewValue,
		&event.OldValueLabel,
		&event.NewValueLabel,
		&event.Reason,
		&relatedType,
		&relatedID,
		&relatedLabel,
		&event.Automated,
		&event.CorrelationID,
		&actorID,
		&event.DurationInPrevState,
		&metadataJSON,
		&occurredAt,
	); err != nil {
		return domain.ChangeEvent{}, err
	}

	event.Category = domain.ChangeCategory(category)

	if relatedType.Valid && relatedID.Valid {
		id, err := uuid.FromBytes(relatedID.Bytes[:])
		if err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("invalid related entity id: %w", err)
		}
		event.RelatedEntity = &domain.RelatedEntity{
			Type:  relatedType.String,
			ID:    id,
			Label: relatedLabel.String,
		}
	}

	if actorID.Valid {
		id, err := uuid.FromBytes(actorID.Bytes[:])
		if err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("invalid actor id: %w", err)
		}
		event.ActorID = &id
	}

	if len(metadataJSON) > 0 {
		var metadata domain.Metadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("failed to unmarshal change event metadata: %w", err)
		}
		event.Metadata = metadata
	}

	if occurredAt.Valid {
		event.OccurredAt = occurredAt.Time
	}

	return event, nil
}
