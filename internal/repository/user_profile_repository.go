package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userProfileRepository struct {
	pool *pgxpool.Pool
}

// NewUserProfileRepository wires actor resolution backed by pgxpool.
func NewUserProfileRepository(pool *pgxpool.Pool) UserProfileRepository {
	return &userProfileRepository{pool: pool}
}

func (r *userProfileRepository) DisplayName(ctx context.Context, id uuid.UUID) (*string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("user profile repository not initialized")
	}

	var name string
	err := r.pool.QueryRow(
		ctx,
		`SELECT full_name FROM user_profiles WHERE id = $1`,
		id,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve display name: %w", err)
	}
	return &name, nil
}

func (r *userProfileRepository) ByExternalID(ctx context.Context, externalID string) (*uuid.UUID, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("user profile repository not initialized")
	}

	var id uuid.UUID
	err := r.pool.QueryRow(
		ctx,
		`SELECT id FROM user_profiles WHERE external_id = $1`,
		externalID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve profile by external id: %w", err)
	}
	return &id, nil
}
