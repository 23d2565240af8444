package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type entityRowRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRowRepository wires the generic per-entity table access backed by
// pgxpool. All SQL identifiers come from the static entity configs, never
// from user input.
func NewEntityRowRepository(pool *pgxpool.Pool) EntityRowRepository {
	return &entityRowRepository{pool: pool}
}

func (r *entityRowRepository) InsertRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig, rows []map[string]any) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("entity row repository not initialized")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin entity insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for _, row := range rows {
		// Callers may pre-assign ids (imports do, so history events can
		// reference the new rows); otherwise one is generated here.
		id, hasID := row["id"]
		if !hasID {
			id = uuid.New()
		}

		columns := make([]string, 0, len(row)+2)
		args := make([]any, 0, len(row)+2)
		columns = append(columns, "id", "org_id")
		args = append(args, id, organizationID)

		// Deterministic column order keeps generated SQL stable for tests
		// and logs.
		keys := make([]string, 0, len(row))
		for key := range row {
			if key == "id" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			columns = append(columns, quoteIdentifier(key))
			args = append(args, row[key])
		}

		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}

		sql := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			quoteIdentifier(cfg.Table),
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		)
		if _, execErr := tx.Exec(ctx, sql, args...); execErr != nil {
			return 0, fmt.Errorf("failed to insert %s row: %w", cfg.Name, execErr)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit entity insert: %w", err)
	}
	return inserted, nil
}

func (r *entityRowRepository) LookupID(ctx context.Context, organizationID uuid.UUID, table string, lookupColumn string, value string) (*uuid.UUID, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("entity row repository not initialized")
	}

	sql := fmt.Sprintf(
		"SELECT id FROM %s WHERE org_id = $1 AND %s = $2 LIMIT 1",
		quoteIdentifier(table),
		quoteIdentifier(lookupColumn),
	)

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, sql, organizationID, value).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up %s by %s: %w", table, lookupColumn, err)
	}
	return &id, nil
}

func (r *entityRowRepository) CreateMinimal(ctx context.Context, organizationID uuid.UUID, table string, lookupColumn string, value string) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, fmt.Errorf("entity row repository not initialized")
	}

	id := uuid.New()
	sql := fmt.Sprintf(
		"INSERT INTO %s (id, org_id, %s) VALUES ($1, $2, $3)",
		quoteIdentifier(table),
		quoteIdentifier(lookupColumn),
	)
	if _, err := r.pool.Exec(ctx, sql, id, organizationID, value); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create %s stub: %w", table, err)
	}
	return id, nil
}

func (r *entityRowRepository) ListRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig, columns []string, limit int, offset int) ([]map[string]any, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("entity row repository not initialized")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns requested for %s export", cfg.Name)
	}
	if limit <= 0 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdentifier(column)
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE org_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3",
		strings.Join(quoted, ", "),
		quoteIdentifier(cfg.Table),
	)

	rows, err := r.pool.Query(ctx, sql, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rows: %w", cfg.Name, err)
	}
	defer rows.Close()

	result := []map[string]any{}
	for rows.Next() {
		values, scanErr := rows.Values()
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", cfg.Name, scanErr)
		}
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			if i < len(values) {
				record[column] = values[i]
			}
		}
		result = append(result, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", cfg.Name, rowsErr)
	}
	return result, nil
}

func (r *entityRowRepository) CountRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("entity row repository not initialized")
	}

	sql := fmt.Sprintf("SELECT count(*) FROM %s WHERE org_id = $1", quoteIdentifier(cfg.Table))
	var count int
	if err := r.pool.QueryRow(ctx, sql, organizationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", cfg.Name, err)
	}
	return count, nil
}

// quoteIdentifier double-quotes a SQL identifier. Identifiers originate from
// the static entity configs, so this guards against reserved words rather
// than injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
