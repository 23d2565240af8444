package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"
	"github.com/rpattn/talentcrm/internal/repository"

	"github.com/google/uuid"
)

// trueTokens is the accepted-true set for boolean coercion. Anything else
// coerces to false.
var trueTokens = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
}

// TransformValue converts a raw parsed value into its storage-ready form per
// the field type. Empty input falls back to the configured default, then nil.
// Coercion failures become nil, never errors; validation already reported
// them.
func TransformValue(value string, field domain.FieldSpec) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if field.Default != "" {
			trimmed = field.Default
		} else {
			return nil
		}
	}

	switch field.Type {
	case domain.FieldTypeBoolean:
		return trueTokens[strings.ToLower(trimmed)]
	case domain.FieldTypeNumber:
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return parsed
	case domain.FieldTypeDate, domain.FieldTypeDateTime:
		ts, err := parseDate(trimmed)
		if err != nil {
			return nil
		}
		return ts.UTC().Format(time.RFC3339)
	case domain.FieldTypeEmail:
		return strings.ToLower(trimmed)
	case domain.FieldTypeUUID:
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil
		}
		return parsed.String()
	default:
		if len(field.EnumValues) > 0 {
			return canonicalEnum(trimmed, field.EnumValues)
		}
		return trimmed
	}
}

// TransformRow applies TransformValue per importable field across a row,
// producing a record keyed by destination storage column. Unmapped fields
// still contribute their defaults.
func TransformRow(row map[string]string, cfg domain.EntityConfig, fieldMapping map[string]string) map[string]any {
	sourceFor := invertMapping(fieldMapping)

	record := map[string]any{}
	for _, field := range cfg.ImportableFields() {
		raw := ""
		if source, mapped := sourceFor[field.Name]; mapped {
			raw = row[source]
		}
		if value := TransformValue(raw, field); value != nil {
			record[field.DBColumn] = value
		}
	}
	return record
}

// ResolveForeignKeys replaces natural-key values in a transformed record
// with parent ids, per the config's foreign-key declarations. An unresolved
// reference becomes a row-level issue, not an error; create-if-missing keys
// insert a stub parent instead.
func ResolveForeignKeys(ctx context.Context, entities repository.EntityRowRepository, organizationID uuid.UUID, cfg domain.EntityConfig, record map[string]any) []FieldIssue {
	var issues []FieldIssue
	for _, fk := range cfg.ForeignKeys {
		field, ok := cfg.FieldByName(fk.Field)
		if !ok {
			continue
		}
		raw, present := record[field.DBColumn]
		if !present || raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}

		lookupColumn := fk.LookupField
		if lookupColumn == "" {
			lookupColumn = fk.ReferencedCol
		}

		id, err := entities.LookupID(ctx, organizationID, fk.ReferencedTable, lookupColumn, value)
		if err != nil {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidUUID,
				Message: fmt.Sprintf("failed to resolve %s %q: %v", field.DisplayName, value, err),
			})
			delete(record, field.DBColumn)
			continue
		}
		if id == nil {
			if !fk.CreateIfMissing {
				issues = append(issues, FieldIssue{
					Field:   field.Name,
					Code:    CodeInvalidEnum,
					Message: fmt.Sprintf("%s %q does not match any existing %s", field.DisplayName, value, fk.ReferencedTable),
				})
				delete(record, field.DBColumn)
				continue
			}
			created, createErr := entities.CreateMinimal(ctx, organizationID, fk.ReferencedTable, lookupColumn, value)
			if createErr != nil {
				issues = append(issues, FieldIssue{
					Field:   field.Name,
					Code:    CodeInvalidEnum,
					Message: fmt.Sprintf("failed to create missing %s %q: %v", fk.ReferencedTable, value, createErr),
				})
				delete(record, field.DBColumn)
				continue
			}
			id = &created
		}

		delete(record, field.DBColumn)
		record[foreignKeyColumn(field)] = *id
	}
	return issues
}

// foreignKeyColumn names the storage column that receives the resolved id.
// Declarations may map a lookup field (account_name) onto an id column
// (account_id) by convention: strip the lookup suffix, append _id.
func foreignKeyColumn(field domain.FieldSpec) string {
	column := field.DBColumn
	if strings.HasSuffix(column, "_name") {
		return strings.TrimSuffix(column, "_name") + "_id"
	}
	if strings.HasSuffix(column, "_id") {
		return column
	}
	return column + "_id"
}

func canonicalEnum(value string, allowed []string) string {
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return candidate
		}
	}
	return value
}
