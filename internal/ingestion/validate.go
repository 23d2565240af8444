package ingestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"
)

// Validation issue codes. Errors block a row; warnings do not.
const (
	CodeRequired         = "REQUIRED"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeInvalidNumber    = "INVALID_NUMBER"
	CodeInvalidBoolean   = "INVALID_BOOLEAN"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidUUID      = "INVALID_UUID"
	CodeInvalidEnum      = "INVALID_ENUM"
	CodeMaxLength        = "MAX_LENGTH"
	CodeUnmappedRequired = "UNMAPPED_REQUIRED"
	CodePhoneFormat      = "PHONE_FORMAT"
	CodeURLFormat        = "URL_FORMAT"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[\d\s().-]{7,20}$`)
	uuidPattern  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	urlPattern   = regexp.MustCompile(`^(https?://)?[\w.-]+\.[a-zA-Z]{2,}(/\S*)?$`)

	booleanTokens = map[string]bool{
		"true": true, "false": true,
		"1": true, "0": true,
		"yes": true, "no": true,
	}

	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"01/02/2006",
		"02 Jan 2006",
	}
)

// FieldIssue is one validation finding for one field of one row.
type FieldIssue struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// ValidationResult aggregates findings across a row set. A row errors when
// it has at least one non-warning issue.
type ValidationResult struct {
	Issues    []FieldIssue `json:"issues,omitempty"`
	TotalRows int          `json:"total_rows"`
	ValidRows int          `json:"valid_rows"`
	ErrorRows int          `json:"error_rows"`
}

// ValidateField checks a raw value against a field spec. Rules run in order:
// required, then (for non-empty values) type, enum, and max-length; several
// can fire for the same value.
func ValidateField(value string, field domain.FieldSpec) []FieldIssue {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if field.Required {
			return []FieldIssue{{
				Field:   field.Name,
				Code:    CodeRequired,
				Message: fmt.Sprintf("%s is required", field.DisplayName),
			}}
		}
		return nil
	}

	var issues []FieldIssue

	switch field.Type {
	case domain.FieldTypeEmail:
		if !emailPattern.MatchString(trimmed) {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidEmail,
				Message: fmt.Sprintf("%q is not a valid email address", trimmed),
			})
		}
	case domain.FieldTypePhone:
		// Phone formats vary too much for a hard failure.
		if !phonePattern.MatchString(trimmed) {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodePhoneFormat,
				Message: fmt.Sprintf("%q does not look like a phone number", trimmed),
				Warning: true,
			})
		}
	case domain.FieldTypeNumber:
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidNumber,
				Message: fmt.Sprintf("%q is not a number", trimmed),
			})
		}
	case domain.FieldTypeBoolean:
		if !booleanTokens[strings.ToLower(trimmed)] {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidBoolean,
				Message: fmt.Sprintf("%q is not a recognized boolean", trimmed),
			})
		}
	case domain.FieldTypeDate, domain.FieldTypeDateTime:
		if _, err := parseDate(trimmed); err != nil {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidDate,
				Message: fmt.Sprintf("%q is not a parseable date", trimmed),
			})
		}
	case domain.FieldTypeUUID:
		if !uuidPattern.MatchString(trimmed) {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeInvalidUUID,
				Message: fmt.Sprintf("%q is not a valid uuid", trimmed),
			})
		}
	case domain.FieldTypeString:
		if field.IsURLLike() && !urlPattern.MatchString(trimmed) {
			issues = append(issues, FieldIssue{
				Field:   field.Name,
				Code:    CodeURLFormat,
				Message: fmt.Sprintf("%q does not look like a URL", trimmed),
				Warning: true,
			})
		}
	}

	if len(field.EnumValues) > 0 && !enumMatches(trimmed, field.EnumValues) {
		issues = append(issues, FieldIssue{
			Field:   field.Name,
			Code:    CodeInvalidEnum,
			Message: fmt.Sprintf("%q is not one of: %s", trimmed, strings.Join(field.EnumValues, ", ")),
		})
	}

	if field.MaxLength > 0 && len(trimmed) > field.MaxLength {
		issues = append(issues, FieldIssue{
			Field:   field.Name,
			Code:    CodeMaxLength,
			Message: fmt.Sprintf("%s exceeds maximum length of %d", field.DisplayName, field.MaxLength),
		})
	}

	return issues
}

// ValidateRows applies field validation across every row for every
// importable field, using the caller's source-column → field-name mapping.
// A required field with no mapped source column yields one
// UNMAPPED_REQUIRED error per row.
func ValidateRows(rows []map[string]string, cfg domain.EntityConfig, fieldMapping map[string]string) ValidationResult {
	sourceFor := invertMapping(fieldMapping)

	result := ValidationResult{TotalRows: len(rows)}
	for i, row := range rows {
		rowNumber := i + 1
		rowHasError := false

		for _, field := range cfg.ImportableFields() {
			source, mapped := sourceFor[field.Name]
			if !mapped {
				if field.Required {
					result.Issues = append(result.Issues, FieldIssue{
						Row:     rowNumber,
						Field:   field.Name,
						Code:    CodeUnmappedRequired,
						Message: fmt.Sprintf("required field %s has no mapped source column", field.DisplayName),
					})
					rowHasError = true
				}
				continue
			}

			for _, issue := range ValidateField(row[source], field) {
				issue.Row = rowNumber
				result.Issues = append(result.Issues, issue)
				if !issue.Warning {
					rowHasError = true
				}
			}
		}

		if rowHasError {
			result.ErrorRows++
		} else {
			result.ValidRows++
		}
	}
	return result
}

// RowIssues filters a result down to the findings for one row.
func (r ValidationResult) RowIssues(rowNumber int) []FieldIssue {
	var issues []FieldIssue
	for _, issue := range r.Issues {
		if issue.Row == rowNumber {
			issues = append(issues, issue)
		}
	}
	return issues
}

// RowHasError reports whether a row has at least one blocking issue.
func (r ValidationResult) RowHasError(rowNumber int) bool {
	for _, issue := range r.Issues {
		if issue.Row == rowNumber && !issue.Warning {
			return true
		}
	}
	return false
}

func enumMatches(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

// invertMapping flips source→field into field→source. Last mapping wins on
// duplicates.
func invertMapping(fieldMapping map[string]string) map[string]string {
	inverted := make(map[string]string, len(fieldMapping))
	for source, fieldName := range fieldMapping {
		inverted[fieldName] = source
	}
	return inverted
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}
