package ingestion

import (
	"strings"
	"testing"

	"github.com/rpattn/talentcrm/internal/domain"
)

func fieldSpec(name string, ftype domain.FieldType, opts func(*domain.FieldSpec)) domain.FieldSpec {
	spec := domain.FieldSpec{
		Name:        name,
		DBColumn:    name,
		DisplayName: name,
		Type:        ftype,
		Importable:  true,
	}
	if opts != nil {
		opts(&spec)
	}
	return spec
}

func codes(issues []FieldIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code
	}
	return out
}

func TestValidateFieldRules(t *testing.T) {
	cases := []struct {
		name      string
		value     string
		field     domain.FieldSpec
		wantCodes []string
		warning   bool
	}{
		{
			name:      "required empty",
			value:     "  ",
			field:     fieldSpec("name", domain.FieldTypeString, func(f *domain.FieldSpec) { f.Required = true }),
			wantCodes: []string{CodeRequired},
		},
		{
			name:  "optional empty skips checks",
			value: "",
			field: fieldSpec("email", domain.FieldTypeEmail, nil),
		},
		{
			name:      "bad email",
			value:     "not-an-email",
			field:     fieldSpec("email", domain.FieldTypeEmail, nil),
			wantCodes: []string{CodeInvalidEmail},
		},
		{
			name:  "good email",
			value: "ada@example.com",
			field: fieldSpec("email", domain.FieldTypeEmail, nil),
		},
		{
			name:      "bad number",
			value:     "12x",
			field:     fieldSpec("rate", domain.FieldTypeNumber, nil),
			wantCodes: []string{CodeInvalidNumber},
		},
		{
			name:      "bad boolean",
			value:     "maybe",
			field:     fieldSpec("flag", domain.FieldTypeBoolean, nil),
			wantCodes: []string{CodeInvalidBoolean},
		},
		{
			name:  "boolean token case-insensitive",
			value: "YES",
			field: fieldSpec("flag", domain.FieldTypeBoolean, nil),
		},
		{
			name:      "bad date",
			value:     "soon",
			field:     fieldSpec("start", domain.FieldTypeDate, nil),
			wantCodes: []string{CodeInvalidDate},
		},
		{
			name:  "iso date",
			value: "2026-02-01",
			field: fieldSpec("start", domain.FieldTypeDate, nil),
		},
		{
			name:      "bad uuid",
			value:     "1234",
			field:     fieldSpec("job_id", domain.FieldTypeUUID, nil),
			wantCodes: []string{CodeInvalidUUID},
		},
		{
			name:      "enum mismatch",
			value:     "sideways",
			field:     fieldSpec("remote_type", domain.FieldTypeString, func(f *domain.FieldSpec) { f.EnumValues = []string{"onsite", "remote"} }),
			wantCodes: []string{CodeInvalidEnum},
		},
		{
			name:  "enum case-insensitive match",
			value: "REMOTE",
			field: fieldSpec("remote_type", domain.FieldTypeString, func(f *domain.FieldSpec) { f.EnumValues = []string{"onsite", "remote"} }),
		},
		{
			name:      "max length",
			value:     strings.Repeat("a", 11),
			field:     fieldSpec("code", domain.FieldTypeString, func(f *domain.FieldSpec) { f.MaxLength = 10 }),
			wantCodes: []string{CodeMaxLength},
		},
		{
			name:  "enum and max length both fire",
			value: strings.Repeat("z", 11),
			field: fieldSpec("code", domain.FieldTypeString, func(f *domain.FieldSpec) {
				f.EnumValues = []string{"alpha"}
				f.MaxLength = 10
			}),
			wantCodes: []string{CodeInvalidEnum, CodeMaxLength},
		},
		{
			name:      "phone warning only",
			value:     "call me",
			field:     fieldSpec("phone", domain.FieldTypePhone, nil),
			wantCodes: []string{CodePhoneFormat},
			warning:   true,
		},
		{
			name:      "url-like warning",
			value:     "not a url at all",
			field:     fieldSpec("linkedin_url", domain.FieldTypeString, nil),
			wantCodes: []string{CodeURLFormat},
			warning:   true,
		},
		{
			name:  "url passes",
			value: "https://linkedin.com/in/ada",
			field: fieldSpec("linkedin_url", domain.FieldTypeString, nil),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issues := ValidateField(tc.value, tc.field)
			got := codes(issues)
			if len(got) != len(tc.wantCodes) {
				t.Fatalf("expected codes %v, got %v", tc.wantCodes, got)
			}
			for i, code := range tc.wantCodes {
				if got[i] != code {
					t.Fatalf("expected codes %v, got %v", tc.wantCodes, got)
				}
			}
			for _, issue := range issues {
				if issue.Warning != tc.warning {
					t.Fatalf("issue %s: warning=%v, want %v", issue.Code, issue.Warning, tc.warning)
				}
			}
		})
	}
}

func TestValidateRequiredShortCircuits(t *testing.T) {
	field := fieldSpec("email", domain.FieldTypeEmail, func(f *domain.FieldSpec) { f.Required = true })
	issues := ValidateField("", field)
	if len(issues) != 1 || issues[0].Code != CodeRequired {
		t.Fatalf("required check must short-circuit type checks, got %v", codes(issues))
	}
}

func TestValidateRowsCountsAndUnmappedRequired(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("contact")
	mapping := map[string]string{
		"first": "first_name",
		"last":  "last_name",
		// email deliberately unmapped; it is required
	}
	rows := []map[string]string{
		{"first": "Ada", "last": "Lovelace"},
		{"first": "", "last": "Babbage"},
	}

	result := ValidateRows(rows, cfg, mapping)
	if result.TotalRows != 2 {
		t.Fatalf("expected 2 total rows, got %d", result.TotalRows)
	}
	// Every row errors: email is unmapped and required.
	if result.ErrorRows != 2 || result.ValidRows != 0 {
		t.Fatalf("expected 2 error rows, got valid=%d error=%d", result.ValidRows, result.ErrorRows)
	}

	unmapped := 0
	for _, issue := range result.Issues {
		if issue.Code == CodeUnmappedRequired {
			unmapped++
			if issue.Field != "email" {
				t.Fatalf("unexpected unmapped field %q", issue.Field)
			}
		}
	}
	if unmapped != 2 {
		t.Fatalf("expected one UNMAPPED_REQUIRED per row, got %d", unmapped)
	}
}

func TestValidateRowsWarningsDoNotFailRows(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("contact")
	mapping := map[string]string{
		"first": "first_name",
		"last":  "last_name",
		"email": "email",
		"phone": "phone",
	}
	rows := []map[string]string{
		{"first": "Ada", "last": "Lovelace", "email": "ada@example.com", "phone": "******"},
	}

	result := ValidateRows(rows, cfg, mapping)
	if result.ValidRows != 1 || result.ErrorRows != 0 {
		t.Fatalf("warning-only row must count as valid: %+v", result)
	}
	if len(result.Issues) == 0 || !result.Issues[0].Warning {
		t.Fatalf("expected a phone warning, got %v", result.Issues)
	}
}
