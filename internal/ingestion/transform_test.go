package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
)

func TestTransformValue(t *testing.T) {
	cases := []struct {
		name  string
		value string
		field domain.FieldSpec
		want  any
	}{
		{"empty no default", "", fieldSpec("x", domain.FieldTypeString, nil), nil},
		{"empty with default", "", fieldSpec("x", domain.FieldTypeString, func(f *domain.FieldSpec) { f.Default = "prospect" }), "prospect"},
		{"boolean true token", "Yes", fieldSpec("x", domain.FieldTypeBoolean, nil), true},
		{"boolean one", "1", fieldSpec("x", domain.FieldTypeBoolean, nil), true},
		{"boolean anything else false", "no", fieldSpec("x", domain.FieldTypeBoolean, nil), false},
		{"number", "42.5", fieldSpec("x", domain.FieldTypeNumber, nil), 42.5},
		{"number failure nil", "abc", fieldSpec("x", domain.FieldTypeNumber, nil), nil},
		{"email lowercased", "Ada@Example.COM", fieldSpec("x", domain.FieldTypeEmail, nil), "ada@example.com"},
		{"date to rfc3339", "2026-02-01", fieldSpec("x", domain.FieldTypeDate, nil), "2026-02-01T00:00:00Z"},
		{"date failure nil", "soon", fieldSpec("x", domain.FieldTypeDate, nil), nil},
		{"enum canonical casing", "REMOTE", fieldSpec("x", domain.FieldTypeString, func(f *domain.FieldSpec) { f.EnumValues = []string{"onsite", "remote"} }), "remote"},
		{"enum no match keeps raw", "sideways", fieldSpec("x", domain.FieldTypeString, func(f *domain.FieldSpec) { f.EnumValues = []string{"onsite"} }), "sideways"},
		{"string trimmed", "  Acme  ", fieldSpec("x", domain.FieldTypeString, nil), "Acme"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TransformValue(tc.value, tc.field); got != tc.want {
				t.Fatalf("TransformValue(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestTransformRowKeysByDBColumnAndAppliesDefaults(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("account")
	mapping := map[string]string{
		"company": "name",
		"sector":  "industry",
	}
	row := map[string]string{"company": "Acme", "sector": "software"}

	record := TransformRow(row, cfg, mapping)
	if record["name"] != "Acme" {
		t.Fatalf("expected name Acme, got %v", record["name"])
	}
	if record["industry"] != "software" {
		t.Fatalf("expected industry software, got %v", record["industry"])
	}
	// Unmapped fields with defaults still contribute.
	if record["status"] != "prospect" {
		t.Fatalf("expected default status, got %v", record["status"])
	}
	if record["is_preferred"] != false {
		t.Fatalf("expected default false, got %v", record["is_preferred"])
	}
	// Non-importable fields never participate.
	if _, ok := record["created_at"]; ok {
		t.Fatalf("created_at is not importable and must not appear")
	}
}

type stubEntityRows struct {
	ids       map[string]uuid.UUID
	created   []string
	lookupErr error
}

func (s *stubEntityRows) InsertRows(_ context.Context, _ uuid.UUID, _ domain.EntityConfig, rows []map[string]any) (int, error) {
	return len(rows), nil
}

func (s *stubEntityRows) LookupID(_ context.Context, _ uuid.UUID, _ string, _ string, value string) (*uuid.UUID, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if id, ok := s.ids[value]; ok {
		return &id, nil
	}
	return nil, nil
}

func (s *stubEntityRows) CreateMinimal(_ context.Context, _ uuid.UUID, _ string, _ string, value string) (uuid.UUID, error) {
	id := uuid.New()
	s.created = append(s.created, value)
	if s.ids == nil {
		s.ids = map[string]uuid.UUID{}
	}
	s.ids[value] = id
	return id, nil
}

func (s *stubEntityRows) ListRows(_ context.Context, _ uuid.UUID, _ domain.EntityConfig, _ []string, _ int, _ int) ([]map[string]any, error) {
	return nil, nil
}

func (s *stubEntityRows) CountRows(_ context.Context, _ uuid.UUID, _ domain.EntityConfig) (int, error) {
	return 0, nil
}

func TestResolveForeignKeysReplacesNaturalKey(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("job")
	accountID := uuid.New()
	repo := &stubEntityRows{ids: map[string]uuid.UUID{"Acme": accountID}}

	record := map[string]any{"title": "Engineer", "account_id": "Acme"}
	issues := ResolveForeignKeys(context.Background(), repo, uuid.New(), cfg, record)

	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if record["account_id"] != accountID {
		t.Fatalf("expected resolved id, got %v", record["account_id"])
	}
}

func TestResolveForeignKeysCreatesMissingParent(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("job") // account FK declares create-if-missing
	repo := &stubEntityRows{}

	record := map[string]any{"account_id": "Globex"}
	issues := ResolveForeignKeys(context.Background(), repo, uuid.New(), cfg, record)

	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(repo.created) != 1 || repo.created[0] != "Globex" {
		t.Fatalf("expected stub parent created for Globex, got %v", repo.created)
	}
	if _, ok := record["account_id"].(uuid.UUID); !ok {
		t.Fatalf("expected resolved uuid, got %T", record["account_id"])
	}
}

func TestResolveForeignKeysUnresolvedBecomesIssue(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("contact") // account FK has no create-if-missing
	repo := &stubEntityRows{}

	record := map[string]any{"account_id": "Unknown Co"}
	issues := ResolveForeignKeys(context.Background(), repo, uuid.New(), cfg, record)

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %v", issues)
	}
	if _, ok := record["account_id"]; ok {
		t.Fatalf("unresolved reference must be dropped from the record")
	}
}

func TestResolveForeignKeysLookupFailureIsRowIssue(t *testing.T) {
	cfg, _ := domain.GetEntityConfig("contact")
	repo := &stubEntityRows{lookupErr: errors.New("connection refused")}

	record := map[string]any{"account_id": "Acme"}
	issues := ResolveForeignKeys(context.Background(), repo, uuid.New(), cfg, record)

	if len(issues) != 1 {
		t.Fatalf("expected lookup failure surfaced as issue, got %v", issues)
	}
}
