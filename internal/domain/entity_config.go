package domain

import "strings"

// FieldType tags the primitive type of an importable/exportable field.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeUUID     FieldType = "uuid"
)

// FieldSpec declares one field of an entity's import/export shape.
type FieldSpec struct {
	Name        string    `json:"name"`
	DBColumn    string    `json:"db_column"`
	DisplayName string    `json:"display_name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Importable  bool      `json:"importable"`
	Exportable  bool      `json:"exportable"`
	Default     string    `json:"default,omitempty"`
	EnumValues  []string  `json:"enum_values,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
}

// ForeignKeySpec lets an import row reference a parent entity by a natural
// key (the lookup field) instead of its surrogate id. Resolution happens at
// transform time, not parse time.
type ForeignKeySpec struct {
	Field           string `json:"field"`
	ReferencedTable string `json:"referenced_table"`
	ReferencedCol   string `json:"referenced_column"`
	LookupField     string `json:"lookup_field,omitempty"`
	CreateIfMissing bool   `json:"create_if_missing"`
}

// EntityConfig declares the complete import/export shape for one entity type.
// The pipeline operates generically over these declarations; there are no
// per-entity code branches.
type EntityConfig struct {
	Name         string           `json:"name"`
	DisplayName  string           `json:"display_name"`
	Table        string           `json:"table"`
	Fields       []FieldSpec      `json:"fields"`
	UniqueFields [][]string       `json:"unique_fields,omitempty"`
	ForeignKeys  []ForeignKeySpec `json:"foreign_keys,omitempty"`
}

// ImportableFields returns the fields that may be written from an import row,
// in declaration order.
func (c EntityConfig) ImportableFields() []FieldSpec {
	fields := make([]FieldSpec, 0, len(c.Fields))
	for _, field := range c.Fields {
		if field.Importable {
			fields = append(fields, field)
		}
	}
	return fields
}

// ExportableFields returns the fields that may appear in export output, in
// declaration order.
func (c EntityConfig) ExportableFields() []FieldSpec {
	fields := make([]FieldSpec, 0, len(c.Fields))
	for _, field := range c.Fields {
		if field.Exportable {
			fields = append(fields, field)
		}
	}
	return fields
}

// FieldByName finds a field by its source name or destination column.
func (c EntityConfig) FieldByName(name string) (FieldSpec, bool) {
	for _, field := range c.Fields {
		if field.Name == name || field.DBColumn == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// ForeignKeyForField returns the foreign-key declaration covering a field.
func (c EntityConfig) ForeignKeyForField(field string) (ForeignKeySpec, bool) {
	for _, fk := range c.ForeignKeys {
		if fk.Field == field {
			return fk, true
		}
	}
	return ForeignKeySpec{}, false
}

// IsURLLike reports whether a string field should get a best-effort URL
// shape check during validation.
func (f FieldSpec) IsURLLike() bool {
	if f.Type != FieldTypeString {
		return false
	}
	name := strings.ToLower(f.Name)
	return strings.Contains(name, "url") ||
		strings.Contains(name, "website") ||
		strings.Contains(name, "linkedin")
}
