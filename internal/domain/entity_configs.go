package domain

import "sort"

// entityConfigs is the static import/export registry, keyed by entity type.
// Declaration order of fields drives column order in exports.
var entityConfigs = map[string]EntityConfig{
	"account": {
		Name:        "account",
		DisplayName: "Account",
		Table:       "accounts",
		Fields: []FieldSpec{
			{Name: "name", DBColumn: "name", DisplayName: "Account Name", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "industry", DBColumn: "industry", DisplayName: "Industry", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 100},
			{Name: "company_type", DBColumn: "company_type", DisplayName: "Company Type", Type: FieldTypeString, Importable: true, Exportable: true,
				EnumValues: []string{"direct_client", "implementation_partner", "staffing_agency"}},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "prospect",
				EnumValues: []string{"prospect", "active", "inactive", "churned"}},
			{Name: "website", DBColumn: "website", DisplayName: "Website", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "phone", DBColumn: "phone", DisplayName: "Phone", Type: FieldTypePhone, Importable: true, Exportable: true},
			{Name: "billing_email", DBColumn: "billing_email", DisplayName: "Billing Email", Type: FieldTypeEmail, Importable: true, Exportable: true},
			{Name: "employee_count", DBColumn: "employee_count", DisplayName: "Employee Count", Type: FieldTypeNumber, Importable: true, Exportable: true},
			{Name: "is_preferred", DBColumn: "is_preferred", DisplayName: "Preferred Vendor", Type: FieldTypeBoolean, Importable: true, Exportable: true, Default: "false"},
			{Name: "created_at", DBColumn: "created_at", DisplayName: "Created At", Type: FieldTypeDateTime, Exportable: true},
		},
		UniqueFields: [][]string{{"name"}},
	},
	"job": {
		Name:        "job",
		DisplayName: "Job",
		Table:       "jobs",
		Fields: []FieldSpec{
			{Name: "title", DBColumn: "title", DisplayName: "Job Title", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "account_name", DBColumn: "account_id", DisplayName: "Account", Type: FieldTypeString, Required: true, Importable: true, Exportable: true},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "draft",
				EnumValues: []string{"draft", "open", "on_hold", "filled", "closed"}},
			{Name: "remote_type", DBColumn: "remote_type", DisplayName: "Remote Type", Type: FieldTypeString, Importable: true, Exportable: true,
				EnumValues: []string{"onsite", "hybrid", "remote"}},
			{Name: "billing_rate", DBColumn: "billing_rate", DisplayName: "Billing Rate", Type: FieldTypeNumber, Importable: true, Exportable: false},
			{Name: "openings", DBColumn: "openings", DisplayName: "Openings", Type: FieldTypeNumber, Importable: true, Exportable: true, Default: "1"},
			{Name: "start_date", DBColumn: "start_date", DisplayName: "Start Date", Type: FieldTypeDate, Importable: true, Exportable: true},
			{Name: "description", DBColumn: "description", DisplayName: "Description", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 8000},
		},
		UniqueFields: [][]string{{"title", "account_name"}},
		ForeignKeys: []ForeignKeySpec{
			{Field: "account_name", ReferencedTable: "accounts", ReferencedCol: "id", LookupField: "name", CreateIfMissing: true},
		},
	},
	"contact": {
		Name:        "contact",
		DisplayName: "Contact",
		Table:       "contacts",
		Fields: []FieldSpec{
			{Name: "first_name", DBColumn: "first_name", DisplayName: "First Name", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 100},
			{Name: "last_name", DBColumn: "last_name", DisplayName: "Last Name", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 100},
			{Name: "email", DBColumn: "email", DisplayName: "Email", Type: FieldTypeEmail, Required: true, Importable: true, Exportable: true},
			{Name: "phone", DBColumn: "phone", DisplayName: "Phone", Type: FieldTypePhone, Importable: true, Exportable: true},
			{Name: "title", DBColumn: "title", DisplayName: "Job Title", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 150},
			{Name: "account_name", DBColumn: "account_id", DisplayName: "Account", Type: FieldTypeString, Importable: true, Exportable: true},
			{Name: "linkedin_url", DBColumn: "linkedin_url", DisplayName: "LinkedIn URL", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "active",
				EnumValues: []string{"active", "inactive", "left_company"}},
		},
		UniqueFields: [][]string{{"email"}},
		ForeignKeys: []ForeignKeySpec{
			{Field: "account_name", ReferencedTable: "accounts", ReferencedCol: "id", LookupField: "name"},
		},
	},
	"candidate": {
		Name:        "candidate",
		DisplayName: "Candidate",
		Table:       "candidates",
		Fields: []FieldSpec{
			{Name: "first_name", DBColumn: "first_name", DisplayName: "First Name", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 100},
			{Name: "last_name", DBColumn: "last_name", DisplayName: "Last Name", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 100},
			{Name: "email", DBColumn: "email", DisplayName: "Email", Type: FieldTypeEmail, Required: true, Importable: true, Exportable: true},
			{Name: "phone", DBColumn: "phone", DisplayName: "Phone", Type: FieldTypePhone, Importable: true, Exportable: true},
			{Name: "availability_status", DBColumn: "availability_status", DisplayName: "Availability", Type: FieldTypeString, Importable: true, Exportable: true, Default: "available",
				EnumValues: []string{"available", "passive", "engaged", "placed", "not_available"}},
			{Name: "work_authorization", DBColumn: "work_authorization", DisplayName: "Work Authorization", Type: FieldTypeString, Importable: true, Exportable: true,
				EnumValues: []string{"citizen", "green_card", "h1b", "opt", "tn", "requires_visa"}},
			{Name: "linkedin_url", DBColumn: "linkedin_url", DisplayName: "LinkedIn URL", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "desired_rate", DBColumn: "desired_rate", DisplayName: "Desired Rate", Type: FieldTypeNumber, Importable: true, Exportable: false},
			{Name: "open_to_relocation", DBColumn: "open_to_relocation", DisplayName: "Open to Relocation", Type: FieldTypeBoolean, Importable: true, Exportable: true, Default: "false"},
			{Name: "available_from", DBColumn: "available_from", DisplayName: "Available From", Type: FieldTypeDate, Importable: true, Exportable: true},
		},
		UniqueFields: [][]string{{"email"}},
	},
	"submission": {
		Name:        "submission",
		DisplayName: "Submission",
		Table:       "submissions",
		Fields: []FieldSpec{
			{Name: "candidate_email", DBColumn: "candidate_id", DisplayName: "Candidate", Type: FieldTypeString, Required: true, Importable: true, Exportable: true},
			{Name: "job_id", DBColumn: "job_id", DisplayName: "Job", Type: FieldTypeUUID, Required: true, Importable: true, Exportable: true},
			{Name: "stage", DBColumn: "stage", DisplayName: "Stage", Type: FieldTypeString, Importable: true, Exportable: true, Default: "submitted",
				EnumValues: []string{"submitted", "client_review", "interview", "offer", "placed", "rejected", "withdrawn"}},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "open",
				EnumValues: []string{"open", "closed"}},
			{Name: "submitted_at", DBColumn: "submitted_at", DisplayName: "Submitted At", Type: FieldTypeDateTime, Importable: true, Exportable: true},
			{Name: "notes", DBColumn: "notes", DisplayName: "Notes", Type: FieldTypeString, Importable: true, Exportable: true, MaxLength: 4000},
		},
		UniqueFields: [][]string{{"candidate_email", "job_id"}},
		ForeignKeys: []ForeignKeySpec{
			{Field: "candidate_email", ReferencedTable: "candidates", ReferencedCol: "id", LookupField: "email"},
		},
	},
	"placement": {
		Name:        "placement",
		DisplayName: "Placement",
		Table:       "placements",
		Fields: []FieldSpec{
			{Name: "candidate_email", DBColumn: "candidate_id", DisplayName: "Candidate", Type: FieldTypeString, Required: true, Importable: true, Exportable: true},
			{Name: "job_id", DBColumn: "job_id", DisplayName: "Job", Type: FieldTypeUUID, Required: true, Importable: true, Exportable: true},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "pending",
				EnumValues: []string{"pending", "active", "completed", "terminated"}},
			{Name: "start_date", DBColumn: "start_date", DisplayName: "Start Date", Type: FieldTypeDate, Required: true, Importable: true, Exportable: true},
			{Name: "end_date", DBColumn: "end_date", DisplayName: "End Date", Type: FieldTypeDate, Importable: true, Exportable: true},
			{Name: "pay_rate", DBColumn: "pay_rate", DisplayName: "Pay Rate", Type: FieldTypeNumber, Importable: true, Exportable: false},
			{Name: "bill_rate", DBColumn: "bill_rate", DisplayName: "Bill Rate", Type: FieldTypeNumber, Importable: true, Exportable: false},
		},
		ForeignKeys: []ForeignKeySpec{
			{Field: "candidate_email", ReferencedTable: "candidates", ReferencedCol: "id", LookupField: "email"},
		},
	},
	"activity": {
		Name:        "activity",
		DisplayName: "Activity",
		Table:       "activities",
		Fields: []FieldSpec{
			{Name: "subject", DBColumn: "subject", DisplayName: "Subject", Type: FieldTypeString, Required: true, Importable: true, Exportable: true, MaxLength: 255},
			{Name: "activity_type", DBColumn: "activity_type", DisplayName: "Type", Type: FieldTypeString, Importable: true, Exportable: true, Default: "task",
				EnumValues: []string{"call", "email", "meeting", "task", "note"}},
			{Name: "status", DBColumn: "status", DisplayName: "Status", Type: FieldTypeString, Importable: true, Exportable: true, Default: "planned",
				EnumValues: []string{"planned", "completed", "cancelled"}},
			{Name: "due_date", DBColumn: "due_date", DisplayName: "Due Date", Type: FieldTypeDateTime, Importable: true, Exportable: true},
			{Name: "related_type", DBColumn: "related_type", DisplayName: "Related To (Type)", Type: FieldTypeString, Importable: true, Exportable: true},
			{Name: "related_id", DBColumn: "related_id", DisplayName: "Related To (ID)", Type: FieldTypeUUID, Importable: true, Exportable: true},
		},
	},
}

// GetEntityConfig returns the import/export declaration for an entity type.
func GetEntityConfig(name string) (EntityConfig, bool) {
	cfg, ok := entityConfigs[name]
	return cfg, ok
}

// ImportableEntities lists configs with at least one importable field,
// ordered by name.
func ImportableEntities() []EntityConfig {
	return entitiesWhere(func(c EntityConfig) bool { return len(c.ImportableFields()) > 0 })
}

// ExportableEntities lists configs with at least one exportable field,
// ordered by name.
func ExportableEntities() []EntityConfig {
	return entitiesWhere(func(c EntityConfig) bool { return len(c.ExportableFields()) > 0 })
}

func entitiesWhere(keep func(EntityConfig) bool) []EntityConfig {
	names := make([]string, 0, len(entityConfigs))
	for name := range entityConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	configs := make([]EntityConfig, 0, len(names))
	for _, name := range names {
		if cfg := entityConfigs[name]; keep(cfg) {
			configs = append(configs, cfg)
		}
	}
	return configs
}
