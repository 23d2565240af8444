package domain

import (
	"sort"
	"strings"
)

// FieldTrackingRule describes how one field of one entity type appears in the
// history feed. Sensitive fields are never recorded, even when they change.
type FieldTrackingRule struct {
	Label       string
	Category    ChangeCategory
	ValueLabels map[string]string
	Sensitive   bool
}

// TrackingRuleFor looks up the tracking rule for a field of an entity type.
// A field absent from the configuration is not tracked by the batch diff; the
// second return value makes the "unconfigured" case explicit rather than
// leaving callers to chase nil maps.
func TrackingRuleFor(entityType, field string) (FieldTrackingRule, bool) {
	fields, ok := fieldTracking[entityType]
	if !ok {
		return FieldTrackingRule{}, false
	}
	rule, ok := fields[field]
	return rule, ok
}

// TrackedFields returns the configured field names for an entity type in
// deterministic order.
func TrackedFields(entityType string) []string {
	fields, ok := fieldTracking[entityType]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LabelFor resolves the human label for a raw value using the rule's
// value-label map, falling back to the raw value when the rule has no entry.
// It is total over the unconfigured-rule case: callers pass the (rule, ok)
// pair straight from TrackingRuleFor.
func LabelFor(rule FieldTrackingRule, configured bool, value string) string {
	if !configured || rule.ValueLabels == nil {
		return value
	}
	if label, ok := rule.ValueLabels[value]; ok {
		return label
	}
	return value
}

// EntityTypeDisplayName maps an entity-type tag to its UI display name,
// title-casing the raw tag when no mapping exists.
func EntityTypeDisplayName(entityType string) string {
	if name, ok := entityDisplayNames[entityType]; ok {
		return name
	}
	parts := strings.Split(strings.ReplaceAll(entityType, "_", " "), " ")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
