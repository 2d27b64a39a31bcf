package query

// Messages is the display-name table used when localising field names and
// values. Built once at startup and shared by reference; there is no hidden
// global.
type Messages struct {
	entries map[string]string
}

// NewMessages builds the table from the defaults overlaid with overrides
// (typically loaded from a deployment's properties file).
func NewMessages(overrides map[string]string) *Messages {
	entries := map[string]string{
		"facet.month":                  "Month",
		"facet.year":                   "Year",
		"facet.occurrence_year":        "Date",
		"facet.taxon_name":             "Scientific name",
		"facet.species_guid":           "Species",
		"facet.genus_guid":             "Genus",
		"facet.state":                  "State/Territory",
		"facet.country":                "Country",
		"facet.basis_of_record":        "Record type",
		"facet.data_resource_uid":      "Data resource",
		"facet.data_provider_uid":      "Data provider",
		"facet.institution_uid":        "Institution",
		"facet.collection_uid":         "Collection",
		"facet.data_hub_uid":           "Data hub",
		"facet.assertion_user_id":      "Flagged by",
		"facet.alau_user_id":           "Annotated by",
		"facet.uncertainty":            "Coordinate uncertainty",
		"facet.coordinate_uncertainty": "Coordinate uncertainty (metres)",
		"rangefacet.less_than":         "less than %s",
		"rangefacet.between":           "between %s and %s",
		"rangefacet.greater_than":      "greater than %s",
		"rangefacet.unknown":           "Unknown",
	}
	for k, v := range overrides {
		entries[k] = v
	}
	return &Messages{entries: entries}
}

// Get returns the message for key, or fallback when none is registered.
func (m *Messages) Get(key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m.entries[key]; ok {
		return v
	}
	return fallback
}
