package query

// TaxonRange is the nested-set range of a taxon and all its descendants,
// plus display metadata.
type TaxonRange struct {
	Left           int64
	Right          int64
	Rank           string
	ScientificName string
}

// NameLookup resolves taxonomic names against the name-matching index.
// Implementations report "not found" via the ok result; internal failures
// are theirs to log, callers treat them as not found.
type NameLookup interface {
	GuidForName(name string) (guid string, ok bool)
	AcceptedNameForGuid(guid string) (name string, ok bool)
	RangeForGuid(guid string) (r TaxonRange, ok bool)
}

// ListInfo is the metadata of a species list.
type ListInfo struct {
	Name string
}

// ListLookup resolves species lists from the lists service.
type ListLookup interface {
	ItemsForList(listID string) ([]string, error)
	InfoForList(listID string) (ListInfo, error)
}

// LayerLookup resolves spatial layer fields and stored spatial objects.
type LayerLookup interface {
	NameForLayerField(field string) (name string, ok bool)
	ObjectWkt(objectID string) (wkt string, ok bool)
	ObjectName(objectID string) (name string, ok bool)
}

// UserLookup resolves user identifiers (numeric ids or email addresses) to
// display names for the display string.
type UserLookup interface {
	DisplayName(userID string) (name string, ok bool)
}

// UidLookup resolves collectory uids (dr123, co10, in4, ...) to display
// names for *_uid field values.
type UidLookup interface {
	DisplayString(field, uid string) (name string, ok bool)
}
