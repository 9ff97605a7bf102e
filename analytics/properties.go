package analytics

import (
	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// PROPERTY-SET RESOLVER
// =============================================================================

// AllowedProperties expands an optional explicit property id list into
// the set of properties an aggregation may touch.
//
// The base set is every property, filtered to non-archived unless
// includeArchived. An explicit list is intersected with the base set;
// unknown ids are silently dropped. If the intersection comes out empty
// while the explicit list was non-empty, the full base set is returned:
// a stale filter must widen to everything rather than produce a report
// over nothing.
func AllowedProperties(all []records.Property, explicit []records.PropertyID, includeArchived bool) map[records.PropertyID]records.Property {
	base := make(map[records.PropertyID]records.Property, len(all))
	for _, p := range all {
		if p.Archived && !includeArchived {
			continue
		}
		base[p.ID] = p
	}

	if len(explicit) == 0 {
		return base
	}

	selected := make(map[records.PropertyID]records.Property, len(explicit))
	for _, id := range explicit {
		if p, ok := base[id]; ok {
			selected[id] = p
		}
	}
	if len(selected) == 0 {
		return base
	}
	return selected
}

// propertySet converts an allowed-property map into a store filter.
func propertySet(props map[records.PropertyID]records.Property) records.PropertySet {
	set := make(records.PropertySet, len(props))
	for id := range props {
		set[id] = true
	}
	return set
}
