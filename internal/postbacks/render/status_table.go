package render

import (
	"fmt"
	"sort"

	"cpa-server/internal/conversions/status"
	"cpa-server/internal/store"
)

type statusKey struct {
	typ    status.Type
	status status.Status
}

// StatusTable maps (type, canonical status) to a destination status string.
// It is compiled once when a profile is loaded.
type StatusTable struct {
	entries map[statusKey]string
}

// CompileStatusTable validates a stored status map. Unknown type or status
// keys are configuration errors.
func CompileStatusTable(raw store.StatusMap) (StatusTable, error) {
	table := StatusTable{entries: make(map[statusKey]string)}

	for rawType, statuses := range raw {
		typ, err := status.ParseType(rawType)
		if err != nil {
			return StatusTable{}, fmt.Errorf("invalid status map type key: %w", err)
		}
		for rawStatus, mapped := range statuses {
			s, err := status.ParseStatus(rawStatus)
			if err != nil {
				return StatusTable{}, fmt.Errorf("invalid status map key for %s: %w", typ, err)
			}
			table.entries[statusKey{typ: typ, status: s}] = mapped
		}
	}

	return table, nil
}

// Lookup returns the destination status configured for the pair
func (t StatusTable) Lookup(typ status.Type, s status.Status) (string, bool) {
	mapped, ok := t.entries[statusKey{typ: typ, status: s}]
	return mapped, ok
}

// Resolve returns the destination status, falling back to the canonical name
func (t StatusTable) Resolve(typ status.Type, s status.Status) string {
	if mapped, ok := t.Lookup(typ, s); ok {
		return mapped
	}
	return s.String()
}

// Missing lists "type/status" pairs left unmapped for every type the table
// maps at least one status of. Unmapped types are not reported.
func (t StatusTable) Missing() []string {
	mappedTypes := make(map[status.Type]bool)
	for key := range t.entries {
		mappedTypes[key.typ] = true
	}

	var missing []string
	for typ := range mappedTypes {
		for _, s := range status.Order {
			if typ == status.TypeReg && s.Reversal() {
				continue
			}
			if _, ok := t.entries[statusKey{typ: typ, status: s}]; !ok {
				missing = append(missing, fmt.Sprintf("%s/%s", typ, s))
			}
		}
	}
	sort.Strings(missing)
	return missing
}
