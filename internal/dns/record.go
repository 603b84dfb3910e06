package dns

import (
	"fmt"
	"slices"
	"strings"
)

// TypeA is the record type this agent manages. Geo routing policies apply to
// address records.
const TypeA = "A"

// Item is one location's contribution to the shared record: a geo location
// code and the addresses served to clients in that location. Location is the
// unique key within a record's item set.
type Item struct {
	Location  string
	Addresses []string
}

// clone returns a deep copy so callers can mutate the result freely.
func (i Item) clone() Item {
	return Item{Location: i.Location, Addresses: slices.Clone(i.Addresses)}
}

// Record is the shared geo-routed record. No single agent owns it: each
// agent reads the latest copy, replaces its own item, and writes the whole
// record back through an atomic change set. Items holds at most one entry
// per location.
type Record struct {
	Name           string
	Type           string
	TTL            int64
	FencingEnabled bool
	Items          []Item
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Items = make([]Item, len(r.Items))
	for i, item := range r.Items {
		out.Items[i] = item.clone()
	}
	return out
}

// Canonicalize sorts the item set by location so that records with the same
// logical content serialize identically regardless of insertion order.
// Address order within an item is significant and preserved.
func (r *Record) Canonicalize() {
	slices.SortFunc(r.Items, func(a, b Item) int {
		return strings.Compare(a.Location, b.Location)
	})
}

// Equal reports whether two records have the same content after canonical
// ordering. It is the no-op detection used by the write protocol: a merge
// that produces an Equal record must not be written.
func (r Record) Equal(other Record) bool {
	a, b := r.Clone(), other.Clone()
	a.Canonicalize()
	b.Canonicalize()

	if a.Name != b.Name || a.Type != b.Type || a.TTL != b.TTL || a.FencingEnabled != b.FencingEnabled {
		return false
	}
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].Location != b.Items[i].Location {
			return false
		}
		if !slices.Equal(a.Items[i].Addresses, b.Items[i].Addresses) {
			return false
		}
	}
	return true
}

// Validate checks the record invariants required for publication: at least
// one item, one item per location, and addresses for every item.
func (r Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("record has no name")
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("record %s has no geo items", r.Name)
	}
	seen := make(map[string]bool, len(r.Items))
	for _, item := range r.Items {
		if item.Location == "" {
			return fmt.Errorf("record %s has an item with no location", r.Name)
		}
		if seen[item.Location] {
			return fmt.Errorf("record %s has duplicate items for location %q", r.Name, item.Location)
		}
		seen[item.Location] = true
		if len(item.Addresses) == 0 {
			return fmt.Errorf("record %s item %q has no addresses", r.Name, item.Location)
		}
	}
	return nil
}
