package dns

// Merge computes the record this agent wants the store to hold, given the
// record currently observed there (nil when absent) and this agent's own geo
// item. It is pure and deterministic: the result is canonicalized, so
// repeated merges of identical inputs are byte-identical once serialized.
//
// The safety property for uncoordinated multi-writer use is that items
// belonging to other locations pass through verbatim: an agent only ever
// replaces the item whose location matches its own. The scalar fields (ttl,
// fencing, name) come from the caller's configuration, not from current, so
// the last writer wins for those; that window is a documented property of
// the protocol, not corrected here.
func Merge(current *Record, mine Item, ttl int64, fencingEnabled bool, name string) Record {
	out := Record{
		Name:           name,
		Type:           TypeA,
		TTL:            ttl,
		FencingEnabled: fencingEnabled,
	}
	if current != nil {
		out.Type = current.Type
		for _, item := range current.Items {
			if item.Location == mine.Location {
				continue
			}
			out.Items = append(out.Items, item.clone())
		}
	}
	out.Items = append(out.Items, mine.clone())
	out.Canonicalize()
	return out
}
