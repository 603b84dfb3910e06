package dns

// Wire types mirror the Cloud DNS v1 resourceRecordSets schema. The shape is
// external contract: every field name and nesting level must match what the
// API returns, because the replace protocol round-trips a fetched record
// back into a change-set deletion that the server compares byte-for-byte
// against its current state.

type rrSet struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	TTL           int64          `json:"ttl"`
	RoutingPolicy *routingPolicy `json:"routingPolicy,omitempty"`
}

type routingPolicy struct {
	Geo *geoPolicy `json:"geo,omitempty"`
}

type geoPolicy struct {
	// EnableFencing has no omitempty: the API carries an explicit false.
	EnableFencing bool            `json:"enableFencing"`
	Items         []geoPolicyItem `json:"items"`
}

type geoPolicyItem struct {
	Location string   `json:"location"`
	Rrdatas  []string `json:"rrdatas"`
}

// changeSet is the atomic mutation primitive: the server applies deletions
// and additions as one transaction and rejects the whole set if any deletion
// does not exactly match its current state.
type changeSet struct {
	Deletions []rrSet `json:"deletions,omitempty"`
	Additions []rrSet `json:"additions,omitempty"`
}

// rrset converts the domain record to its wire form, canonicalizing first so
// identical records always produce identical payloads.
func (r Record) rrset() rrSet {
	c := r.Clone()
	c.Canonicalize()

	items := make([]geoPolicyItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = geoPolicyItem{Location: item.Location, Rrdatas: item.Addresses}
	}
	return rrSet{
		Name: c.Name,
		Type: c.Type,
		TTL:  c.TTL,
		RoutingPolicy: &routingPolicy{
			Geo: &geoPolicy{
				EnableFencing: c.FencingEnabled,
				Items:         items,
			},
		},
	}
}

// record converts a fetched rrset into the domain form. Records without a
// geo routing policy decode to an empty item set; callers treat those as
// foreign records they must not merge into.
func (s rrSet) record() Record {
	out := Record{
		Name: s.Name,
		Type: s.Type,
		TTL:  s.TTL,
	}
	if s.RoutingPolicy != nil && s.RoutingPolicy.Geo != nil {
		out.FencingEnabled = s.RoutingPolicy.Geo.EnableFencing
		for _, item := range s.RoutingPolicy.Geo.Items {
			out.Items = append(out.Items, Item{Location: item.Location, Addresses: item.Rrdatas})
		}
	}
	out.Canonicalize()
	return out
}
