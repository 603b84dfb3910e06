// Package dns holds the shared geo-routed record model and the Cloud DNS
// store client.
//
// The record is a multi-writer resource: one agent per geo location, each
// contributing exactly one item, with no coordination between agents other
// than the record itself. Two pieces make that safe:
//
//   - Merge never touches items belonging to other locations. An agent's
//     write replaces only its own item, so concurrent writers cannot drop
//     each other's contributions.
//
//   - Replace submits the merge result as an atomic change set that deletes
//     the exact record the merge was based on. If any other writer changed
//     the record in between, the server rejects the set and the caller
//     retries from a fresh read. This emulates compare-and-swap on a store
//     that has no per-record version token.
//
// Records are canonicalized (items sorted by location) before comparison
// and serialization, so identical logical content always produces identical
// payloads and no-op writes are detectable.
package dns
