// Package reconciler consumes ingress watch events and drives the bounded
// merge-and-write protocol against the shared record.
//
// One reconciler per process, fed by one watcher: events are handled
// strictly sequentially, so there is no local locking anywhere in the write
// path. The interesting race is the cross-cluster one, and that is settled
// by the store rejecting change sets based on stale reads. Exhausting the
// retry budget fails only the current event; the next event or the periodic
// relist supplies the retry.
package reconciler
