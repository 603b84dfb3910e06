package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"geodns/internal/dns"
	"geodns/internal/watcher"
	"geodns/pkg/logging"
)

// DefaultMaxAttempts bounds the write protocol's retry loop.
const DefaultMaxAttempts = 5

// ErrReconcileFailed is returned when the write protocol exhausted its
// attempts for one event. The event is not requeued; the next watch event
// for the resource, or the periodic relist, provides the next opportunity.
var ErrReconcileFailed = errors.New("write protocol retries exhausted")

// Store is the record store surface the write protocol drives. Satisfied by
// *dns.Client.
type Store interface {
	Fetch(ctx context.Context, zone, name, rtype string) (*dns.Record, error)
	Replace(ctx context.Context, zone string, desired dns.Record, basedOn *dns.Record) error
}

// Identity is the immutable tuple this agent owns. The agent only ever
// authors the geo item whose location equals Location; TTL and
// FencingEnabled are the scalar values it writes (last writer wins across
// agents).
type Identity struct {
	Location       string
	Zone           string
	RecordName     string
	TTL            int64
	FencingEnabled bool
}

// Reconciler consumes watch events strictly sequentially and drives the
// merge-and-write protocol for each. There is no local locking: cross-agent
// races are resolved entirely by the store's change-set rejection, which
// turns the distributed race into local retries.
type Reconciler struct {
	store       Store
	identity    Identity
	maxAttempts int
	backoff     wait.Backoff
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMaxAttempts overrides the write protocol's attempt bound.
func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) { r.maxAttempts = n }
}

// WithBackoff overrides the between-attempt backoff parameters.
func WithBackoff(b wait.Backoff) Option {
	return func(r *Reconciler) { r.backoff = b }
}

// New creates a reconciler writing through store under the given identity.
func New(store Store, identity Identity, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       store,
		identity:    identity,
		maxAttempts: DefaultMaxAttempts,
		backoff: wait.Backoff{
			Duration: 500 * time.Millisecond,
			Factor:   2.0,
			Jitter:   0.1,
			Steps:    DefaultMaxAttempts,
			Cap:      10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes events until ctx is canceled or events closes. A failed
// reconcile is logged and dropped; nothing here terminates the process.
func (r *Reconciler) Run(ctx context.Context, events <-chan watcher.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.OnEvent(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Error("Reconciler", err, "reconcile failed for %s/%s, next event or relist will retry",
					ev.Resource.Namespace, ev.Resource.Name)
			}
		}
	}
}

// OnEvent derives this agent's desired contribution from one watch event
// and, when there is something to publish, runs the write protocol.
//
// Deleted events and events without a load balancer address take no
// authoritative action: the agent's item is left as last known good. The
// record is shared, so removal on a local blip would amplify a transient
// ingress outage into a DNS outage for this location.
func (r *Reconciler) OnEvent(ctx context.Context, ev watcher.Event) error {
	switch ev.Type {
	case watcher.EventAdded, watcher.EventModified:
		address := ev.Resource.LoadBalancerAddress
		if address == "" {
			logging.Debug("Reconciler", "no load balancer address yet for %s/%s, skipping",
				ev.Resource.Namespace, ev.Resource.Name)
			return nil
		}
		logging.Info("Reconciler", "%s %s/%s with address %s",
			ev.Type, ev.Resource.Namespace, ev.Resource.Name, address)
		mine := dns.Item{Location: r.identity.Location, Addresses: []string{address}}
		return r.write(ctx, mine)
	case watcher.EventDeleted:
		logging.Debug("Reconciler", "%s/%s deleted, leaving record item for %s in place",
			ev.Resource.Namespace, ev.Resource.Name, r.identity.Location)
		return nil
	default:
		logging.Warn("Reconciler", "ignoring event with unknown type %q", ev.Type)
		return nil
	}
}

// write runs the bounded merge-and-write loop: fetch, merge, short-circuit
// on no-op, replace based on the fetched copy. Conflicts and transient
// failures both consume an attempt, but only transient failures wait out a
// jittered exponential delay first: a conflict means another writer just
// succeeded, so the fresh read is available immediately. Anything else
// fails the event right away.
func (r *Reconciler) write(ctx context.Context, mine dns.Item) error {
	backoff := r.backoff
	var lastErr error
	delayNext := false

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if delayNext {
			if !sleep(ctx, backoff.Step()) {
				return ctx.Err()
			}
			delayNext = false
		}

		current, err := r.store.Fetch(ctx, r.identity.Zone, r.identity.RecordName, dns.TypeA)
		if err != nil {
			if dns.IsTransient(err) {
				lastErr = err
				delayNext = true
				logging.Debug("Reconciler", "fetch attempt %d/%d failed: %v", attempt, r.maxAttempts, err)
				continue
			}
			return fmt.Errorf("fetching %s: %w", r.identity.RecordName, err)
		}

		desired := dns.Merge(current, mine, r.identity.TTL, r.identity.FencingEnabled, r.identity.RecordName)
		if current != nil && desired.Equal(*current) {
			logging.Debug("Reconciler", "record %s already converged, skipping write", r.identity.RecordName)
			return nil
		}

		err = r.store.Replace(ctx, r.identity.Zone, desired, current)
		switch {
		case err == nil:
			logging.Info("Reconciler", "record %s updated: item %s -> %v",
				r.identity.RecordName, mine.Location, mine.Addresses)
			return nil
		case errors.Is(err, dns.ErrConflict):
			lastErr = err
			logging.Debug("Reconciler", "write attempt %d/%d lost the race, refetching", attempt, r.maxAttempts)
		case dns.IsTransient(err):
			lastErr = err
			delayNext = true
			logging.Debug("Reconciler", "write attempt %d/%d failed: %v", attempt, r.maxAttempts, err)
		default:
			return fmt.Errorf("replacing %s: %w", r.identity.RecordName, err)
		}
	}

	return fmt.Errorf("%w after %d attempts for %s: %w",
		ErrReconcileFailed, r.maxAttempts, r.identity.RecordName, lastErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
