package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"geodns/pkg/logging"
)

const (
	// defaultReconnectInterval bounds the lifetime of a single watch
	// connection. Streams are torn down and reopened from the last cursor
	// on this interval even when healthy.
	defaultReconnectInterval = 5 * time.Minute

	backoffBase   = 5 * time.Second
	backoffFactor = 2.0
	backoffJitter = 0.1
	backoffCap    = 2 * time.Minute
)

// EventType tags a watch event.
type EventType string

const (
	EventAdded    EventType = "Added"
	EventModified EventType = "Modified"
	EventDeleted  EventType = "Deleted"
)

// ResourceState is the projection of a watched ingress that the reconciler
// cares about. Instances are rebuilt from every event and discarded after
// the reconciliation decision.
type ResourceState struct {
	Namespace string
	Name      string
	Labels    map[string]string

	// LoadBalancerAddress is the IP (or hostname, when the provider reports
	// no IP) of the first load balancer entry, empty while the load
	// balancer has not been provisioned.
	LoadBalancerAddress string
}

// Event is one resource change, carrying the cursor it was observed at.
// Relists re-deliver Added events for unchanged resources; consumers must
// treat re-delivery as idempotent.
type Event struct {
	Type     EventType
	Resource ResourceState
	Cursor   string
}

// errCursorExpired is internal to the state machine: the server rejected our
// cursor, so the next list must start from scratch. Not surfaced to callers.
var errCursorExpired = errors.New("watch cursor expired")

// Watcher maintains a long-lived list/watch session over ingresses matching
// a label selector and emits Events on a channel. The loop runs three
// states: Listing (full list, synthetic Added events), Streaming (watch from
// the last cursor), and Backoff (delay after a transport error). It never
// terminates on its own; only context cancellation stops it.
type Watcher struct {
	client            kubernetes.Interface
	selector          string
	cursor            string
	reconnectInterval time.Duration
	backoff           wait.Backoff
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSinceCursor resumes watching from a previously observed cursor
// instead of starting with a fresh list position.
func WithSinceCursor(cursor string) Option {
	return func(w *Watcher) { w.cursor = cursor }
}

// WithReconnectInterval overrides the forced reconnect interval.
func WithReconnectInterval(d time.Duration) Option {
	return func(w *Watcher) { w.reconnectInterval = d }
}

// WithBackoff overrides the transport-error backoff parameters.
func WithBackoff(b wait.Backoff) Option {
	return func(w *Watcher) { w.backoff = b }
}

// New creates a watcher for ingresses matching selector across all
// namespaces.
func New(client kubernetes.Interface, selector string, opts ...Option) *Watcher {
	w := &Watcher{
		client:            client,
		selector:          selector,
		reconnectInterval: defaultReconnectInterval,
		backoff:           defaultBackoff(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func defaultBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: backoffBase,
		Factor:   backoffFactor,
		Jitter:   backoffJitter,
		Steps:    10,
		Cap:      backoffCap,
	}
}

// Run drives the state machine until ctx is canceled, sending every event
// on events. Sends block, which is what serializes reconciliation: the next
// event is not delivered until the consumer finished the previous one.
// The only return value is ctx.Err().
func (w *Watcher) Run(ctx context.Context, events chan<- Event) error {
	logging.Info("Watcher", "watching ingresses with selector %q", w.selector)

	backoff := w.backoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.list(ctx, events); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := backoff.Step()
			logging.Warn("Watcher", "list failed, retrying in %s: %v", delay.Round(time.Millisecond), err)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		started := time.Now()
		err := w.stream(ctx, events)
		// Only a stream that stayed up for at least the backoff base resets
		// the schedule; a watch open that keeps failing keeps escalating
		// even while lists succeed.
		if time.Since(started) >= w.backoff.Duration {
			backoff = w.backoff
		}
		switch {
		case err == nil:
			// Stream ended (EOF or forced reconnect): relist from the last
			// seen cursor.
		case errors.Is(err, errCursorExpired):
			logging.Info("Watcher", "cursor expired, relisting from scratch")
			w.cursor = ""
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			delay := backoff.Step()
			logging.Warn("Watcher", "watch failed, retrying in %s: %v", delay.Round(time.Millisecond), err)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
		}
	}
}

// list performs a full list and emits synthetic Added events for every
// match. Re-delivered Added events for unchanged resources are expected;
// the consumer's no-op detection absorbs them.
func (w *Watcher) list(ctx context.Context, events chan<- Event) error {
	list, err := w.client.NetworkingV1().Ingresses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: w.selector,
	})
	if err != nil {
		return fmt.Errorf("listing ingresses: %w", err)
	}

	w.cursor = list.ResourceVersion
	for i := range list.Items {
		ev := Event{
			Type:     EventAdded,
			Resource: project(&list.Items[i]),
			Cursor:   list.ResourceVersion,
		}
		if !send(ctx, events, ev) {
			return ctx.Err()
		}
	}
	return nil
}

// stream opens a watch from the current cursor and forwards events until
// the stream ends. A nil return means "relist and keep going"; an
// errCursorExpired return forces a cursor reset first.
func (w *Watcher) stream(ctx context.Context, events chan<- Event) error {
	stream, err := w.client.NetworkingV1().Ingresses(metav1.NamespaceAll).Watch(ctx, metav1.ListOptions{
		LabelSelector:   w.selector,
		ResourceVersion: w.cursor,
	})
	if err != nil {
		if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
			return errCursorExpired
		}
		return fmt.Errorf("opening watch: %w", err)
	}
	defer stream.Stop()

	reconnect := time.NewTimer(w.reconnectInterval)
	defer reconnect.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnect.C:
			logging.Debug("Watcher", "forcing periodic reconnect after %s", w.reconnectInterval)
			return nil
		case ev, ok := <-stream.ResultChan():
			if !ok {
				logging.Debug("Watcher", "watch stream ended, relisting from cursor %q", w.cursor)
				return nil
			}
			if err := w.handle(ctx, ev, events); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev watch.Event, events chan<- Event) error {
	switch ev.Type {
	case watch.Error:
		status := apierrors.FromObject(ev.Object)
		if apierrors.IsResourceExpired(status) || apierrors.IsGone(status) {
			return errCursorExpired
		}
		return fmt.Errorf("watch error event: %v", status)
	case watch.Bookmark:
		if ing, ok := ev.Object.(*networkingv1.Ingress); ok {
			w.cursor = ing.ResourceVersion
		}
		return nil
	}

	ing, ok := ev.Object.(*networkingv1.Ingress)
	if !ok {
		logging.Warn("Watcher", "skipping malformed watch payload of type %T", ev.Object)
		return nil
	}
	w.cursor = ing.ResourceVersion

	out := Event{
		Resource: project(ing),
		Cursor:   ing.ResourceVersion,
	}
	switch ev.Type {
	case watch.Added:
		out.Type = EventAdded
	case watch.Modified:
		out.Type = EventModified
	case watch.Deleted:
		out.Type = EventDeleted
	default:
		logging.Warn("Watcher", "skipping watch event with unknown type %q", ev.Type)
		return nil
	}

	if !send(ctx, events, out) {
		return ctx.Err()
	}
	return nil
}

// project reduces an ingress to the state the reconciler consumes. The
// address is the first load balancer entry's IP, falling back to its
// hostname when the provider reports no IP.
func project(ing *networkingv1.Ingress) ResourceState {
	state := ResourceState{
		Namespace: ing.Namespace,
		Name:      ing.Name,
		Labels:    ing.Labels,
	}
	if lbs := ing.Status.LoadBalancer.Ingress; len(lbs) > 0 {
		if lbs[0].IP != "" {
			state.LoadBalancerAddress = lbs[0].IP
		} else {
			state.LoadBalancerAddress = lbs[0].Hostname
		}
	}
	return state
}

func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
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
