// Package logging provides structured logging for geodns built on Go's
// standard slog package.
//
// All log entries carry a subsystem identifier for categorization alongside
// the level, timestamp, and message. Messages support printf-style
// formatting:
//
//	logging.Init(logging.LevelInfo, os.Stdout)
//	logging.Info("Watcher", "watching ingresses with selector %q", selector)
//	logging.Error("Reconciler", err, "reconcile failed for %s/%s", ns, name)
//
// Init also wires the controller-runtime global logger to the same handler,
// so Kubernetes client configuration discovery logs through the same
// infrastructure.
package logging
