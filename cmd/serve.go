package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"

	"geodns/internal/config"
	"geodns/internal/credentials"
	"geodns/internal/dns"
	"geodns/internal/reconciler"
	"geodns/internal/watcher"
	"geodns/pkg/logging"
)

// serveLogLevel selects the log verbosity: debug, info, warn, or error.
var serveLogLevel string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent: watch ingresses and keep the shared record converged",
	Long: `Starts the long-running agent loop. The agent lists and watches ingresses
matching LABEL_SELECTOR, and for every event carrying a load balancer
address it merges this cluster's geo item into the shared record named by
DNS_RECORD_NAME and writes the result back through an atomic change set,
retrying on conflicts with other clusters' agents.

Configuration comes from the environment: GCP_PROJECT, DNS_ZONE_NAME and
DNS_RECORD_NAME are required; GEO_LOCATION, LABEL_SELECTOR and TTL are
optional. Missing or invalid configuration is fatal at startup. Everything
after startup is retried indefinitely; the process only stops on SIGINT or
SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe wires the watcher to the reconciler and runs both until a
// shutdown signal arrives.
func runServe(cmd *cobra.Command, args []string) error {
	logging.Init(logging.ParseLevel(serveLogLevel), os.Stdout)

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logging.Info("Bootstrap", "geodns %s starting (run %s): record %s in zone %s, location %s",
		GetVersion(), runID, cfg.RecordName, cfg.Zone, cfg.Location)

	// In-cluster configuration first, kubeconfig fallback for local runs.
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("loading kubernetes configuration: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}

	creds, err := credentials.NewGoogle(ctx)
	if err != nil {
		return fmt.Errorf("initializing GCP credentials: %w", err)
	}

	store := dns.NewClient(cfg.Project, creds)
	w := watcher.New(clientset, cfg.LabelSelector)
	rec := reconciler.New(store, reconciler.Identity{
		Location:   cfg.Location,
		Zone:       cfg.Zone,
		RecordName: cfg.RecordName,
		TTL:        cfg.TTL,
	})

	// One unbuffered channel between the two loops keeps reconciliation
	// strictly sequential: the watcher cannot hand over the next event
	// until the previous write protocol reached a terminal state.
	events := make(chan watcher.Event)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return w.Run(ctx, events) })
	group.Go(func() error { return rec.Run(ctx, events) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info("Bootstrap", "shutdown signal received, exiting")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
}
