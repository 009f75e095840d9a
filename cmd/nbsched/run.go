package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/nbsched/pkg/api"
	"github.com/cuemby/nbsched/pkg/config"
	"github.com/cuemby/nbsched/pkg/events"
	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/metrics"
	"github.com/cuemby/nbsched/pkg/reconciler"
	"github.com/cuemby/nbsched/pkg/trigger"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler daemon",
	Long: `Run the scheduler daemon.

The daemon performs a bootstrap cycle (which also recreates missing
services), then reconciles on every "update" received on the trigger port
and at least once per idle window.`,
	RunE: runDaemon,
}

func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", config.DefaultListenAddr, "Trigger listen address")
	cmd.Flags().Duration("idle-window", config.DefaultIdleWindow, "Reconcile at least this often")
	cmd.Flags().String("metrics-addr", "", "Serve /health, /ready and /metrics on this address")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.WithComponent("daemon")

	metrics.SetVersion(Version)
	metrics.RegisterComponent(metrics.ComponentTrigger, false, "starting")

	s, err := newStack(cfg)
	if err != nil {
		metrics.ReportError(metrics.ComponentQueue, err)
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	go logEvents(broker)

	if cfg.MetricsAddr != "" {
		hs := api.NewHealthServer(Version)
		go func() {
			if err := hs.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Health server failed")
			}
		}()
	}

	rec := reconciler.New(s.client, s.store, s.poller, broker)
	loop := trigger.New(trigger.Config{
		ListenAddr: cfg.Trigger.ListenAddr,
		IdleWindow: cfg.Trigger.IdleWindow,
	}, rec, config.SettingsLoader{Path: cfg.SettingsFile})

	logger.Info().
		Str("version", Version).
		Str("namespace", cfg.Namespace).
		Str("queue", cfg.Queue.Driver+":"+cfg.Queue.Path).
		Str("settings", cfg.SettingsFile).
		Msg("Starting nbsched")

	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("trigger loop: %w", err)
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}

// logEvents writes broker events to the debug log until the broker stops
// delivering
func logEvents(broker *events.Broker) {
	logger := log.WithComponent("events")
	for e := range broker.Subscribe() {
		ev := logger.Debug().Str("event_id", e.ID).Str("type", string(e.Type))
		for k, v := range e.Metadata {
			ev = ev.Str(k, v)
		}
		ev.Msg(e.Message)
	}
}
