package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cuemby/nbsched/pkg/config"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/reconciler"
	"github.com/cuemby/nbsched/pkg/trigger"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a single reconciliation cycle and exit",
	Long: `Run a single reconciliation cycle against the queue and the cluster.

Do not run this while the daemon is running; use "nbsched trigger" instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		checkEndpoints, _ := cmd.Flags().GetBool("check-endpoints")

		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		settings := config.SettingsLoader{Path: cfg.SettingsFile}.Load()
		rec := reconciler.New(s.client, s.store, s.poller, nil)
		return rec.Reconcile(ctx, settings, reconciler.Options{CheckEndpoints: checkEndpoints})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask a running daemon to reconcile now",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := trigger.Notify(ctx, addr); err != nil {
			return err
		}
		fmt.Println("✓ Reconciliation done")
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := queue.Open(cfg.Queue.Driver, cfg.Queue.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		tasks, err := store.ListTasks(cmd.Context())
		if err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks queued")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tPROGRAM\tSTATUS\tWORKLOAD\tPORT")
		for _, t := range tasks {
			status := string(t.Status)
			if status == "" {
				status = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
				t.ID, t.Owner, t.Program, status, types.WorkloadName(t.ID), types.NodePort(t.ID))
		}
		return w.Flush()
	},
}

func init() {
	reconcileCmd.Flags().Bool("check-endpoints", false, "Recreate missing services for active workloads")

	triggerCmd.Flags().String("addr", config.DefaultListenAddr, "Daemon trigger address")
	triggerCmd.Flags().Duration("timeout", 5*time.Minute, "How long to wait for the cycle to finish")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(tasksCmd)
}
