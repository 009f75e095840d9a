package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/nbsched/pkg/config"
	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/orchestrator"
	"github.com/cuemby/nbsched/pkg/poller"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nbsched",
	Short: "nbsched - notebook job scheduler for Kubernetes",
	Long: `nbsched keeps one notebook Job and one NodePort Service per row of the
task queue, starts queued notebooks up to a parallelism limit and cleans up
after notebooks that finished.

The submission front end wakes it up with "nbsched trigger" (or by sending
"update" to the trigger port) after changing the queue.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nbsched version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	registerGlobalFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

// registerGlobalFlags adds the flags shared by every subcommand
func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "YAML config file")
	flags.String("kubeconfig", "", "Path to kubeconfig (default: in-cluster config)")
	flags.StringP("namespace", "n", config.DefaultNamespace, "Namespace for notebook jobs and services")
	flags.String("queue-driver", config.DefaultQueueDriver, "Queue backend: sqlite or bolt")
	flags.String("queue-path", config.DefaultQueuePath, "Path to the queue database")
	flags.String("settings", config.DefaultSettingsFile, "Path to the settings file")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Log as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nbsched version %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Built: %s\n", BuildTime)
	},
}

// loadConfig reads the config file, applies explicitly set flags on top and
// initializes logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if flags.Changed(name) {
			*dst, _ = flags.GetDuration(name)
		}
	}

	str("kubeconfig", &cfg.Kubeconfig)
	str("namespace", &cfg.Namespace)
	str("queue-driver", &cfg.Queue.Driver)
	str("queue-path", &cfg.Queue.Path)
	str("settings", &cfg.SettingsFile)
	str("log-level", &cfg.Log.Level)
	str("listen", &cfg.Trigger.ListenAddr)
	str("metrics-addr", &cfg.MetricsAddr)
	dur("idle-window", &cfg.Trigger.IdleWindow)
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})

	return cfg, nil
}

// stack holds the clients every reconciling command needs
type stack struct {
	client orchestrator.Client
	store  queue.Store
	poller *poller.Poller
}

func newStack(cfg *config.Config) (*stack, error) {
	store, err := queue.Open(cfg.Queue.Driver, cfg.Queue.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	client, err := orchestrator.NewForConfig(cfg.Kubeconfig, orchestrator.Options{
		Namespace:   cfg.Namespace,
		Image:       cfg.Image,
		VolumeClaim: cfg.VolumeClaim,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create orchestrator client: %w", err)
	}

	return &stack{
		client: client,
		store:  store,
		poller: poller.New(client, store, poller.Options{
			Command:     cfg.Probe.Command,
			ReadTimeout: cfg.Probe.ReadTimeout,
		}),
	}, nil
}

func (s *stack) Close() error {
	return s.store.Close()
}
