package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/metrics"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/reconciler"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultListenAddr is where the submission front end sends updates
	DefaultListenAddr = "127.0.0.1:65432"

	// DefaultIdleWindow is the longest the loop waits between cycles
	DefaultIdleWindow = 60 * time.Second

	// CommandUpdate requests a reconciliation cycle
	CommandUpdate = "update"

	// Ack is sent back for every command received
	Ack = "Done"

	maxCommandSize = 1024
)

// Reconciler runs one reconciliation cycle
type Reconciler interface {
	Reconcile(ctx context.Context, settings types.Settings, opts reconciler.Options) error
}

// SettingsSource yields the settings for the next cycle
type SettingsSource interface {
	Load() types.Settings
}

// Config configures a Loop
type Config struct {
	ListenAddr string
	IdleWindow time.Duration
}

// Loop serializes reconciliation cycles. A cycle runs at start, on every
// "update" command and whenever the idle window passes without one.
type Loop struct {
	cfg          Config
	reconciler   Reconciler
	settings     SettingsSource
	listener     *net.TCPListener
	bootstrapped bool
	logger       zerolog.Logger
}

// New creates a trigger loop
func New(cfg Config, rec Reconciler, settings SettingsSource) *Loop {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultIdleWindow
	}
	return &Loop{
		cfg:        cfg,
		reconciler: rec,
		settings:   settings,
		logger:     log.WithComponent("trigger"),
	}
}

// Listen binds the listen address. Run calls it when needed.
func (l *Loop) Listen() error {
	if l.listener != nil {
		return nil
	}

	addr, err := net.ResolveTCPAddr("tcp", l.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", l.cfg.ListenAddr, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.cfg.ListenAddr, err)
	}

	l.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen
func (l *Loop) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Run executes the bootstrap cycle and then serves triggers until ctx is
// cancelled
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		metrics.ReportError(metrics.ComponentTrigger, err)
		return err
	}
	defer l.listener.Close()

	stop := context.AfterFunc(ctx, func() { l.listener.Close() })
	defer stop()

	metrics.UpdateComponent(metrics.ComponentTrigger, true, "listening on "+l.listener.Addr().String())
	l.logger.Info().
		Str("addr", l.listener.Addr().String()).
		Dur("idle_window", l.cfg.IdleWindow).
		Msg("Trigger loop started")

	l.cycle(ctx, "bootstrap")

	for {
		if ctx.Err() != nil {
			l.logger.Info().Msg("Trigger loop stopped")
			return nil
		}

		if err := l.listener.SetDeadline(time.Now().Add(l.cfg.IdleWindow)); err != nil {
			return fmt.Errorf("failed to set accept deadline: %w", err)
		}

		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				l.cycle(ctx, "timer")
				continue
			}
			metrics.ReportError(metrics.ComponentTrigger, err)
			return fmt.Errorf("failed to accept: %w", err)
		}

		l.serve(ctx, conn)
	}
}

// serve handles one client until it disconnects or stays silent for the
// idle window
func (l *Loop) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger := l.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Debug().Msg("Client connected")

	buf := make([]byte, maxCommandSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(l.cfg.IdleWindow)); err != nil {
			logger.Warn().Err(err).Msg("Failed to set read deadline")
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			command := string(bytes.TrimSpace(buf[:n]))
			if command == CommandUpdate {
				l.cycle(ctx, "client")
			} else {
				logger.Debug().Str("command", command).Msg("Ignoring unknown command")
			}

			if _, werr := conn.Write([]byte(Ack)); werr != nil {
				logger.Debug().Err(werr).Msg("Failed to acknowledge command")
				return
			}
		}

		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() && ctx.Err() == nil {
				logger.Debug().Msg("Dropping idle client")
				l.cycle(ctx, "timer")
			}
			return
		}
	}
}

// cycle runs one reconciliation with freshly loaded settings. Errors are
// logged and reported to the health registry; the loop keeps running. Cycles
// check endpoints until the first one succeeds.
func (l *Loop) cycle(ctx context.Context, source string) {
	metrics.TriggersTotal.WithLabelValues(source).Inc()

	settings := l.settings.Load()
	opts := reconciler.Options{CheckEndpoints: !l.bootstrapped}

	err := l.reconciler.Reconcile(ctx, settings, opts)
	if err != nil {
		l.logger.Error().Err(err).Str("source", source).Msg("Reconciliation failed")
		if errors.Is(err, queue.ErrUnavailable) {
			metrics.ReportError(metrics.ComponentQueue, err)
		} else {
			metrics.ReportError(metrics.ComponentOrchestrator, err)
		}
		return
	}

	l.bootstrapped = true
	metrics.UpdateComponent(metrics.ComponentQueue, true, "")
	metrics.UpdateComponent(metrics.ComponentOrchestrator, true, "")
}
