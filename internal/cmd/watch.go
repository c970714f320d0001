package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/bridge"
	"github.com/Iron-Ham/agentbridge/internal/console"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/trigger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Relay commands from the command file to the agent",
	Long: `Watch the command file and hand every new command to the agent.

Each command is run as a fresh agent session. The reply is written to the
response file and the status file moves through sending, then
response_ready, timeout or error. Stop with Ctrl+C.

Examples:
  # Bridge to Codex in the current directory
  agentbridge watch

  # Bridge to Gemini, waking on file changes and exposing metrics
  agentbridge watch --agent gemini --trigger fsnotify --metrics-addr :9464`,
	RunE: runWatch,
}

// metricsShutdownTimeout bounds the graceful stop of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Bool("self-test", true, "send a greeting to the agent before watching")
	watchCmd.Flags().String("trigger", "", "wake-up source: poll or fsnotify (default poll)")
	watchCmd.Flags().Int("timeout", 0, "seconds to wait for each agent reply (default 120)")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	_ = viper.BindPFlag("bridge.self_test", watchCmd.Flags().Lookup("self-test"))
	_ = viper.BindPFlag("bridge.trigger", watchCmd.Flags().Lookup("trigger"))
	_ = viper.BindPFlag("bridge.dispatch_timeout_seconds", watchCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("metrics.addr", watchCmd.Flags().Lookup("metrics-addr"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trig, err := trigger.New(s.cfg.Bridge.Trigger, s.files.command, s.cfg.Bridge.PollInterval())
	if err != nil {
		return err
	}
	defer func() { _ = trig.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := event.NewBus()
	printer := console.New(cmd.OutOrStdout(), s.backend.DisplayName())
	printer.Attach(bus)

	wd := bridge.NewWatchdog(s.invoker(), s.backend, s.channel(), s.ledger(), trig,
		bridge.WithDispatchTimeout(s.cfg.Bridge.DispatchTimeout()),
		bridge.WithLogger(s.logger),
		bridge.WithEventBus(bus),
		bridge.WithMetrics(bridge.MustNewMetrics(reg)),
	)

	files := console.BridgeFiles{Command: s.files.command, Response: s.files.response, Status: s.files.status}
	printer.WatchBanner(files)
	if s.cfg.Bridge.SelfTest {
		printer.SelfTestStarting()
		wd.SelfTest(ctx)
	}
	printer.WatchStarting(files)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wd.Run(gctx)
	})
	if addr := s.cfg.Metrics.Addr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			s.logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
