package bridge

import (
	"time"

	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/logging"
)

const (
	// defaultDispatchTimeout bounds one agent invocation made by the watchdog.
	defaultDispatchTimeout = 120 * time.Second

	// defaultErrorBackoff is how long the watchdog sleeps after a loop error.
	defaultErrorBackoff = time.Second

	// defaultSendInterval is how often the sender re-reads the ledger.
	defaultSendInterval = time.Second
)

// Option configures a Watchdog or a Sender.
type Option func(*config)

type config struct {
	timeout      time.Duration
	errorBackoff time.Duration
	sendInterval time.Duration
	logger       *logging.Logger
	bus          *event.Bus
	metrics      *Metrics
	now          func() time.Time
}

func newConfig(opts []Option) *config {
	cfg := &config{
		timeout:      defaultDispatchTimeout,
		errorBackoff: defaultErrorBackoff,
		sendInterval: defaultSendInterval,
		logger:       logging.NopLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.timeout <= 0 {
		cfg.timeout = defaultDispatchTimeout
	}
	if cfg.errorBackoff <= 0 {
		cfg.errorBackoff = defaultErrorBackoff
	}
	if cfg.sendInterval <= 0 {
		cfg.sendInterval = defaultSendInterval
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// WithDispatchTimeout sets the per-command agent budget.
// A zero or negative value is replaced with the default (120s).
func WithDispatchTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithErrorBackoff sets how long the watchdog pauses after a loop error.
func WithErrorBackoff(d time.Duration) Option {
	return func(c *config) {
		c.errorBackoff = d
	}
}

// WithSendInterval sets how often the sender polls the ledger.
func WithSendInterval(d time.Duration) Option {
	return func(c *config) {
		c.sendInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithEventBus publishes transitions on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithMetrics records dispatch outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithClock overrides the clock used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}
