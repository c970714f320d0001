package cmd

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/agentbridge/internal/agent"
	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/ledger"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/Iron-Ham/agentbridge/internal/mailbox"
)

// bridgeFiles holds the resolved channel paths for one backend.
type bridgeFiles struct {
	command  string
	response string
	status   string
}

// session bundles what every command needs: configuration, the selected
// backend and a logger.
type session struct {
	cfg     *config.Config
	backend agent.Backend
	logger  *logging.Logger
	files   bridgeFiles
}

// newSession loads the configuration, applies overrides in order and
// resolves the backend and its bridge files.
func newSession(overrides ...func(*config.Config)) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, override := range overrides {
		override(cfg)
	}

	backend, err := agent.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	command, response, status := cfg.Bridge.Paths(string(backend.Name()))
	return &session{
		cfg:     cfg,
		backend: backend,
		logger:  createLogger(cfg),
		files:   bridgeFiles{command: command, response: response, status: status},
	}, nil
}

func (s *session) channel() *mailbox.Channel {
	return mailbox.NewFileChannel(s.files.command, s.files.response)
}

func (s *session) ledger() *ledger.FileLedger {
	return ledger.NewFileLedger(s.files.status)
}

func (s *session) invoker() *agent.ExecInvoker {
	return agent.NewExecInvoker(s.backend, s.cfg.Agent.WorkDir, s.logger)
}

func (s *session) close() {
	_ = s.logger.Close()
}

// createLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func createLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotation := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, rotation)
	if err != nil {
		// Log creation failure shouldn't prevent the command from running
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}
