// Package agent knows how to launch the supported agent CLIs and runs one
// invocation at a time through an Invoker.
package agent

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/errors"
)

// BackendName identifies a supported agent backend.
type BackendName string

const (
	BackendCodex  BackendName = "codex"
	BackendGemini BackendName = "gemini"
	BackendClaude BackendName = "claude"
)

// Mode selects whether an invocation opens a new session or continues the
// most recent one.
type Mode int

const (
	// ModeNew starts a fresh conversation.
	ModeNew Mode = iota
	// ModeResume continues the most recent conversation in the working directory.
	ModeResume
)

func (m Mode) String() string {
	if m == ModeResume {
		return "resume"
	}
	return "new session"
}

// Approval modes accepted by backends.
const (
	ApprovalFullAuto = "full-auto"
	ApprovalBypass   = "bypass"
	ApprovalDefault  = "default"
)

// Backend provides the per-agent command line. Prompts are always delivered
// on stdin, so argv never contains user text.
type Backend interface {
	Name() BackendName
	DisplayName() string
	// Command returns the executable name or path.
	Command() string
	// Args returns the arguments for one invocation in the given mode.
	Args(mode Mode) []string
	// SupportsResume reports whether ModeResume continues a session.
	SupportsResume() bool
}

// NewFromConfig builds a Backend from the agent section of the configuration.
func NewFromConfig(cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing config")
	}
	return New(cfg.Agent)
}

// New builds a Backend from agent settings.
func New(cfg config.AgentConfig) (Backend, error) {
	switch BackendName(config.NormalizeBackend(cfg.Backend)) {
	case BackendCodex, "":
		return NewCodexBackend(cfg), nil
	case BackendGemini:
		return NewGeminiBackend(cfg), nil
	case BackendClaude:
		return NewClaudeBackend(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownBackend, cfg.Backend)
	}
}

func commandOr(cfg config.AgentConfig, fallback BackendName) string {
	if cfg.Command != "" {
		return cfg.Command
	}
	return string(fallback)
}

// CodexBackend drives `codex exec`, reading the prompt from stdin.
type CodexBackend struct {
	command          string
	approvalMode     string
	skipGitRepoCheck bool
}

// NewCodexBackend creates a Codex backend from config.
func NewCodexBackend(cfg config.AgentConfig) *CodexBackend {
	mode := cfg.ApprovalMode
	if mode == "" {
		mode = ApprovalFullAuto
	}
	return &CodexBackend{
		command:          commandOr(cfg, BackendCodex),
		approvalMode:     mode,
		skipGitRepoCheck: cfg.SkipGitRepoCheck,
	}
}

func (c *CodexBackend) Name() BackendName { return BackendCodex }

func (c *CodexBackend) DisplayName() string { return "Codex" }

func (c *CodexBackend) Command() string { return c.command }

func (c *CodexBackend) SupportsResume() bool { return true }

// Args returns `exec [resume --last] <approval> [--skip-git-repo-check] -`.
func (c *CodexBackend) Args(mode Mode) []string {
	args := []string{"exec"}
	if mode == ModeResume {
		args = append(args, "resume", "--last")
	}
	args = append(args, c.approvalFlags()...)
	if c.skipGitRepoCheck {
		args = append(args, "--skip-git-repo-check")
	}
	return append(args, "-")
}

func (c *CodexBackend) approvalFlags() []string {
	switch strings.ToLower(c.approvalMode) {
	case ApprovalBypass:
		return []string{"--dangerously-bypass-approvals-and-sandbox"}
	case ApprovalFullAuto:
		return []string{"--full-auto"}
	default:
		return nil
	}
}

// GeminiBackend drives the Gemini CLI. It has no resume support, so every
// invocation is a new session.
type GeminiBackend struct {
	command      string
	approvalMode string
}

// NewGeminiBackend creates a Gemini backend from config.
func NewGeminiBackend(cfg config.AgentConfig) *GeminiBackend {
	mode := cfg.ApprovalMode
	if mode == "" {
		mode = ApprovalFullAuto
	}
	return &GeminiBackend{command: commandOr(cfg, BackendGemini), approvalMode: mode}
}

func (g *GeminiBackend) Name() BackendName { return BackendGemini }

func (g *GeminiBackend) DisplayName() string { return "Gemini" }

func (g *GeminiBackend) Command() string { return g.command }

func (g *GeminiBackend) SupportsResume() bool { return false }

func (g *GeminiBackend) Args(Mode) []string {
	if strings.ToLower(g.approvalMode) == ApprovalDefault {
		return nil
	}
	return []string{"--yolo"}
}

// ClaudeBackend drives Claude Code in print mode.
type ClaudeBackend struct {
	command      string
	approvalMode string
}

// NewClaudeBackend creates a Claude backend from config.
func NewClaudeBackend(cfg config.AgentConfig) *ClaudeBackend {
	return &ClaudeBackend{command: commandOr(cfg, BackendClaude), approvalMode: cfg.ApprovalMode}
}

func (c *ClaudeBackend) Name() BackendName { return BackendClaude }

func (c *ClaudeBackend) DisplayName() string { return "Claude" }

func (c *ClaudeBackend) Command() string { return c.command }

func (c *ClaudeBackend) SupportsResume() bool { return true }

func (c *ClaudeBackend) Args(mode Mode) []string {
	args := []string{"--print"}
	if mode == ModeResume {
		args = append(args, "--continue")
	}
	if strings.ToLower(c.approvalMode) == ApprovalBypass {
		args = append(args, "--dangerously-skip-permissions")
	}
	return args
}
