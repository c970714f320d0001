package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete agentbridge configuration
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AgentConfig selects and configures the external agent CLI
type AgentConfig struct {
	// Backend is the agent to drive: "codex", "gemini" or "claude" (default: "codex")
	Backend string `mapstructure:"backend"`
	// Command overrides the executable name or path (default: the backend name)
	Command string `mapstructure:"command"`
	// ApprovalMode is the approval/sandbox posture: "full-auto", "bypass" or "default"
	// (default: "full-auto")
	ApprovalMode string `mapstructure:"approval_mode"`
	// SkipGitRepoCheck passes --skip-git-repo-check to codex (default: true)
	SkipGitRepoCheck bool `mapstructure:"skip_git_repo_check"`
	// WorkDir is the directory agents run in (default: current directory)
	WorkDir string `mapstructure:"work_dir"`
}

// BridgeConfig controls the file-based command/response bridge
type BridgeConfig struct {
	// Dir is the directory holding the channel files (default: current directory)
	Dir string `mapstructure:"dir"`
	// CommandFile overrides the command file name (default: "<backend>_command.txt")
	CommandFile string `mapstructure:"command_file"`
	// ResponseFile overrides the response file name (default: "<backend>_response.txt")
	ResponseFile string `mapstructure:"response_file"`
	// StatusFile overrides the status file name (default: "<backend>_status.json")
	StatusFile string `mapstructure:"status_file"`
	// PollIntervalMs is how often the watchdog checks the command file (default: 500)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// Trigger selects how the watchdog wakes up: "poll" or "fsnotify" (default: "poll")
	Trigger string `mapstructure:"trigger"`
	// DispatchTimeoutSeconds bounds each agent invocation made by the watchdog (default: 120)
	DispatchTimeoutSeconds int `mapstructure:"dispatch_timeout_seconds"`
	// SelfTest runs one greeting round trip before watching (default: true)
	SelfTest bool `mapstructure:"self_test"`
	// SendPollIntervalMs is how often the sender checks the status file (default: 1000)
	SendPollIntervalMs int `mapstructure:"send_poll_interval_ms"`
	// SendMaxWaitSeconds is how long the sender waits for a response (default: 120)
	SendMaxWaitSeconds int `mapstructure:"send_max_wait_seconds"`
}

// RunnerConfig controls the sequential prompt runner
type RunnerConfig struct {
	// PromptFile is the numbered prompt list (default: "codex_prompt.txt")
	PromptFile string `mapstructure:"prompt_file"`
	// OutputFile is where the transcript is written (default: "codex_output.txt")
	OutputFile string `mapstructure:"output_file"`
	// TranscriptFormat is "text", "json" or "yaml" (default: "text")
	TranscriptFormat string `mapstructure:"transcript_format"`
	// TimeoutSeconds bounds each prompt invocation (default: 300)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// MaxAttempts is the attempt budget for a prompt that keeps timing out (default: 10)
	MaxAttempts int `mapstructure:"max_attempts"`
	// RetryDelaySeconds is the pause between timed-out attempts (default: 3)
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	// PromptDelaySeconds is the pause between prompts (default: 2)
	PromptDelaySeconds int `mapstructure:"prompt_delay_seconds"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether the JSON log file is written (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where agentbridge.log is written (default: ".agentbridge")
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// MetricsConfig controls the Prometheus endpoint of the watch command
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it (default: "")
	Addr string `mapstructure:"addr"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Backend:          "codex",
			Command:          "",
			ApprovalMode:     "full-auto",
			SkipGitRepoCheck: true,
			WorkDir:          "",
		},
		Bridge: BridgeConfig{
			Dir:                    "",
			PollIntervalMs:         500,
			Trigger:                "poll",
			DispatchTimeoutSeconds: 120,
			SelfTest:               true,
			SendPollIntervalMs:     1000,
			SendMaxWaitSeconds:     120,
		},
		Runner: RunnerConfig{
			PromptFile:         "codex_prompt.txt",
			OutputFile:         "codex_output.txt",
			TranscriptFormat:   "text",
			TimeoutSeconds:     300,
			MaxAttempts:        10,
			RetryDelaySeconds:  3,
			PromptDelaySeconds: 2,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        ".agentbridge",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// PollInterval returns the watchdog polling interval
func (c *BridgeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DispatchTimeout returns the per-command agent budget
func (c *BridgeConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// SendPollInterval returns the sender's status polling interval
func (c *BridgeConfig) SendPollInterval() time.Duration {
	return time.Duration(c.SendPollIntervalMs) * time.Millisecond
}

// SendMaxWait returns how long the sender waits for a response
func (c *BridgeConfig) SendMaxWait() time.Duration {
	return time.Duration(c.SendMaxWaitSeconds) * time.Second
}

// Paths resolves the command, response and status file paths for backend.
// Empty names default to "<backend>_command.txt", "<backend>_response.txt"
// and "<backend>_status.json" inside Dir.
func (c *BridgeConfig) Paths(backend string) (command, response, status string) {
	name := func(override, suffix string) string {
		if override == "" {
			override = backend + suffix
		}
		if filepath.IsAbs(override) {
			return override
		}
		return filepath.Join(c.Dir, override)
	}
	return name(c.CommandFile, "_command.txt"),
		name(c.ResponseFile, "_response.txt"),
		name(c.StatusFile, "_status.json")
}

// Timeout returns the per-prompt budget
func (c *RunnerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between timed-out attempts
func (c *RunnerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// PromptDelay returns the pause between prompts
func (c *RunnerConfig) PromptDelay() time.Duration {
	return time.Duration(c.PromptDelaySeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Agent defaults
	viper.SetDefault("agent.backend", defaults.Agent.Backend)
	viper.SetDefault("agent.command", defaults.Agent.Command)
	viper.SetDefault("agent.approval_mode", defaults.Agent.ApprovalMode)
	viper.SetDefault("agent.skip_git_repo_check", defaults.Agent.SkipGitRepoCheck)
	viper.SetDefault("agent.work_dir", defaults.Agent.WorkDir)

	// Bridge defaults
	viper.SetDefault("bridge.dir", defaults.Bridge.Dir)
	viper.SetDefault("bridge.command_file", defaults.Bridge.CommandFile)
	viper.SetDefault("bridge.response_file", defaults.Bridge.ResponseFile)
	viper.SetDefault("bridge.status_file", defaults.Bridge.StatusFile)
	viper.SetDefault("bridge.poll_interval_ms", defaults.Bridge.PollIntervalMs)
	viper.SetDefault("bridge.trigger", defaults.Bridge.Trigger)
	viper.SetDefault("bridge.dispatch_timeout_seconds", defaults.Bridge.DispatchTimeoutSeconds)
	viper.SetDefault("bridge.self_test", defaults.Bridge.SelfTest)
	viper.SetDefault("bridge.send_poll_interval_ms", defaults.Bridge.SendPollIntervalMs)
	viper.SetDefault("bridge.send_max_wait_seconds", defaults.Bridge.SendMaxWaitSeconds)

	// Runner defaults
	viper.SetDefault("runner.prompt_file", defaults.Runner.PromptFile)
	viper.SetDefault("runner.output_file", defaults.Runner.OutputFile)
	viper.SetDefault("runner.transcript_format", defaults.Runner.TranscriptFormat)
	viper.SetDefault("runner.timeout_seconds", defaults.Runner.TimeoutSeconds)
	viper.SetDefault("runner.max_attempts", defaults.Runner.MaxAttempts)
	viper.SetDefault("runner.retry_delay_seconds", defaults.Runner.RetryDelaySeconds)
	viper.SetDefault("runner.prompt_delay_seconds", defaults.Runner.PromptDelaySeconds)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Metrics defaults
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentbridge"
	}
	return filepath.Join(home, ".config", "agentbridge")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidBackends returns the list of supported agent backends
func ValidBackends() []string {
	return []string{"codex", "gemini", "claude"}
}

// ValidApprovalModes returns the list of valid approval/sandbox postures
func ValidApprovalModes() []string {
	return []string{"full-auto", "bypass", "default"}
}

// ValidTriggers returns the list of valid watchdog trigger kinds
func ValidTriggers() []string {
	return []string{"poll", "fsnotify"}
}

// ValidTranscriptFormats returns the list of valid transcript formats
func ValidTranscriptFormats() []string {
	return []string{"text", "json", "yaml"}
}

// NormalizeBackend lower-cases and trims a backend name
func NormalizeBackend(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
