package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Agent.Backend != "codex" {
		t.Errorf("Agent.Backend = %q, want %q", cfg.Agent.Backend, "codex")
	}
	if cfg.Agent.ApprovalMode != "full-auto" {
		t.Errorf("Agent.ApprovalMode = %q, want %q", cfg.Agent.ApprovalMode, "full-auto")
	}
	if cfg.Bridge.PollInterval() != 500*time.Millisecond {
		t.Errorf("Bridge.PollInterval() = %v, want 500ms", cfg.Bridge.PollInterval())
	}
	if cfg.Bridge.DispatchTimeout() != 120*time.Second {
		t.Errorf("Bridge.DispatchTimeout() = %v, want 2m", cfg.Bridge.DispatchTimeout())
	}
	if cfg.Bridge.SendPollInterval() != time.Second {
		t.Errorf("Bridge.SendPollInterval() = %v, want 1s", cfg.Bridge.SendPollInterval())
	}
	if cfg.Bridge.SendMaxWait() != 120*time.Second {
		t.Errorf("Bridge.SendMaxWait() = %v, want 2m", cfg.Bridge.SendMaxWait())
	}
	if !cfg.Bridge.SelfTest {
		t.Error("Bridge.SelfTest should be true by default")
	}
	if cfg.Runner.Timeout() != 300*time.Second {
		t.Errorf("Runner.Timeout() = %v, want 5m", cfg.Runner.Timeout())
	}
	if cfg.Runner.MaxAttempts != 10 {
		t.Errorf("Runner.MaxAttempts = %d, want 10", cfg.Runner.MaxAttempts)
	}
	if cfg.Runner.RetryDelay() != 3*time.Second {
		t.Errorf("Runner.RetryDelay() = %v, want 3s", cfg.Runner.RetryDelay())
	}
	if cfg.Runner.PromptDelay() != 2*time.Second {
		t.Errorf("Runner.PromptDelay() = %v, want 2s", cfg.Runner.PromptDelay())
	}
	if cfg.Runner.PromptFile != "codex_prompt.txt" || cfg.Runner.OutputFile != "codex_output.txt" {
		t.Errorf("Runner files = %q, %q", cfg.Runner.PromptFile, cfg.Runner.OutputFile)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should validate, got %v", ValidationErrors(errs))
	}
}

func TestBridgePaths(t *testing.T) {
	tests := []struct {
		name                      string
		cfg                       BridgeConfig
		backend                   string
		wantCmd, wantResp, wantSt string
	}{
		{
			name:     "defaults derive from backend",
			cfg:      BridgeConfig{},
			backend:  "codex",
			wantCmd:  "codex_command.txt",
			wantResp: "codex_response.txt",
			wantSt:   "codex_status.json",
		},
		{
			name:     "directory prefix",
			cfg:      BridgeConfig{Dir: "bridge"},
			backend:  "gemini",
			wantCmd:  filepath.Join("bridge", "gemini_command.txt"),
			wantResp: filepath.Join("bridge", "gemini_response.txt"),
			wantSt:   filepath.Join("bridge", "gemini_status.json"),
		},
		{
			name:     "overrides",
			cfg:      BridgeConfig{Dir: "bridge", CommandFile: "in.txt", StatusFile: "/tmp/st.json"},
			backend:  "codex",
			wantCmd:  filepath.Join("bridge", "in.txt"),
			wantResp: filepath.Join("bridge", "codex_response.txt"),
			wantSt:   "/tmp/st.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, resp, st := tt.cfg.Paths(tt.backend)
			if cmd != tt.wantCmd || resp != tt.wantResp || st != tt.wantSt {
				t.Errorf("Paths() = (%q, %q, %q), want (%q, %q, %q)",
					cmd, resp, st, tt.wantCmd, tt.wantResp, tt.wantSt)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"unknown backend", func(c *Config) { c.Agent.Backend = "copilot" }, "agent.backend"},
		{"bad approval mode", func(c *Config) { c.Agent.ApprovalMode = "yolo" }, "agent.approval_mode"},
		{"zero poll interval", func(c *Config) { c.Bridge.PollIntervalMs = 0 }, "bridge.poll_interval_ms"},
		{"slow poll interval", func(c *Config) { c.Bridge.PollIntervalMs = 2000 }, "bridge.poll_interval_ms"},
		{"bad trigger", func(c *Config) { c.Bridge.Trigger = "inotify" }, "bridge.trigger"},
		{"zero dispatch timeout", func(c *Config) { c.Bridge.DispatchTimeoutSeconds = 0 }, "bridge.dispatch_timeout_seconds"},
		{"empty prompt file", func(c *Config) { c.Runner.PromptFile = " " }, "runner.prompt_file"},
		{"bad transcript format", func(c *Config) { c.Runner.TranscriptFormat = "xml" }, "runner.transcript_format"},
		{"zero attempts", func(c *Config) { c.Runner.MaxAttempts = 0 }, "runner.max_attempts"},
		{"negative delay", func(c *Config) { c.Runner.PromptDelaySeconds = -1 }, "runner.prompt_delay_seconds"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, ValidationErrors(errs))
			}
		})
	}
}

func TestValidate_BackendIsCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Agent.Backend = " Gemini "
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", ValidationErrors(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render empty")
	}
	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if one.Error() != "a: bad (got: 1)" {
		t.Errorf("single error = %q", one.Error())
	}
	two := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}, {Field: "b", Value: 2, Message: "worse"}}
	if !strings.HasPrefix(two.Error(), "2 validation errors:") {
		t.Errorf("multi error = %q", two.Error())
	}
}

func TestLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("agent.backend", "gemini")
	viper.Set("runner.max_attempts", 4)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Backend != "gemini" {
		t.Errorf("Agent.Backend = %q, want gemini", cfg.Agent.Backend)
	}
	if cfg.Runner.MaxAttempts != 4 {
		t.Errorf("Runner.MaxAttempts = %d, want 4", cfg.Runner.MaxAttempts)
	}
	if cfg.Bridge.PollIntervalMs != 500 {
		t.Errorf("Bridge.PollIntervalMs = %d, want default 500", cfg.Bridge.PollIntervalMs)
	}
}

func TestGet_FallsBackToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("runner.max_attempts", 0)

	cfg := Get()
	if cfg.Runner.MaxAttempts != 10 {
		t.Errorf("Get() with invalid config should return defaults, got MaxAttempts=%d", cfg.Runner.MaxAttempts)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != filepath.Join("/xdg", "agentbridge") {
		t.Errorf("ConfigDir() = %q", got)
	}
	if got := ConfigFile(); got != filepath.Join("/xdg", "agentbridge", "config.yaml") {
		t.Errorf("ConfigFile() = %q", got)
	}
}
