package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "bridge.poll_interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateBridge()...)
	errors = append(errors, c.validateRunner()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func oneOf(field string, value string, valid []string) []ValidationError {
	if slices.Contains(valid, strings.ToLower(value)) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
	}}
}

func positive(field string, value int) []ValidationError {
	if value > 0 {
		return nil
	}
	return []ValidationError{{Field: field, Value: value, Message: "must be positive"}}
}

func nonNegative(field string, value int) []ValidationError {
	if value >= 0 {
		return nil
	}
	return []ValidationError{{Field: field, Value: value, Message: "must be non-negative"}}
}

func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError
	errors = append(errors, oneOf("agent.backend", NormalizeBackend(c.Agent.Backend), ValidBackends())...)
	errors = append(errors, oneOf("agent.approval_mode", c.Agent.ApprovalMode, ValidApprovalModes())...)
	return errors
}

func (c *Config) validateBridge() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positive("bridge.poll_interval_ms", c.Bridge.PollIntervalMs)...)
	errors = append(errors, positive("bridge.dispatch_timeout_seconds", c.Bridge.DispatchTimeoutSeconds)...)
	errors = append(errors, positive("bridge.send_poll_interval_ms", c.Bridge.SendPollIntervalMs)...)
	errors = append(errors, positive("bridge.send_max_wait_seconds", c.Bridge.SendMaxWaitSeconds)...)
	errors = append(errors, oneOf("bridge.trigger", c.Bridge.Trigger, ValidTriggers())...)

	// The watchdog must poll faster than once a second to stay responsive.
	if c.Bridge.PollIntervalMs >= 1000 {
		errors = append(errors, ValidationError{
			Field:   "bridge.poll_interval_ms",
			Value:   c.Bridge.PollIntervalMs,
			Message: "must be below 1000 (sub-second polling)",
		})
	}

	return errors
}

func (c *Config) validateRunner() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Runner.PromptFile) == "" {
		errors = append(errors, ValidationError{
			Field:   "runner.prompt_file",
			Value:   c.Runner.PromptFile,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Runner.OutputFile) == "" {
		errors = append(errors, ValidationError{
			Field:   "runner.output_file",
			Value:   c.Runner.OutputFile,
			Message: "must not be empty",
		})
	}
	errors = append(errors, oneOf("runner.transcript_format", c.Runner.TranscriptFormat, ValidTranscriptFormats())...)
	errors = append(errors, positive("runner.timeout_seconds", c.Runner.TimeoutSeconds)...)
	errors = append(errors, positive("runner.max_attempts", c.Runner.MaxAttempts)...)
	errors = append(errors, nonNegative("runner.retry_delay_seconds", c.Runner.RetryDelaySeconds)...)
	errors = append(errors, nonNegative("runner.prompt_delay_seconds", c.Runner.PromptDelaySeconds)...)

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" {
		errors = append(errors, oneOf("logging.level", c.Logging.Level, ValidLogLevels())...)
	}
	errors = append(errors, nonNegative("logging.max_size_mb", c.Logging.MaxSizeMB)...)
	errors = append(errors, nonNegative("logging.max_backups", c.Logging.MaxBackups)...)

	return errors
}
