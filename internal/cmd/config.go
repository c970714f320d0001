package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify agentbridge configuration",
	Long: `View or modify agentbridge configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  agentbridge config set agent.backend gemini
  agentbridge config set runner.timeout_seconds 600
  agentbridge config set bridge.trigger fsnotify

Run 'agentbridge config show' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/agentbridge/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys maps every settable key to its value kind. Kinds other than
// "string", "bool" and "int" name an enumeration checked by validateEnum.
var configKeys = map[string]string{
	"agent.backend":                   "backend",
	"agent.command":                   "string",
	"agent.approval_mode":             "approval",
	"agent.skip_git_repo_check":       "bool",
	"agent.work_dir":                  "string",
	"bridge.dir":                      "string",
	"bridge.command_file":             "string",
	"bridge.response_file":            "string",
	"bridge.status_file":              "string",
	"bridge.poll_interval_ms":         "int",
	"bridge.trigger":                  "trigger",
	"bridge.dispatch_timeout_seconds": "int",
	"bridge.self_test":                "bool",
	"bridge.send_poll_interval_ms":    "int",
	"bridge.send_max_wait_seconds":    "int",
	"runner.prompt_file":              "string",
	"runner.output_file":              "string",
	"runner.transcript_format":        "format",
	"runner.timeout_seconds":          "int",
	"runner.max_attempts":             "int",
	"runner.retry_delay_seconds":      "int",
	"runner.prompt_delay_seconds":     "int",
	"logging.enabled":                 "bool",
	"logging.level":                   "level",
	"logging.dir":                     "string",
	"logging.max_size_mb":             "int",
	"logging.max_backups":             "int",
	"metrics.addr":                    "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	settings := make(map[string]any)
	for key := range configKeys {
		section, name, _ := strings.Cut(key, ".")
		values, ok := settings[section].(map[string]any)
		if !ok {
			values = make(map[string]any)
			settings[section] = values
		}
		values[name] = viper.Get(key)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'agentbridge config show' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	default:
		if err := validateEnum(key, keyType, value); err != nil {
			return err
		}
		typedValue = strings.ToLower(value)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

func validateEnum(key, kind, value string) error {
	var valid []string
	switch kind {
	case "backend":
		valid = config.ValidBackends()
	case "approval":
		valid = config.ValidApprovalModes()
	case "trigger":
		valid = config.ValidTriggers()
	case "format":
		valid = config.ValidTranscriptFormats()
	case "level":
		valid = config.ValidLogLevels()
	}
	if !slices.Contains(valid, strings.ToLower(value)) {
		return fmt.Errorf("invalid value for %s: %s\nValid options: %s", key, value, strings.Join(valid, ", "))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'agentbridge config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize agentbridge's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: AGENTBRIDGE_* (e.g., AGENTBRIDGE_AGENT_BACKEND)")
	return nil
}

const defaultConfigFile = `# agentbridge configuration

# The agent CLI to drive
agent:
  # codex, gemini or claude
  backend: codex
  # Executable name or path (default: the backend name)
  command: ""
  # full-auto, bypass or default
  approval_mode: full-auto
  # Pass --skip-git-repo-check to codex
  skip_git_repo_check: true

# File-based command/response bridge
bridge:
  # Directory holding <agent>_command.txt, <agent>_response.txt, <agent>_status.json
  dir: ""
  # How often the watchdog checks the command file
  poll_interval_ms: 500
  # poll or fsnotify
  trigger: poll
  # Budget for each agent reply
  dispatch_timeout_seconds: 120
  # Send a greeting to the agent before watching
  self_test: true
  # Sender polling interval and wait budget
  send_poll_interval_ms: 1000
  send_max_wait_seconds: 120

# Sequential prompt runner
runner:
  prompt_file: codex_prompt.txt
  output_file: codex_output.txt
  # text, json or yaml
  transcript_format: text
  timeout_seconds: 300
  max_attempts: 10
  retry_delay_seconds: 3
  prompt_delay_seconds: 2

logging:
  enabled: true
  level: info
  dir: .agentbridge
  max_size_mb: 10
  max_backups: 3

metrics:
  # Listen address for /metrics during watch, e.g. ":9464"
  addr: ""
`
