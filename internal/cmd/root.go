package cmd

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "agentbridge",
	Short: "File-based bridge and sequential prompt runner for agent CLIs",
	Long: `agentbridge lets a controlling process talk to command-line AI agents
(Codex, Gemini, Claude Code) through plain files, and runs numbered prompt
lists against a single resumable agent session.

The watch command relays commands from <agent>_command.txt to the agent and
writes replies to <agent>_response.txt, publishing progress in
<agent>_status.json. The send command is the other end of that exchange.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError reports a non-zero process exit status for an outcome that has
// already been explained on the console.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/agentbridge/config.yaml)")
	rootCmd.PersistentFlags().StringP("agent", "a", "", "agent backend: codex, gemini or claude (default codex)")
	rootCmd.PersistentFlags().String("dir", "", "directory holding the bridge files (default current directory)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("agent.backend", rootCmd.PersistentFlags().Lookup("agent"))
	_ = viper.BindPFlag("bridge.dir", rootCmd.PersistentFlags().Lookup("dir"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("AGENTBRIDGE")
	// e.g. AGENTBRIDGE_BRIDGE_DISPATCH_TIMEOUT_SECONDS for bridge.dispatch_timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
