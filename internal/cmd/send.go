package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Iron-Ham/agentbridge/internal/bridge"
	"github.com/Iron-Ham/agentbridge/internal/console"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send a message through a running bridge and wait for the reply",
	Long: `Write a message to the command file and wait for the watching bridge to
publish a response. The words of the message are joined with spaces.

Exits with status 1 when no response arrives within --wait seconds.

Examples:
  agentbridge send "Summarize the failing tests"
  agentbridge send --agent gemini --wait 300 review main.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().Int("wait", 0, "seconds to wait for a response (default 120)")
	_ = viper.BindPFlag("bridge.send_max_wait_seconds", sendCmd.Flags().Lookup("wait"))
}

func runSend(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus()
	printer := console.New(cmd.OutOrStdout(), s.backend.DisplayName())
	printer.Attach(bus)

	sender := bridge.NewSender(s.channel(), s.ledger(),
		bridge.WithSendInterval(s.cfg.Bridge.SendPollInterval()),
		bridge.WithLogger(s.logger),
		bridge.WithEventBus(bus),
	)

	message := strings.Join(args, " ")
	printer.SenderSending(message)
	if _, ok := sender.Send(ctx, message, s.cfg.Bridge.SendMaxWait()); !ok {
		printer.SenderTimeout()
		return &ExitError{Code: 1}
	}
	return nil
}
