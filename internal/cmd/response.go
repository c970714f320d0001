package cmd

import (
	"fmt"

	"github.com/Iron-Ham/agentbridge/internal/bridge"
	"github.com/spf13/cobra"
)

var responseCmd = &cobra.Command{
	Use:   "response",
	Short: "Print the last response without waiting",
	Long:  `Print the content of the response file as left by the last exchange. Exits with status 1 when there is none.`,
	RunE:  runResponse,
}

func init() {
	rootCmd.AddCommand(responseCmd)
}

func runResponse(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	sender := bridge.NewSender(s.channel(), s.ledger(), bridge.WithLogger(s.logger))
	response, ok := sender.LastResponse()
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "No response available in %s\n", s.files.response)
		return &ExitError{Code: 1}
	}
	fmt.Fprint(cmd.OutOrStdout(), response)
	return nil
}
