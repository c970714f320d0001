package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bridge status record",
	Long:  `Display the current record of the status file: status, message and when it was written.`,
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the record as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	rec, ok := s.ledger().Read()
	if !ok {
		fmt.Fprintf(out, "No status recorded in %s\n", s.files.status)
		return nil
	}

	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(out, "Agent: %s\n", s.backend.DisplayName())
	fmt.Fprintf(out, "Status: %s\n", rec.Status)
	if rec.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", rec.Message)
	}
	fmt.Fprintf(out, "Updated: %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	return nil
}
