// agentbridge relays prompts between a controlling process and agent CLIs
// through files, and runs numbered prompt lists against one agent session.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Iron-Ham/agentbridge/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is normal; the environment is used as is.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
