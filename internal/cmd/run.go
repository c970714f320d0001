package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/agentbridge/internal/agent"
	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/console"
	"github.com/Iron-Ham/agentbridge/internal/errors"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/retry"
	"github.com/Iron-Ham/agentbridge/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send a numbered prompt list to one agent session",
	Long: `Run every prompt of a numbered prompt file, in ordinal order, against a
single agent session. The first prompt opens a new session and every later
prompt resumes it, so the agent keeps the context of the earlier ones.

A prompt that times out is retried in the same mode, up to the attempt
budget. Every prompt's output is written to the transcript file.

The prompt file holds one prompt per line:
  1. first prompt
  2) second prompt

Exits with status 0 only when every prompt succeeded.

Examples:
  agentbridge run
  agentbridge run --file=tasks.txt --timeout=600 --yolo`,
	// Switches meant for other tools are ignored rather than rejected.
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE:               runRun,
}

var (
	runYolo        bool
	runDangerously bool
	runFullAuto    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runYolo, "yolo", false, "bypass approvals and sandbox")
	runCmd.Flags().BoolVar(&runDangerously, "dangerously", false, "same as --yolo")
	runCmd.Flags().BoolVar(&runFullAuto, "full-auto", false, "sandboxed automatic approvals (default; wins over --yolo)")
	runCmd.Flags().Int("timeout", 0, "seconds allowed per prompt attempt (default 300)")
	runCmd.Flags().String("file", "", "prompt file (default codex_prompt.txt)")
	runCmd.Flags().String("output", "", "transcript file (default codex_output.txt)")
	runCmd.Flags().String("format", "", "transcript format: text, json or yaml (default text)")
	runCmd.Flags().Int("max-attempts", 0, "attempts per prompt that keeps timing out (default 10)")
	_ = viper.BindPFlag("runner.timeout_seconds", runCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("runner.prompt_file", runCmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("runner.output_file", runCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("runner.transcript_format", runCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("runner.max_attempts", runCmd.Flags().Lookup("max-attempts"))
}

// applyApprovalFlags maps the runner switches onto the agent approval mode.
func applyApprovalFlags(cfg *config.Config) {
	switch {
	case runFullAuto:
		cfg.Agent.ApprovalMode = agent.ApprovalFullAuto
	case runYolo || runDangerously:
		cfg.Agent.ApprovalMode = agent.ApprovalBypass
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(applyApprovalFlags)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	printer := console.New(out, s.backend.DisplayName())
	rc := s.cfg.Runner

	prompts, err := runner.LoadPrompts(rc.PromptFile)
	switch {
	case errors.Is(err, errors.ErrPromptsNotFound):
		fmt.Fprintf(out, "Error: %s not found!\n", rc.PromptFile)
		printer.NoPrompts(rc.PromptFile)
		return &ExitError{Code: 1}
	case errors.Is(err, errors.ErrNoPrompts):
		printer.NoPrompts(rc.PromptFile)
		return &ExitError{Code: 1}
	case err != nil:
		return err
	}

	if !s.backend.SupportsResume() {
		s.logger.Warn("agent cannot resume sessions; every prompt starts a new session",
			"agent", string(s.backend.Name()))
	}

	printer.RunnerBanner(console.RunInfo{
		PromptFile: rc.PromptFile,
		Mode:       s.cfg.Agent.ApprovalMode,
		Method:     sessionMethod(s.backend),
		Timeout:    rc.Timeout(),
		Prompts:    prompts,
	})

	bus := event.NewBus()
	printer.Attach(bus)

	r := runner.New(s.invoker(),
		runner.WithTimeout(rc.Timeout()),
		runner.WithPolicy(retry.Policy{MaxAttempts: rc.MaxAttempts, Delay: rc.RetryDelay()}),
		runner.WithPromptDelay(rc.PromptDelay()),
		runner.WithAgentName(string(s.backend.Name())),
		runner.WithEventBus(bus),
		runner.WithLogger(s.logger),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, runErr := r.Run(ctx, prompts)
	if runErr != nil {
		s.logger.Warn("run interrupted", "error", runErr, "completed", len(tr.Results))
	}
	tr.PromptFile = rc.PromptFile

	saveErr := runner.WriteTranscript(rc.OutputFile, rc.TranscriptFormat, tr)
	if saveErr != nil {
		s.logger.Error("failed to write transcript", "path", rc.OutputFile, "error", saveErr)
	}
	printer.RunnerSummary(tr, rc.OutputFile, saveErr)

	if code := tr.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func sessionMethod(b agent.Backend) string {
	if b.SupportsResume() {
		return b.Command() + " new session, then resume (session context preserved)"
	}
	return b.Command() + " new session per prompt (resume not supported)"
}
