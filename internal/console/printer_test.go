package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/runner"
	"github.com/charmbracelet/lipgloss"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *event.Bus) {
	var buf bytes.Buffer
	p := New(&buf, "Codex")
	bus := event.NewBus()
	p.Attach(bus)
	return p, &buf, bus
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestPrinter_PlainWhenNotTerminal(t *testing.T) {
	p, buf, _ := newTestPrinter()
	p.SenderTimeout()

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("output contains ANSI escapes: %q", buf.String())
	}
	if got := buf.String(); got != "[SENDER] Timeout waiting for response\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrinter_WatchdogEvents(t *testing.T) {
	_, buf, bus := newTestPrinter()

	bus.Publish(event.NewStatusChangedEvent("watchdog", "ready", "Waiting for commands"))
	bus.Publish(event.NewCommandDetectedEvent(strings.Repeat("x", 100)))
	bus.Publish(event.NewStatusChangedEvent("watchdog", "sending", "Sending: xxx..."))
	bus.Publish(event.NewStatusChangedEvent("watchdog", "response_ready", "Response available"))
	bus.Publish(event.NewStatusChangedEvent("watchdog", "timeout", "Codex response timed out after 120 seconds"))
	bus.Publish(event.NewBridgeErrorEvent(errors.New("stat failed")))
	bus.Publish(event.NewStatusChangedEvent("watchdog", "stopped", "Bridge stopped"))

	want := []string{
		"[BRIDGE] Ready! Waiting for commands...",
		"",
		"[BRIDGE] New command detected!",
		"[BRIDGE] Sending to Codex: " + strings.Repeat("x", 77) + "...",
		"[BRIDGE] Response received and saved",
		"[BRIDGE] Codex response timed out after 120 seconds",
		"[BRIDGE] Error in watchdog: stat failed",
		"[BRIDGE] Watchdog stopped",
	}
	got := lines(buf)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestPrinter_SelfTest(t *testing.T) {
	_, buf, bus := newTestPrinter()

	bus.Publish(event.NewSelfTestEvent(true, "codex", ""))
	bus.Publish(event.NewSelfTestEvent(false, "codex", "not found"))

	want := "[BRIDGE] Test successful!\n" +
		"[BRIDGE] Test failed - check that 'codex' is in your PATH\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_SenderFlow(t *testing.T) {
	p, buf, bus := newTestPrinter()

	p.SenderSending("hello")
	bus.Publish(event.NewStatusChangedEvent("sender", "sending", "Sending: hello..."))
	bus.Publish(event.NewResponseReceivedEvent("[10:00:00] QUESTION: hello\n\nRESPONSE:\nhi\n"))

	out := buf.String()
	for _, want := range []string{
		"[SENDER] Sending to Codex: hello\n",
		"[SENDER] Message sent, waiting for response...\n",
		"[SENDER] Status: sending - Sending: hello...\n",
		"\n[SENDER] Got response from Codex:\n" + strings.Repeat("=", 60) + "\n[10:00:00] QUESTION: hello",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "hi\n\n"+strings.Repeat("=", 60)+"\n") {
		t.Errorf("response should be closed by a rule:\n%s", out)
	}
}

func TestPrinter_PromptAttempts(t *testing.T) {
	_, buf, bus := newTestPrinter()
	rule := strings.Repeat("=", 60)

	bus.Publish(event.NewPromptAttemptEvent(1, 3, 5, "run the tests", true, 2))
	if got := buf.String(); got != rule+"\n[2/3] SENDING (resume (retry 1)): run the tests\n"+rule+"\n" {
		t.Errorf("attempt header = %q", got)
	}

	buf.Reset()
	bus.Publish(event.NewPromptAttemptEvent(0, 3, 1, "first", false, 1))
	if !strings.Contains(buf.String(), "[1/3] SENDING (new session): first") {
		t.Errorf("attempt header = %q", buf.String())
	}
}

func TestPrinter_PromptOutcomes(t *testing.T) {
	tests := []struct {
		name string
		ev   event.PromptAttemptFinishedEvent
		want string
	}{
		{
			name: "success prints stdout only",
			ev:   event.PromptAttemptFinishedEvent{Index: 0, Stdout: "done", Stderr: "progress noise"},
			want: "done\n",
		},
		{
			name: "non-zero exit warns",
			ev:   event.PromptAttemptFinishedEvent{Index: 0, Stdout: "partial", Stderr: "boom", ExitCode: 2},
			want: "partial\n[STDERR] boom\n[WARNING] Codex returned exit code 2\n",
		},
		{
			name: "timeout retries",
			ev: event.PromptAttemptFinishedEvent{
				Index: 1, Stderr: "Timed out after 300 seconds", ExitCode: -1,
				TimedOut: true, Attempt: 1, MaxAttempts: 10, WillRetry: true,
			},
			want: "[STDERR] Timed out after 300 seconds\n[RETRY] Timed out. Retrying prompt 2 (attempt 2/10)...\n\n",
		},
		{
			name: "timeout gives up",
			ev: event.PromptAttemptFinishedEvent{
				Index: 1, Stderr: "Timed out after 300 seconds", ExitCode: -1,
				TimedOut: true, Attempt: 10, MaxAttempts: 10, GaveUp: true,
			},
			want: "[STDERR] Timed out after 300 seconds\n[FAILED] Prompt 2 timed out 10 times. Giving up.\n",
		},
		{
			name: "start failure has no warning",
			ev:   event.PromptAttemptFinishedEvent{Index: 0, Stderr: "agent executable not found", ExitCode: -1},
			want: "[STDERR] agent executable not found\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, buf, bus := newTestPrinter()
			bus.Publish(event.NewPromptAttemptFinishedEvent(tt.ev))
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrinter_PromptDelay(t *testing.T) {
	_, buf, bus := newTestPrinter()
	bus.Publish(event.NewPromptDelayEvent(2 * time.Second))
	if buf.String() != "[Waiting 2 seconds before next prompt...]\n\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_RunnerBanner(t *testing.T) {
	p, buf, _ := newTestPrinter()
	p.RunnerBanner(RunInfo{
		PromptFile: "codex_prompt.txt",
		Mode:       "--full-auto",
		Method:     "codex exec + resume (session context preserved)",
		Timeout:    300 * time.Second,
		Prompts:    []runner.Prompt{{Ordinal: 4, Text: "alpha"}, {Ordinal: 9, Text: "beta"}},
	})

	out := buf.String()
	for _, want := range []string{
		"CODEX SEQUENTIAL PROMPT RUNNER\n",
		"  Prompt file : codex_prompt.txt\n",
		"  Prompts     : 2\n",
		"  Mode        : --full-auto\n",
		"  Timeout     : 300s per prompt\n",
		"  Method      : codex exec + resume (session context preserved)\n",
		"  1. alpha\n  2. beta\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q\n%s", want, out)
		}
	}
}

func TestPrinter_RunnerBannerTruncatesToWidth(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, "Codex", WithWidth(20))
	p.RunnerBanner(RunInfo{Prompts: []runner.Prompt{{Ordinal: 1, Text: strings.Repeat("long ", 10)}}})

	for _, line := range lines(&buf) {
		if strings.HasPrefix(line, "  1. ") && len(line) > 20 {
			t.Errorf("prompt line not truncated: %q", line)
		}
	}
}

func TestPrinter_RunnerSummary(t *testing.T) {
	tr := &runner.Transcript{
		Total: 3,
		Results: []runner.Result{
			{ExitCode: 0},
			{ExitCode: -1},
		},
	}

	t.Run("saved", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "Codex").RunnerSummary(tr, "codex_output.txt", nil)
		out := buf.String()
		for _, want := range []string{
			"SESSION COMPLETE\n",
			"  Prompts sent : 3\n",
			"  Succeeded    : 1\n",
			"  Failed       : 2\n",
			"  Full output saved to: codex_output.txt\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q\n%s", want, out)
			}
		}
	})

	t.Run("save failed", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "Codex").RunnerSummary(tr, "codex_output.txt", errors.New("disk full"))
		if !strings.Contains(buf.String(), "  Could not save output file: disk full\n") {
			t.Errorf("summary = %s", buf.String())
		}
	})
}

func TestPrinter_NoPrompts(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "Codex").NoPrompts("codex_prompt.txt")
	if !strings.HasPrefix(buf.String(), "No prompts found in codex_prompt.txt\nFormat: one numbered prompt per line\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_ColorForced(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, "Codex", WithColor(true))
	p.SenderTimeout()
	if !strings.Contains(buf.String(), "Timeout waiting for response") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestStatusStyle(t *testing.T) {
	s := NewStyles(lipgloss.DefaultRenderer())
	if s.StatusStyle("error").GetForeground() != ErrorColor {
		t.Error("error status should use the error color")
	}
	if s.StatusStyle("response_ready").GetForeground() != SecondaryColor {
		t.Error("response_ready should use the success color")
	}
	if s.StatusStyle("unknown").GetForeground() != MutedColor {
		t.Error("unknown statuses should be muted")
	}
}

func TestLevelStyle(t *testing.T) {
	s := NewStyles(lipgloss.DefaultRenderer())
	if s.LevelStyle("warn").GetForeground() != WarningColor {
		t.Error("warn should use the warning color")
	}
	if s.LevelStyle("ERROR").GetForeground() != ErrorColor {
		t.Error("ERROR should use the error color")
	}
	if _, ok := s.LevelStyle("trace").GetForeground().(lipgloss.NoColor); !ok {
		t.Error("unknown levels should be unstyled")
	}
}
