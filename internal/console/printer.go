package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/runner"
	"github.com/Iron-Ham/agentbridge/internal/util"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	ruleWidth = 60

	// commandPreviewLen bounds the echo of a detected command.
	commandPreviewLen = 80

	tagBridge = "[BRIDGE]"
	tagSender = "[SENDER]"
)

// Printer writes operator-facing output. It is safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	agent  string
	color  bool
	width  int
	styles Styles
}

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces styling on or off instead of detecting a terminal.
func WithColor(enabled bool) Option {
	return func(p *Printer) {
		p.color = enabled
	}
}

// WithWidth sets the column limit for prompt listings. Zero disables
// truncation.
func WithWidth(width int) Option {
	return func(p *Printer) {
		p.width = width
	}
}

// New creates a Printer writing to w. agent is the display name used in
// messages such as "Sending to Codex". Styling and width are detected from w
// when it is a terminal; NO_COLOR disables styling.
func New(w io.Writer, agent string, opts ...Option) *Printer {
	p := &Printer{w: w, agent: agent}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.color = os.Getenv("NO_COLOR") == ""
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	p.styles = NewStyles(lipgloss.NewRenderer(w))
	return p
}

// Attach subscribes the printer to every bridge and runner event on bus and
// returns the subscription IDs.
func (p *Printer) Attach(bus *event.Bus) []string {
	return []string{
		bus.Subscribe(event.TypeStatusChanged, p.onStatusChanged),
		bus.Subscribe(event.TypeCommandDetected, p.onCommandDetected),
		bus.Subscribe(event.TypeSelfTest, p.onSelfTest),
		bus.Subscribe(event.TypeBridgeError, p.onBridgeError),
		bus.Subscribe(event.TypeResponseReceived, p.onResponseReceived),
		bus.Subscribe(event.TypePromptAttempt, p.onPromptAttempt),
		bus.Subscribe(event.TypePromptAttemptFinished, p.onPromptAttemptFinished),
		bus.Subscribe(event.TypePromptDelay, p.onPromptDelay),
	}
}

// -----------------------------------------------------------------------------
// Bridge output
// -----------------------------------------------------------------------------

// BridgeFiles names the channel files shown in the watch banner.
type BridgeFiles struct {
	Command  string
	Response string
	Status   string
}

// WatchBanner prints the introduction shown when watch mode starts.
func (p *Printer) WatchBanner(files BridgeFiles) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rule()
	p.println(p.paint(p.styles.Title, strings.ToUpper(p.agent)+" SIMPLE BRIDGE - Watchdog Mode"))
	p.rule()
	p.println("")
	p.printf("This bridge relays commands to %s CLI\n", p.agent)
	p.println("using file-based messaging.")
	p.println("")
	p.println("How it works:")
	p.printf("  1. The controller writes a command to %s\n", files.Command)
	p.printf("  2. This bridge detects it and sends it to %s\n", p.agent)
	p.printf("  3. %s's response is saved to %s\n", p.agent, files.Response)
	p.println("  4. The controller reads the response and decides the next step")
	p.println("")
}

// SelfTestStarting announces the start-up round trip.
func (p *Printer) SelfTestStarting() {
	p.bridgeLine(p.styles.Muted, "Running initial test...")
}

// WatchStarting prints the files the watchdog is about to monitor.
func (p *Printer) WatchStarting(files BridgeFiles) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.println("")
	p.tagged(tagBridge, p.styles.Muted, "Starting watchdog mode...")
	p.tagged(tagBridge, p.styles.Muted, "Monitoring: "+files.Command)
	p.tagged(tagBridge, p.styles.Muted, "Responses saved to: "+files.Response)
	p.tagged(tagBridge, p.styles.Muted, "Status updates in: "+files.Status)
	p.println("")
}

func (p *Printer) onStatusChanged(e event.Event) {
	ev, ok := e.(event.StatusChangedEvent)
	if !ok {
		return
	}
	style := p.styles.StatusStyle(ev.Status)

	if ev.Source == "sender" {
		p.senderLine(style, fmt.Sprintf("Status: %s - %s", ev.Status, ev.Message))
		return
	}

	switch ev.Status {
	case "ready":
		p.bridgeLine(p.styles.Success, "Ready! Waiting for commands...")
	case "response_ready":
		p.bridgeLine(style, "Response received and saved")
	case "timeout", "error":
		p.bridgeLine(style, ev.Message)
	case "stopped":
		p.bridgeLine(p.styles.Muted, "Watchdog stopped")
	}
}

func (p *Printer) onCommandDetected(e event.Event) {
	ev, ok := e.(event.CommandDetectedEvent)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.println("")
	p.tagged(tagBridge, p.styles.Info, "New command detected!")
	p.tagged(tagBridge, p.styles.Info,
		fmt.Sprintf("Sending to %s: %s", p.agent, util.TruncateString(util.OneLine(ev.Command), commandPreviewLen)))
}

func (p *Printer) onSelfTest(e event.Event) {
	ev, ok := e.(event.SelfTestEvent)
	if !ok {
		return
	}
	if ev.OK {
		p.bridgeLine(p.styles.Success, "Test successful!")
		return
	}
	p.bridgeLine(p.styles.Warning, fmt.Sprintf("Test failed - check that '%s' is in your PATH", ev.Command))
}

func (p *Printer) onBridgeError(e event.Event) {
	if ev, ok := e.(event.BridgeErrorEvent); ok {
		p.bridgeLine(p.styles.Error, "Error in watchdog: "+ev.Err)
	}
}

// -----------------------------------------------------------------------------
// Sender output
// -----------------------------------------------------------------------------

// SenderSending echoes an outgoing message.
func (p *Printer) SenderSending(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tagged(tagSender, p.styles.Info, fmt.Sprintf("Sending to %s: %s", p.agent, message))
	p.tagged(tagSender, p.styles.Muted, "Message sent, waiting for response...")
}

// SenderTimeout reports that no response arrived in time.
func (p *Printer) SenderTimeout() {
	p.senderLine(p.styles.Warning, "Timeout waiting for response")
}

// Response prints a response between rules.
func (p *Printer) Response(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rule()
	p.println(response)
	p.rule()
}

func (p *Printer) onResponseReceived(e event.Event) {
	ev, ok := e.(event.ResponseReceivedEvent)
	if !ok {
		return
	}
	p.mu.Lock()
	p.println("")
	p.tagged(tagSender, p.styles.Success, fmt.Sprintf("Got response from %s:", p.agent))
	p.mu.Unlock()

	p.Response(ev.Response)
}

// -----------------------------------------------------------------------------
// Runner output
// -----------------------------------------------------------------------------

// RunInfo describes a run for its banner.
type RunInfo struct {
	PromptFile string
	Mode       string
	Method     string
	Timeout    time.Duration
	Prompts    []runner.Prompt
}

// RunnerBanner prints the run settings and the prompt list.
func (p *Printer) RunnerBanner(info RunInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rule()
	p.println(p.paint(p.styles.Title, strings.ToUpper(p.agent)+" SEQUENTIAL PROMPT RUNNER"))
	p.rule()
	p.printf("  Prompt file : %s\n", info.PromptFile)
	p.printf("  Prompts     : %d\n", len(info.Prompts))
	p.printf("  Mode        : %s\n", info.Mode)
	p.printf("  Timeout     : %ds per prompt\n", int(info.Timeout/time.Second))
	p.printf("  Method      : %s\n", info.Method)
	p.rule()
	p.println("")

	for i, prompt := range info.Prompts {
		p.println(p.fit(fmt.Sprintf("  %d. %s", i+1, prompt.Text)))
	}
	p.println("")
}

// NoPrompts explains the prompt file format after an empty parse.
func (p *Printer) NoPrompts(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.println(p.paint(p.styles.Error, "No prompts found in "+path))
	p.println("Format: one numbered prompt per line")
	p.println("  1. first prompt")
	p.println("  2. second prompt")
	p.println("  3. third prompt")
}

// RunnerSummary prints the closing tallies and where the transcript went.
// saveErr is the error from writing the transcript, if any.
func (p *Printer) RunnerSummary(tr *runner.Transcript, outputPath string, saveErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	failedStyle := p.styles.Success
	if tr.Failed() > 0 {
		failedStyle = p.styles.Error
	}

	p.println("")
	p.rule()
	p.println(p.paint(p.styles.Title, "SESSION COMPLETE"))
	p.rule()
	p.printf("  Prompts sent : %d\n", tr.Total)
	p.printf("  Succeeded    : %s\n", p.paint(p.styles.Success, fmt.Sprint(tr.Succeeded())))
	p.printf("  Failed       : %s\n", p.paint(failedStyle, fmt.Sprint(tr.Failed())))
	p.rule()
	if saveErr != nil {
		p.printf("  Could not save output file: %v\n", saveErr)
		return
	}
	p.printf("  Full output saved to: %s\n", outputPath)
}

func (p *Printer) onPromptAttempt(e event.Event) {
	ev, ok := e.(event.PromptAttemptEvent)
	if !ok {
		return
	}
	label := "new session"
	if ev.Resume {
		label = "resume"
	}
	if ev.Attempt > 1 {
		label += fmt.Sprintf(" (retry %d)", ev.Attempt-1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.rule()
	p.printf("%s %s\n",
		p.paint(p.styles.Tag, fmt.Sprintf("[%d/%d] SENDING (%s):", ev.Index+1, ev.Total, label)),
		ev.Prompt)
	p.rule()
}

func (p *Printer) onPromptAttemptFinished(e event.Event) {
	ev, ok := e.(event.PromptAttemptFinishedEvent)
	if !ok {
		return
	}
	number := ev.Index + 1

	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Stdout != "" {
		p.println(ev.Stdout)
	}
	if ev.Stderr != "" && ev.ExitCode != 0 {
		p.println(p.paint(p.styles.Error, "[STDERR]") + " " + ev.Stderr)
	}

	switch {
	case ev.GaveUp:
		p.println(p.paint(p.styles.Error,
			fmt.Sprintf("[FAILED] Prompt %d timed out %d times. Giving up.", number, ev.MaxAttempts)))
	case ev.WillRetry:
		p.println(p.paint(p.styles.Warning,
			fmt.Sprintf("[RETRY] Timed out. Retrying prompt %d (attempt %d/%d)...", number, ev.Attempt+1, ev.MaxAttempts)))
		p.println("")
	case ev.ExitCode != 0 && ev.ExitCode != -1:
		p.println(p.paint(p.styles.Warning,
			fmt.Sprintf("[WARNING] %s returned exit code %d", p.agent, ev.ExitCode)))
	}
}

func (p *Printer) onPromptDelay(e event.Event) {
	ev, ok := e.(event.PromptDelayEvent)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.println(p.paint(p.styles.Muted,
		fmt.Sprintf("[Waiting %d seconds before next prompt...]", int(ev.Delay/time.Second))))
	p.println("")
}

// -----------------------------------------------------------------------------
// Helpers; callers hold p.mu unless noted
// -----------------------------------------------------------------------------

// bridgeLine and senderLine take the lock themselves.
func (p *Printer) bridgeLine(style lipgloss.Style, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tagged(tagBridge, style, msg)
}

func (p *Printer) senderLine(style lipgloss.Style, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tagged(tagSender, style, msg)
}

func (p *Printer) tagged(tag string, style lipgloss.Style, msg string) {
	p.println(p.paint(p.styles.Tag, tag) + " " + p.paint(style, msg))
}

func (p *Printer) rule() {
	p.println(p.paint(p.styles.Rule, strings.Repeat("=", ruleWidth)))
}

func (p *Printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// fit truncates s to the terminal width.
func (p *Printer) fit(s string) string {
	if p.width <= 0 {
		return s
	}
	return util.TruncateANSI(s, p.width)
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}
