package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/console"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the agentbridge debug log",
	Long: `View and filter the JSON debug log written by watch, send and run.

The log lives at <logging.dir>/agentbridge.log.

Examples:
  # Show the last 50 entries
  agentbridge logs

  # Show everything the runner logged
  agentbridge logs -n 0 --component runner

  # Follow the watchdog in real time
  agentbridge logs -f --component watchdog

  # Only warnings and errors from the last hour
  agentbridge logs --level warn --since 1h

  # Search messages and fields
  agentbridge logs --grep "timed out|exit"`,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only show one component (watchdog/sender/runner/agent)")
}

// logEntry is one parsed JSON log line.
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Prompt    int            `json:"prompt,omitempty"`
	Extra     map[string]any `json:"-"`
}

// UnmarshalJSON captures fields without a dedicated struct field in Extra.
func (e *logEntry) UnmarshalJSON(data []byte) error {
	type alias logEntry
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"time", "level", "msg", "component", "agent", "prompt"} {
		delete(all, known)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects which entries are shown.
type logFilter struct {
	minLevel  int
	since     time.Time
	grep      *regexp.Regexp
	component string
}

func newLogFilter(level, since, grep, component string) (logFilter, error) {
	f := logFilter{minLevel: -1, component: strings.ToLower(component)}
	if level != "" {
		f.minLevel = levelPriority(logging.ParseLevel(level))
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = time.Now().Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

func (f logFilter) match(e *logEntry) bool {
	if f.minLevel >= 0 && levelPriority(e.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && e.Time.Before(f.since) {
		return false
	}
	if f.component != "" && !strings.EqualFold(e.Component, f.component) {
		return false
	}
	if f.grep != nil {
		text := e.Msg
		for _, v := range e.Extra {
			text += " " + fmt.Sprint(v)
		}
		if !f.grep.MatchString(text) {
			return false
		}
	}
	return true
}

// matchRaw applies the filter to a line that is not a JSON entry. Only the
// pattern can be checked; any other filter excludes the line.
func (f logFilter) matchRaw(line string) bool {
	if f.minLevel >= 0 || !f.since.IsZero() || f.component != "" {
		return false
	}
	return f.grep == nil || f.grep.MatchString(line)
}

// levelPriority orders log levels for filtering; unknown levels sort first.
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry renders e as "[15:04:05.000] [LEVEL] component: msg key=value ...".
func formatLogEntry(s console.Styles, e *logEntry) string {
	var sb strings.Builder

	sb.WriteString(s.Muted.Render("[" + e.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(s.LevelStyle(e.Level).Render("[" + strings.ToUpper(e.Level) + "]"))
	sb.WriteString(" ")
	if e.Component != "" {
		sb.WriteString(s.Tag.Render(e.Component + ":"))
		sb.WriteString(" ")
	}
	sb.WriteString(e.Msg)

	if e.Agent != "" {
		sb.WriteString(" " + s.Info.Render("agent=") + e.Agent)
	}
	if e.Prompt != 0 {
		sb.WriteString(fmt.Sprintf(" %s%d", s.Info.Render("prompt="), e.Prompt))
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" " + s.Info.Render(k+"=") + fmt.Sprint(e.Extra[k]))
	}

	return sb.String()
}

// formatLogLine parses and renders one raw line. Lines that are not JSON are
// returned unchanged; ok is false when the line is filtered out.
func formatLogLine(s console.Styles, f logFilter, line string) (string, bool) {
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, f.matchRaw(line)
	}
	if !f.match(&entry) {
		return "", false
	}
	return formatLogEntry(s, &entry), true
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Logging.Dir == "" {
		fmt.Fprintln(out, "Logging goes to stderr (logging.dir is empty); there is no log file to show.")
		return nil
	}

	logPath := filepath.Join(cfg.Logging.Dir, logging.LogFileName)
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "No logs found at %s\n", logPath)
		return nil
	}

	filter, err := newLogFilter(logsLevel, logsSince, logsGrep, logsComponent)
	if err != nil {
		return err
	}
	styles := console.NewStyles(lipgloss.NewRenderer(out))

	if logsFollow {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return followLogs(ctx, out, logPath, styles, filter)
	}
	return displayLogs(out, logPath, logsTail, styles, filter)
}

// displayLogs prints the last tail matching entries of the log file.
func displayLogs(out io.Writer, logPath string, tail int, s console.Styles, f logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if rendered, ok := formatLogLine(s, f, line); ok {
			lines = append(lines, rendered)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if len(lines) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// followLogs prints entries appended to the log file until ctx is done.
func followLogs(ctx context.Context, out io.Writer, logPath string, s console.Styles, f logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprint(out, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var partial string
	for {
		chunk, err := reader.ReadString('\n')
		partial += chunk
		if errors.Is(err, io.EOF) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}

		line := strings.TrimSpace(partial)
		partial = ""
		if line == "" {
			continue
		}
		if rendered, ok := formatLogLine(s, f, line); ok {
			fmt.Fprintln(out, rendered)
		}
	}
}
