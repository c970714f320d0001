package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transcript formats accepted by WriteTranscript.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ruleWidth is the width of the "====" separator in text transcripts.
const ruleWidth = 60

// Result is the recorded outcome of one prompt.
type Result struct {
	// Index is the zero-based position in the sorted prompt list.
	Index    int
	Ordinal  int
	Prompt   string
	Stdout   string
	Stderr   string
	ExitCode int
	// Attempts counts invocations, including retries after timeouts.
	Attempts int
	TimedOut bool
	Duration time.Duration
}

// Succeeded reports whether the agent exited zero.
func (r Result) Succeeded() bool { return r.ExitCode == 0 }

// Transcript is the ordered record of a run.
type Transcript struct {
	Agent      string
	PromptFile string
	Timeout    time.Duration
	// Total is the number of prompts the run was asked to send.
	Total      int
	Results    []Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded counts results with exit code zero.
func (t *Transcript) Succeeded() int {
	n := 0
	for _, r := range t.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts prompts that did not succeed, including prompts never run.
func (t *Transcript) Failed() int {
	return t.Total - t.Succeeded()
}

// AllSucceeded reports whether every prompt ran and exited zero.
func (t *Transcript) AllSucceeded() bool {
	return t.Succeeded() == t.Total
}

// ExitCode is the process exit status for the run: 0 when every prompt
// succeeded, 1 otherwise.
func (t *Transcript) ExitCode() int {
	if t.AllSucceeded() {
		return 0
	}
	return 1
}

// WriteTranscript writes t to path in the given format, creating parent
// directories as needed.
func WriteTranscript(path, format string, t *Transcript) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create transcript directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := EncodeTranscript(f, format, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeTranscript writes t to w in the given format.
func EncodeTranscript(w io.Writer, format string, t *Transcript) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return encodeText(w, t)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newTranscriptDoc(t))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newTranscriptDoc(t)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown transcript format %q", format)
	}
}

// encodeText writes one block per result:
//
//	====...
//	PROMPT <position>: <text>
//	====...
//	<stdout>
//	[STDERR] <stderr>
func encodeText(w io.Writer, t *Transcript) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", ruleWidth)
	for _, r := range t.Results {
		fmt.Fprintln(bw, rule)
		fmt.Fprintf(bw, "PROMPT %d: %s\n", r.Index+1, r.Prompt)
		fmt.Fprintln(bw, rule)
		fmt.Fprintln(bw, r.Stdout)
		if r.Stderr != "" {
			fmt.Fprintf(bw, "[STDERR] %s\n", r.Stderr)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

type transcriptDoc struct {
	Agent       string      `json:"agent,omitempty" yaml:"agent,omitempty"`
	PromptFile  string      `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`
	TimeoutSecs int         `json:"timeout_seconds" yaml:"timeout_seconds"`
	StartedAt   time.Time   `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time   `json:"finished_at" yaml:"finished_at"`
	PromptsSent int         `json:"prompts_sent" yaml:"prompts_sent"`
	Succeeded   int         `json:"succeeded" yaml:"succeeded"`
	Failed      int         `json:"failed" yaml:"failed"`
	Results     []resultDoc `json:"results" yaml:"results"`
}

type resultDoc struct {
	Prompt          int     `json:"prompt" yaml:"prompt"`
	Ordinal         int     `json:"ordinal" yaml:"ordinal"`
	Text            string  `json:"text" yaml:"text"`
	Stdout          string  `json:"stdout" yaml:"stdout"`
	Stderr          string  `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	ExitCode        int     `json:"exit_code" yaml:"exit_code"`
	Attempts        int     `json:"attempts" yaml:"attempts"`
	TimedOut        bool    `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

func newTranscriptDoc(t *Transcript) transcriptDoc {
	doc := transcriptDoc{
		Agent:       t.Agent,
		PromptFile:  t.PromptFile,
		TimeoutSecs: int(t.Timeout / time.Second),
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
		PromptsSent: t.Total,
		Succeeded:   t.Succeeded(),
		Failed:      t.Failed(),
		Results:     make([]resultDoc, 0, len(t.Results)),
	}
	for _, r := range t.Results {
		doc.Results = append(doc.Results, resultDoc{
			Prompt:          r.Index + 1,
			Ordinal:         r.Ordinal,
			Text:            r.Prompt,
			Stdout:          r.Stdout,
			Stderr:          r.Stderr,
			ExitCode:        r.ExitCode,
			Attempts:        r.Attempts,
			TimedOut:        r.TimedOut,
			DurationSeconds: r.Duration.Seconds(),
		})
	}
	return doc
}
