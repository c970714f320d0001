// Package ledger holds the single status record shared by a watchdog and its
// senders. The record is overwritten wholesale on every publish; there is no
// history.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/errors"
)

// Status is the bridge state carried by a Record.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusReady         Status = "ready"
	StatusSending       Status = "sending"
	StatusResponseReady Status = "response_ready"
	StatusTimeout       Status = "timeout"
	StatusError         Status = "error"
	StatusStopped       Status = "stopped"
)

// IsTerminal reports whether the status ends an exchange.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResponseReady, StatusTimeout, StatusError, StatusStopped:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// ParseStatus maps a wire value to a Status.
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case StatusIdle, StatusReady, StatusSending, StatusResponseReady,
		StatusTimeout, StatusError, StatusStopped:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// Record is the current bridge state.
type Record struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger publishes and reads the status record.
type Ledger interface {
	// Publish overwrites the record, stamping it with the current time.
	Publish(status Status, message string) (Record, error)
	// Read returns the current record, or false when it is missing or unreadable.
	Read() (Record, bool)
}

// Option configures a ledger.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FileLedger stores the record as indented JSON.
type FileLedger struct {
	path string
	now  func() time.Time
}

// NewFileLedger creates a FileLedger at path.
func NewFileLedger(path string, opts ...Option) *FileLedger {
	o := buildOptions(opts)
	return &FileLedger{path: path, now: o.now}
}

// Path returns the status file path.
func (l *FileLedger) Path() string { return l.path }

// Publish writes the whole document in a single write.
func (l *FileLedger) Publish(status Status, message string) (Record, error) {
	rec := Record{Status: status, Message: message, Timestamp: l.now()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rec, fmt.Errorf("ledger: marshal record: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return rec, fmt.Errorf("ledger: create directory: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return rec, fmt.Errorf("ledger: write %s: %w", l.path, err)
	}
	return rec, nil
}

// Read never fails: a missing, torn or unknown record reads as absent.
func (l *FileLedger) Read() (Record, bool) {
	rec, err := l.ReadStrict()
	if err != nil {
		return Record{}, false
	}
	return rec, true
}

// ReadStrict is Read with the reason for absence reported as a
// *errors.MalformedStateError.
func (l *FileLedger) ReadStrict() (Record, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return Record{}, errors.NewMalformedStateError(l.path, err)
	}
	return decode(l.path, data)
}

func decode(path string, data []byte) (Record, error) {
	var raw struct {
		Status    string    `json:"status"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, errors.NewMalformedStateError(path, err)
	}
	status, err := ParseStatus(raw.Status)
	if err != nil {
		return Record{}, errors.NewMalformedStateError(path, err)
	}
	return Record{Status: status, Message: raw.Message, Timestamp: raw.Timestamp}, nil
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu  sync.Mutex
	rec Record
	set bool
	now func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger(opts ...Option) *MemoryLedger {
	o := buildOptions(opts)
	return &MemoryLedger{now: o.now}
}

func (l *MemoryLedger) Publish(status Status, message string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec = Record{Status: status, Message: message, Timestamp: l.now()}
	l.set = true
	return l.rec, nil
}

func (l *MemoryLedger) Read() (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec, l.set
}
