package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Slot is a single-message mailbox.
type Slot interface {
	// Deposit replaces the slot contents.
	Deposit(text string) error
	// Read returns the contents without clearing them.
	Read() (string, error)
	// Take returns the contents and clears the slot.
	Take() (string, error)
	// ModTime reports when the slot was last written. A slot that does not
	// exist yet reports the zero time.
	ModTime() (time.Time, error)
	// Ensure creates an empty slot if none exists.
	Ensure() error
}

// FileSlot is a Slot backed by a plain text file.
type FileSlot struct {
	path string
}

// NewFileSlot creates a FileSlot for path. The file is created lazily.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Path returns the file path of the slot.
func (s *FileSlot) Path() string { return s.path }

func (s *FileSlot) Deposit(text string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mailbox: create directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("mailbox: write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSlot) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("mailbox: read %s: %w", s.path, err)
	}
	return string(data), nil
}

// Take reads the file and truncates it. The file itself is kept so its
// modification time keeps advancing on the next deposit.
func (s *FileSlot) Take() (string, error) {
	text, err := s.Read()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", nil
	}
	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return text, fmt.Errorf("mailbox: clear %s: %w", s.path, err)
	}
	return text, nil
}

func (s *FileSlot) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("mailbox: stat %s: %w", s.path, err)
	}
	return info.ModTime(), nil
}

func (s *FileSlot) Ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("mailbox: stat %s: %w", s.path, err)
	}
	return s.Deposit("")
}

// MemorySlot is an in-process Slot. A generation counter stands in for the
// file modification time, so every deposit is observed as a change.
type MemorySlot struct {
	mu      sync.Mutex
	text    string
	exists  bool
	written time.Time
	gen     int64
}

// NewMemorySlot creates an empty MemorySlot that does not exist yet.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Deposit(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.touch()
	return nil
}

func (s *MemorySlot) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, nil
}

func (s *MemorySlot) Take() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.text
	if text != "" {
		s.text = ""
		s.touch()
	}
	return text, nil
}

func (s *MemorySlot) ModTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written, nil
}

func (s *MemorySlot) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		s.touch()
	}
	return nil
}

// touch advances the synthetic modification time. The caller must hold mu.
func (s *MemorySlot) touch() {
	s.exists = true
	s.gen++
	s.written = time.Unix(0, s.gen)
}
