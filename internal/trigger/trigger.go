// Package trigger decides when the watchdog should look at the command file
// again: on a fixed interval, or when the filesystem reports a change.
package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kinds accepted by New.
const (
	KindPoll     = "poll"
	KindFsnotify = "fsnotify"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Trigger blocks the watchdog loop until the next check is due.
type Trigger interface {
	// Wait returns nil when a check is due, or ctx.Err() if ctx ends first.
	Wait(ctx context.Context) error
	Close() error
}

// New builds a Trigger of the given kind for the file at path.
func New(kind, path string, interval time.Duration) (Trigger, error) {
	switch kind {
	case KindPoll, "":
		return NewPoller(interval), nil
	case KindFsnotify:
		return NewNotifier(path, interval)
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", kind)
	}
}

// Poller fires once per interval.
type Poller struct {
	interval time.Duration
}

// NewPoller creates a Poller. Non-positive intervals use DefaultInterval.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{interval: interval}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration { return p.interval }

func (p *Poller) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) Close() error { return nil }

// Notifier wakes when the watched file is written or created. The fallback
// interval still fires so a dropped event costs at most one period.
type Notifier struct {
	watcher  *fsnotify.Watcher
	target   string
	fallback time.Duration
	wake     chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	mu      sync.Mutex
	lastErr error
}

// NewNotifier watches the directory containing path.
func NewNotifier(path string, fallback time.Duration) (*Notifier, error) {
	if fallback <= 0 {
		fallback = DefaultInterval
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors and os.WriteFile may replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	n := &Notifier{
		watcher:  watcher,
		target:   abs,
		fallback: fallback,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	n.wg.Go(n.loop)
	return n, nil
}

func (n *Notifier) loop() {
	for {
		select {
		case <-n.stopCh:
			return
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != n.target {
				continue
			}
			select {
			case n.wake <- struct{}{}:
			default:
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.mu.Lock()
			n.lastErr = err
			n.mu.Unlock()
		}
	}
}

func (n *Notifier) Wait(ctx context.Context) error {
	timer := time.NewTimer(n.fallback)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-n.wake:
		return nil
	case <-timer.C:
		return nil
	}
}

// Err returns the most recent watcher error, if any.
func (n *Notifier) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// Close stops the watcher. It is safe to call more than once.
func (n *Notifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.stopCh)
		err = n.watcher.Close()
		n.wg.Wait()
	})
	return err
}
