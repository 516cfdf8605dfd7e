// Package watcher reports changes to individual files, such as the keyword
// rules file, after a debounce window. Each file's parent directory is watched
// so that editors which save by rename are still noticed.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounceDuration batches bursts of writes into a single callback.
const DefaultDebounceDuration = 250 * time.Millisecond

// Config holds file watcher configuration.
type Config struct {
	Files            []string      // Files to watch; they need not exist yet
	DebounceDuration time.Duration // Window used to batch rapid changes
	OnChange         func()        // Called once per batch of changes
	Logger           zerolog.Logger
}

// DefaultConfig returns a Config for files with the default debounce.
func DefaultConfig(onChange func(), files ...string) *Config {
	return &Config{
		Files:            files,
		DebounceDuration: DefaultDebounceDuration,
		OnChange:         onChange,
		Logger:           zerolog.Nop(),
	}
}

// Watcher monitors files and calls OnChange when any of them changes.
type Watcher struct {
	cfg     *Config
	fsw     *fsnotify.Watcher
	targets map[string]bool // cleaned absolute file paths
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
	started bool
	mu      sync.Mutex
}

// New creates a new Watcher instance.
func New(cfg *Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watcher.New: OnChange is required")
	}
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = DefaultDebounceDuration
	}

	targets := make(map[string]bool, len(cfg.Files))
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watcher.New: resolve %q: %w", f, err)
		}
		targets[filepath.Clean(abs)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		targets: targets,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching the directories holding the configured files.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher has been stopped and cannot be restarted")
	}
	if w.started {
		return nil
	}

	dirs := make(map[string]bool)
	for f := range w.targets {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
	}

	w.started = true
	go w.eventLoop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	_ = w.fsw.Close()
	w.mu.Unlock()

	if started {
		<-w.doneCh
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return w.targets[filepath.Clean(event.Name)]
}

// eventLoop processes fsnotify events with debouncing.
func (w *Watcher) eventLoop() {
	defer close(w.doneCh)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.cfg.Logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("watched file changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.cfg.DebounceDuration, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.cfg.Logger.Warn().Err(err).Msg("file watcher error")

		case <-fire:
			w.cfg.OnChange()
		}
	}
}
