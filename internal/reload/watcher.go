// Package reload re-reads the configuration file at runtime and hands the
// new component sections to the running components. A reload is triggered
// by SIGHUP, by the admin API or by the file watcher.
package reload

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Path is the configuration file to watch.
	Path string

	// PollInterval is how often the file is stat'ed. Defaults to 5 seconds.
	PollInterval time.Duration
}

func (c WatcherConfig) interval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// Change reports that the watched file changed on disk.
type Change struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// fingerprint identifies one version of the file.
type fingerprint struct {
	mod  time.Time
	size int64
}

// Watcher polls the configuration file and reports changes. A file that
// disappears is ignored until it comes back.
type Watcher struct {
	cfg     WatcherConfig
	changes chan Change
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a file watcher. Nothing is polled until Start.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		changes: make(chan Change, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Only the first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Changes returns the channel of change notifications. Pending changes are
// coalesced: at most one is buffered.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Stop stops polling and waits for the poller to exit. It may be called
// more than once, and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.interval())
	defer ticker.Stop()

	last, _ := w.stat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			cur, ok := w.stat()
			if !ok || cur == last {
				continue
			}
			last = cur
			select {
			case w.changes <- Change{Path: w.cfg.Path, ModTime: cur.mod, Size: cur.size}:
			default:
			}
		}
	}
}

func (w *Watcher) stat() (fingerprint, bool) {
	info, err := os.Stat(w.cfg.Path)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{mod: info.ModTime(), size: info.Size()}, true
}

// Follow reloads through h on every change w reports until ctx is done.
// Failed reloads are logged and the running configuration is kept.
func Follow(ctx context.Context, w *Watcher, h *Handler, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-w.Changes():
			logger.Info("config file changed, reloading", "path", c.Path)
			if err := h.HandleReload(ctx, c.Path); err != nil {
				logger.Error("config reload failed", "path", c.Path, "error", err)
			}
		}
	}
}
