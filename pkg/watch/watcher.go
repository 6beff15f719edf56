// Package watch reloads documents tracked by a sparse state when they change
// on disk.
//
// The watcher observes the directories holding tracked documents, batches
// filesystem events over a debounce window and calls State.Reload for every
// tracked path in the batch. Reloading bumps the version of changed
// documents, so every Ref or Root built on them reports ErrOutdatedPointer
// until it is updated. OnReload is the place to call Root.Update.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-sparse"
)

// Result reports one reload batch.
type Result struct {
	// Paths are the tracked documents the batch touched.
	Paths []string
	// Changed are the documents whose content differed and were replaced.
	Changed []string
	// Err is the first reload failure, if any.
	Err error
}

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for more events before reloading.
	// Default: 100ms
	Debounce time.Duration

	// RetryInterval is the pause between attempts when the state is
	// borrowed. Default: 10ms
	RetryInterval time.Duration

	// MaxRetries bounds attempts on a borrowed state. Default: 50
	MaxRetries int

	// OnReload is called after every batch, from the watcher goroutine.
	OnReload func(Result)

	// Logger receives watcher errors. Default: discard.
	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Debounce:      100 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
		MaxRetries:    50,
	}
}

// Watcher reloads tracked documents of a shared state on change.
type Watcher struct {
	shared  *sparse.SharedState
	watcher *fsnotify.Watcher
	opts    Options

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
	dirs     map[string]struct{}
}

// New creates a watcher over shared. It does not watch anything until Start.
func New(shared *sparse.SharedState, opts *Options) (*Watcher, error) {
	if shared == nil {
		return nil, errors.New("watch: shared state is required")
	}
	options := DefaultOptions()
	if opts != nil {
		if opts.Debounce > 0 {
			options.Debounce = opts.Debounce
		}
		if opts.RetryInterval > 0 {
			options.RetryInterval = opts.RetryInterval
		}
		if opts.MaxRetries > 0 {
			options.MaxRetries = opts.MaxRetries
		}
		options.OnReload = opts.OnReload
		options.Logger = opts.Logger
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		shared:  shared,
		watcher: watcher,
		opts:    options,
		changes: make(chan string, 256),
		done:    make(chan struct{}),
		dirs:    map[string]struct{}{},
	}, nil
}

// Start watches the directories of every tracked document and processes
// events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.Refresh(); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether Start was called and Stop was not.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// Refresh adds the directories of documents tracked since the last call.
func (w *Watcher) Refresh() error {
	var paths []string
	err := w.retry(func() error {
		return w.shared.Read(func(s *sparse.State) error {
			if s.InMemory() {
				return sparse.ErrNoDistantFile
			}
			paths = s.Paths()
			return nil
		})
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range paths {
		dir := filepath.Dir(path)
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = struct{}{}
	}
	return nil
}

// Dirs returns the watched directories sorted alphabetically.
func (w *Watcher) Dirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			select {
			case w.changes <- filepath.Clean(event.Name):
			default:
				w.opts.Logger.Warn("watch: change buffer full, dropping event", slog.String("path", event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("watch: fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			w.reload(dedupe(batch))
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case path := <-w.changes:
			batch = append(batch, path)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

func (w *Watcher) reload(paths []string) {
	result := Reload(w.shared, paths, w.opts.MaxRetries, w.opts.RetryInterval)
	if result.Err != nil {
		w.opts.Logger.Warn("watch: reload failed", slog.String("error", result.Err.Error()))
	}
	if len(result.Paths) > 0 {
		if err := w.Refresh(); err != nil {
			w.opts.Logger.Warn("watch: refresh failed", slog.String("error", err.Error()))
		}
	}
	if len(result.Paths) > 0 && w.opts.OnReload != nil {
		w.opts.OnReload(result)
	}
}

func (w *Watcher) retry(fn func() error) error {
	return retryBorrowed(fn, w.opts.MaxRetries, w.opts.RetryInterval)
}

// Reload reloads every path of paths tracked by shared, skipping untracked
// ones. A borrowed state is retried up to maxRetries times.
func Reload(shared *sparse.SharedState, paths []string, maxRetries int, interval time.Duration) Result {
	var result Result
	err := retryBorrowed(func() error {
		result = Result{}
		return shared.Write(func(s *sparse.State) error {
			for _, path := range paths {
				if _, err := s.File(path); err != nil {
					continue
				}
				result.Paths = append(result.Paths, path)
				changed, err := s.Reload(path)
				if err != nil {
					if result.Err == nil {
						result.Err = err
					}
					continue
				}
				if changed {
					result.Changed = append(result.Changed, path)
				}
			}
			return nil
		})
	}, maxRetries, interval)
	if err != nil {
		result.Err = err
	}
	return result
}

func retryBorrowed(fn func() error, maxRetries int, interval time.Duration) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if !errors.Is(err, sparse.ErrStateAlreadyBorrowed) || attempt == maxRetries {
			return err
		}
		time.Sleep(interval)
	}
	return err
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
