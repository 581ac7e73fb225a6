// Package watcher reports changes to the archives an extraction reads.
package watcher

import (
	"context"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Option configures an archive watcher.
type Option func(*archiveWatcher)

// WithDebounce sets the quiet period before a batch is delivered.
// Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *archiveWatcher) {
		if d > 0 {
			w.debounceTime = d
		}
	}
}

type archiveWatcher struct {
	watcher      *fsnotify.Watcher
	primary      string        // Primary archive, watched through its directory
	libraryDir   string        // Library tree, watched recursively; empty when unused
	debounceTime time.Duration // Quiet period before firing callback
	callback     func(files []string)
	ctx          context.Context
	cancel       context.CancelFunc
	accumulated  map[string]bool // Owned by the event loop
	stopOnce     sync.Once
	doneCh       chan struct{}
}

// NewArchiveWatcher watches the primary archive and every .jar under
// libraryDir. The primary is watched through its parent directory so that
// replacing the file by rename is still seen.
func NewArchiveWatcher(primary, libraryDir string, opts ...Option) (FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &archiveWatcher{
		watcher:      fsw,
		primary:      filepath.Clean(primary),
		debounceTime: DefaultDebounce,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	if libraryDir != "" {
		w.libraryDir = filepath.Clean(libraryDir)
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsw.Add(filepath.Dir(w.primary)); err != nil {
		fsw.Close()
		return nil, err
	}
	if w.libraryDir != "" {
		if err := w.addDirectoriesRecursively(w.libraryDir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Start begins watching for archive changes.
func (w *archiveWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	w.callback = callback
	w.ctx, w.cancel = context.WithCancel(ctx)

	go w.watch()
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *archiveWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (w *archiveWatcher) watch() {
	defer close(w.doneCh)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories inside the library tree are watched as they appear
			if event.Op&fsnotify.Create != 0 && w.inLibraryTree(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}
			w.accumulated[filepath.Clean(event.Name)] = true

			if timer == nil {
				timer = time.NewTimer(w.debounceTime)
			} else {
				timer.Reset(w.debounceTime)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: archive watcher error: %v", err)
		}
	}
}

// flush delivers the accumulated batch in sorted order.
func (w *archiveWatcher) flush() {
	if len(w.accumulated) == 0 {
		return
	}
	files := slices.Sorted(maps.Keys(w.accumulated))
	w.accumulated = make(map[string]bool)
	w.callback(files)
}

// shouldProcessEvent reports whether an event touches a watched archive.
func (w *archiveWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)
	if name == w.primary {
		return true
	}
	return w.inLibraryTree(name) && strings.EqualFold(filepath.Ext(name), ".jar")
}

func (w *archiveWatcher) inLibraryTree(path string) bool {
	if w.libraryDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.libraryDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *archiveWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
