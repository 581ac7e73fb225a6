package watcher

import "context"

// FileWatcher monitors archives for changes with debouncing.
type FileWatcher interface {
	// Start begins watching, calling callback with each debounced batch of
	// changed archive paths. Batches are delivered one at a time.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and waits for the event loop to exit.
	Stop() error
}
