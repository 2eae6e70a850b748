package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// definitionWatchDebounce is the delay to wait after a file change before
// reloading, so editor write bursts produce one reload.
const definitionWatchDebounce = 100 * time.Millisecond

// WatchDefinition watches a definition file and delivers each successfully
// reloaded Definition on the returned channel until ctx is cancelled, at
// which point the channel is closed.
//
// Definitions that fail to load or validate are logged and skipped, so a
// half-saved file never reaches the consumer. The parent directory is
// watched rather than the file itself: editors replace files on save, which
// would drop a file-level watch.
func WatchDefinition(ctx context.Context, path string) (<-chan *Definition, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(path)

	err = watcher.Add(dir)
	if err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	out := make(chan *Definition, 1)

	go func() {
		defer close(out)
		defer func() {
			_ = watcher.Close()
		}()

		var (
			debounce *time.Timer
			pending  <-chan time.Time
		)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				if debounce == nil {
					debounce = time.NewTimer(definitionWatchDebounce)
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}

					debounce.Reset(definitionWatchDebounce)
				}

				pending = debounce.C

			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}

				slog.WarnContext(ctx, "Definition watch error",
					"path", path,
					"error", watchErr,
				)

			case <-pending:
				pending = nil

				def, loadErr := LoadDefinition(path)
				if loadErr != nil {
					slog.WarnContext(ctx, "Definition reload failed",
						"path", path,
						"error", loadErr,
					)

					continue
				}

				select {
				case out <- def:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
