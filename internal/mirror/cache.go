package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/verustcode/verustcode/pkg/errors"
	"github.com/verustcode/verustcode/pkg/logger"
)

// entry is the cache's bookkeeping for one base repository. mu is held
// across every git operation performed against dir for the duration of one
// event, so concurrent events for the same base repo serialize while
// events for different base repos proceed independently. mu only ever
// guards phase 2 below; it is not involved in clone deduplication.
type entry struct {
	mu  sync.Mutex
	dir string
}

// Cache is a process-local store of cloned base-repository working
// directories, keyed by base SSH clone URL. Acquire is a two-phase guard:
// phase 1 uses singleflight.Group to collapse concurrent first-time clone
// attempts for the same key into a single git invocation, before any
// per-entry lock is taken; phase 2 then takes the entry's mutex to
// serialize that event's git operations against the now-cloned repo. The
// phases are deliberately decoupled — singleflight alone is what prevents
// a thundering herd of clones when several events for a brand new repo
// arrive at once, not the mutex.
type Cache struct {
	root string

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

// NewCache creates a Cache rooted at root. root is created on first use if
// it does not already exist.
func NewCache(root string) *Cache {
	return &Cache{
		root:    root,
		entries: make(map[string]*entry),
	}
}

// Acquire ensures cloneURL is cloned into its cache directory, then locks
// that directory for the caller's exclusive use, returning it along with a
// release function that must be called (typically deferred) once the
// caller is done. Acquire blocks until any other event holding this repo's
// lock releases it.
func (c *Cache) Acquire(ctx context.Context, cloneURL string, clone func(ctx context.Context, dir string) error) (dir string, release func(), err error) {
	e := c.entryFor(cloneURL)

	if err := c.ensureCloned(ctx, cloneURL, e.dir, clone); err != nil {
		return "", nil, err
	}

	e.mu.Lock()
	return e.dir, func() { e.mu.Unlock() }, nil
}

// ensureCloned runs the clone callback for dir if it isn't cloned yet.
// Concurrent callers racing to clone the same cloneURL for the first time
// collapse into a single singleflight.Group invocation and share its
// result; none of them holds the entry's mutex while this happens, so a
// cold cache doesn't serialize unrelated events behind one slow clone.
func (c *Cache) ensureCloned(ctx context.Context, cloneURL, dir string, clone func(ctx context.Context, dir string) error) error {
	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
		return nil
	}

	if mkErr := os.MkdirAll(c.root, 0755); mkErr != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorClone, "failed to create cache root", mkErr)
	}

	logger.Info("cloning base repository",
		zap.String("url", cloneURL),
		zap.String("dir", dir),
	)

	_, cloneErr, _ := c.group.Do(cloneURL, func() (interface{}, error) {
		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return nil, nil
		}
		return nil, clone(ctx, dir)
	})
	if cloneErr != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorClone, "failed to clone base repository", cloneErr)
	}
	return nil
}

func (c *Cache) entryFor(cloneURL string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[cloneURL]; ok {
		return e
	}

	e := &entry{dir: filepath.Join(c.root, dirName(cloneURL))}
	c.entries[cloneURL] = e
	return e
}

// dirName derives a filesystem-safe directory name from a clone URL.
func dirName(cloneURL string) string {
	safe := make([]byte, 0, len(cloneURL))
	for i := 0; i < len(cloneURL); i++ {
		ch := cloneURL[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			safe = append(safe, ch)
		default:
			safe = append(safe, '-')
		}
	}
	return fmt.Sprintf("repo-%s", string(safe))
}
