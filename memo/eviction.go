package memo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dgnsrekt/memodisk/internal/metadata"
)

// PruneResult reports one eviction pass.
type PruneResult struct {
	// RemovedEntries counts metadata entries dropped, whether their
	// artifact had expired or had already vanished.
	RemovedEntries int

	// RemovedFiles lists the artifact files deleted for expired entries.
	RemovedFiles []string

	// KeptEntries counts entries that survived the pass.
	KeptEntries int
}

// Prune walks every cached function and removes entries whose artifact is
// missing or older than its retention window. Functions left without
// entries lose their metadata key entirely. The metadata record is only
// rewritten when the pass changed something. New runs one pass at
// construction; callers may run more on demand.
func (c *Cache) Prune() (PruneResult, error) {
	var res PruneResult

	err := c.withLock(func(st *metadata.Store) (bool, error) {
		changed := false
		for _, name := range st.FunctionNames() {
			entries := st.Entries(name)
			keep := make([]metadata.Entry, 0, len(entries))

			for _, e := range entries {
				path := filepath.Join(c.dir, e.FileName)
				info, err := os.Stat(path)
				if err != nil {
					if !errors.Is(err, fs.ErrNotExist) {
						return changed, fmt.Errorf("%w: %v", ErrStorage, err)
					}
					// Orphan: the artifact is already gone.
					c.logger.Debug("dropping orphaned cache entry",
						"function", name, "file", e.FileName)
					res.RemovedEntries++
					changed = true
					continue
				}

				if expired(info.ModTime(), e.MaxAgeDays) {
					c.logger.Info("removing stale cache file",
						"file", e.FileName, "maxAgeDays", e.MaxAgeDays)
					if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
						return changed, fmt.Errorf("%w: %v", ErrStorage, err)
					}
					res.RemovedEntries++
					res.RemovedFiles = append(res.RemovedFiles, e.FileName)
					changed = true
					continue
				}

				keep = append(keep, e)
			}

			res.KeptEntries += len(keep)
			if len(keep) != len(entries) {
				st.SetEntries(name, keep)
			}
		}
		return changed, nil
	})

	return res, err
}
