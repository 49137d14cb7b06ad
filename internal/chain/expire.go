package chain

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Expire deletes graph files under dir that are not referenced by the
// installed chain and were last modified before cutoff. Newer unreferenced
// files are kept: a reader that opened the old manifest may still be
// walking them. A file that cannot be statted or removed is logged and
// skipped, never failing the sweep. Returns the number of files deleted.
func Expire(dir string, referenced map[string]bool, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("expire: cannot read chain directory", "dir", dir, "err", err)
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || referenced[name] {
			continue
		}
		isGraph := strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
		isOrphanTmp := strings.HasSuffix(name, ".tmp")
		if !isGraph && !isOrphanTmp {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("expire: cannot stat graph file", "file", name, "err", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			slog.Warn("expire: cannot remove graph file", "file", name, "err", err)
			continue
		}
		deleted++
	}
	return deleted
}

// ExpireInstalled runs an expiration sweep against the currently installed
// manifest, for use outside a write.
func ExpireInstalled(dir string, cutoff time.Time) (int, error) {
	names, err := ReadManifest(dir)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(names))
	for _, name := range names {
		referenced[name] = true
	}
	return Expire(dir, referenced, cutoff), nil
}
