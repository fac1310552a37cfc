package memo

import (
	"errors"
	"io"
	"os"
	"time"
)

// writeArtifact persists data at path, writing at most maxChunk bytes per
// syscall. Write to a temp file first, then rename (atomic on most systems).
func writeArtifact(path string, data []byte, maxChunk int) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	for idx := 0; idx < len(data) && err == nil; idx += maxChunk {
		end := idx + maxChunk
		if end > len(data) {
			end = len(data)
		}
		_, err = file.Write(data[idx:end])
	}
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

// readArtifact reads the file at path, issuing reads of at most maxChunk
// bytes each.
func readArtifact(path string, maxChunk int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	chunk := maxChunk
	if size := info.Size(); size < int64(chunk) {
		chunk = int(size)
	}
	if chunk < 1 {
		chunk = 1
	}

	data := make([]byte, 0, info.Size())
	buf := make([]byte, chunk)
	for {
		n, err := file.Read(buf)
		data = append(data, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return data, nil
			}
			return nil, err
		}
	}
}

// artifactAgeDays returns the age of the file at path in whole days, based
// on its modification time. A file touched externally has its TTL reset;
// that is accepted behavior, not something to correct here.
func artifactAgeDays(modTime time.Time) int {
	return int(time.Since(modTime) / (24 * time.Hour))
}

// expired reports whether an artifact with the given modification time has
// outlived maxAgeDays. The unlimited sentinel never expires.
func expired(modTime time.Time, maxAgeDays int) bool {
	if maxAgeDays == UnlimitedCacheAge {
		return false
	}
	return artifactAgeDays(modTime) > maxAgeDays
}
