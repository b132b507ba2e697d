package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// Stamp is the modification metadata the staleness check compares.
type Stamp struct {
	Exists  bool
	ModTime time.Time
}

// StampOf stats path. A missing file yields the zero Stamp and no error.
func StampOf(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stamp{}, nil
		}
		return Stamp{}, err
	}
	return Stamp{Exists: true, ModTime: info.ModTime()}, nil
}

// NeedsUpdate reports whether a derived file must be regenerated from src:
// it is missing or strictly older than its source.
func NeedsUpdate(src, dst Stamp) bool {
	if !dst.Exists {
		return true
	}
	return src.ModTime.After(dst.ModTime)
}
