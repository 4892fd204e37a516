package logging

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// rotate keeps at most maxFiles-1 of our log files in dir, removing the oldest, so the
// file about to be created brings the total to maxFiles.
func rotate(dir string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var files []logFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	excess := len(files) - (maxFiles - 1)
	if excess <= 0 {
		return nil
	}
	slices.SortFunc(files, func(a, b logFile) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	for _, f := range files[:excess] {
		os.Remove(f.path)
	}
	return nil
}
