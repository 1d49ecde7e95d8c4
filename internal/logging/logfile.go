package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func logFileName(appName string, started time.Time) string {
	return fmt.Sprintf("%s.%s.log", appName, started.Format("20060102_150405"))
}

// OpenLogFile creates dir if needed and opens the log file for a process
// started at started. A file left by an earlier process with the same start
// second is kept with an .old suffix.
func OpenLogFile(dir, appName string, started time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}

	path := filepath.Join(dir, logFileName(appName, started))
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", path, err)
	}
	return f, nil
}
