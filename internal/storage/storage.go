// internal/storage/storage.go
package storage

import "github.com/waterrocket/simulator/pkg/core"

// ErrRunNotFound is returned by GetRun when no run has the requested ID.
var ErrRunNotFound = core.ErrRunNotFound

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveRun persists a finished run and assigns its ID, CreatedAt and Site.ID.
	SaveRun(run *core.Run) error
	// GetRun returns the run with its full trajectory.
	GetRun(id uint) (*core.Run, error)
	// ListRuns returns newest runs first; limit <= 0 means all.
	ListRuns(limit int) ([]core.RunSummary, error)
}

// Exportable is an optional interface for storage backends that write each
// run to a file.
type Exportable interface {
	GetExportedFilePath() string
}
