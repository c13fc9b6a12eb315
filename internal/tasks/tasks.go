package tasks

import (
	"github.com/charmbracelet/log"
)

// ExportEngine runs export tasks over library playlists.
type ExportEngine struct {
	logger *log.Logger
}

// NewExportEngine creates an ExportEngine. A nil logger falls back to the default logger.
func NewExportEngine(logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ExportEngine{logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		e.logger.Debug("dropping progress update", "phase", update.Phase, "step", update.Step)
	}
}
