package ui

import (
	"github.com/linuxmatters/hushcut/internal/processor"
)

// ProgressMsg represents a progress update from the processor
type ProgressMsg struct {
	Stage    processor.Stage
	Progress float64 // 0.0 to 1.0
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex  int
	FileName   string
	OutputPath string
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	FileIndex int
	Result    *processor.Result
	Error     error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct{}
