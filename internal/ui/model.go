// Package ui provides the Bubbletea terminal user interface for hushcut
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/hushcut/internal/processor"
	"github.com/sirupsen/logrus"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusActive
	StatusComplete
	StatusError
)

// FileProgress tracks progress for a single input file
type FileProgress struct {
	InputPath  string
	OutputPath string
	Status     FileStatus

	Stage       processor.Stage
	Progress    float64 // 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration

	// Completion results
	InputDuration  float64
	OutputDuration float64
	RemovedRuns    int
	OutputFrames   int // video frames written, 0 for audio

	Error error
}

// Model is the Bubbletea model for the processing UI
type Model struct {
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int

	StartTime time.Time
	Done      bool

	Width  int
	Height int

	log logrus.FieldLogger
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1, // No file processing yet
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		log:          logrus.WithField("component", "ui"),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case ProgressMsg:
		if m.current() {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], msg)
		}

	case FileStartMsg:
		m.log.WithField("index", msg.FileIndex).WithField("file", msg.FileName).Debug("file started")
		if msg.FileIndex < 0 || msg.FileIndex >= len(m.Files) {
			return m, nil
		}
		m.CurrentIndex = msg.FileIndex
		fp := &m.Files[m.CurrentIndex]
		fp.Status = StatusActive
		fp.OutputPath = msg.OutputPath
		fp.StartTime = time.Now()

	case FileCompleteMsg:
		m.log.WithField("index", msg.FileIndex).WithError(msg.Error).Debug("file complete")
		if !m.current() {
			return m, nil
		}
		fp := &m.Files[m.CurrentIndex]
		fp.ElapsedTime = time.Since(fp.StartTime)
		if msg.Error != nil {
			fp.Status = StatusError
			fp.Error = msg.Error
			m.FailedFiles++
			return m, nil
		}

		fp.Status = StatusComplete
		fp.Progress = 1
		if r := msg.Result; r != nil {
			fp.OutputPath = r.OutputPath
			fp.InputDuration = r.InputDuration()
			fp.OutputDuration = r.OutputDuration()
			fp.RemovedRuns = len(r.Analysis.Runs)
			if r.Video != nil {
				fp.OutputFrames = r.Video.OutputFrames
			}
		}
		m.CompletedFiles++

	case AllCompleteMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

func (m Model) current() bool {
	return m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	fp.Stage = msg.Stage
	fp.Progress = msg.Progress
	fp.ElapsedTime = time.Since(fp.StartTime)
	return fp
}
