package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/hushcut/internal/processor"
)

// stageCount is the number of pipeline stages shown as "Stage n/4"
const stageCount = 4

var (
	accentColour  = lipgloss.Color("#2E86AB")
	successColour = lipgloss.Color("#00AA00")
	activeColour  = lipgloss.Color("#FFA500")
	errorColour   = lipgloss.Color("#A40000")
	mutedColour   = lipgloss.Color("#888888")
)

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColour).
		Render("Hushcut ✂ - Silence Remover")

	subtitle := lipgloss.NewStyle().
		Foreground(mutedColour).
		Italic(true).
		Render(fmt.Sprintf("Processing %d file(s)", m.TotalFiles))

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(successColour).Render("✓")
		return fmt.Sprintf(" %s %s → %s\n   %s", icon, fileName, filepath.Base(file.OutputPath), summaryLine(file))

	case StatusActive:
		icon := lipgloss.NewStyle().Foreground(activeColour).Render("⚙")
		return fmt.Sprintf(" %s %s → %s\n%s",
			icon, fileName, filepath.Base(file.OutputPath),
			renderFileDetails(file))

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(errorColour).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColour).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColour).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	content.WriteString(fmt.Sprintf("Stage %d/%d: %s\n", int(file.Stage)+1, stageCount, stageTitle(file.Stage)))
	content.WriteString(renderProgressBar(file.Progress, 40))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs", file.ElapsedTime.Seconds()))

	return box.Render(content.String())
}

func stageTitle(s processor.Stage) string {
	switch s {
	case processor.StageExtracting:
		return "Extracting audio"
	case processor.StageAnalysing:
		return "Finding silence"
	case processor.StageCutting:
		return "Cutting"
	case processor.StageMuxing:
		return "Writing output"
	}
	return s.String()
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColour).
		Padding(0, 1).
		Width(60)

	var content string
	if m.current() {
		content = fmt.Sprintf("Processing file %d of %d (%d complete)",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles)
	} else {
		content = fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	colour := successColour
	title := "✨ Processing Complete!"
	if m.FailedFiles > 0 {
		colour = errorColour
		title = fmt.Sprintf("Finished with %d failure(s)", m.FailedFiles)
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colour).Render(title))
	b.WriteString("\n\n")

	var in, out float64
	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete:
			b.WriteString(renderFileEntry(file))
			b.WriteString("\n")
			in += file.InputDuration
			out += file.OutputDuration
		case StatusError:
			b.WriteString(renderFileEntry(file))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d/%d file(s) done, %.1fs of silence removed\n", m.CompletedFiles, m.TotalFiles, in-out))

	return b.String()
}

// summaryLine describes what was cut from a completed file
func summaryLine(file FileProgress) string {
	removed := file.InputDuration - file.OutputDuration
	line := fmt.Sprintf("Before: %.1fs | After: %.1fs | Removed: %.1fs in %d run(s)",
		file.InputDuration, file.OutputDuration, removed, file.RemovedRuns)
	if file.OutputFrames > 0 {
		line += fmt.Sprintf(" | %d frames", file.OutputFrames)
	}
	return line
}
