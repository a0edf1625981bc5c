// Package logging handles generation of analysis reports for processed files

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/hushcut/internal/config"
	"github.com/linuxmatters/hushcut/internal/processor"
)

// maxListedRuns caps the removed-run listing in a report.
const maxListedRuns = 20

// writeSection writes a section header with title and dashed underline.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportData contains all the information needed to generate an analysis report
type ReportData struct {
	InputPath  string
	OutputPath string
	StartTime  time.Time
	EndTime    time.Time
	Config     config.Config
	Result     *processor.Result
}

// ReportPath returns where the report for output is written:
// talk_sr.mp4 → talk_sr.log
func ReportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".log"
}

// GenerateReport creates an analysis report and saves it alongside the output file.
func GenerateReport(data ReportData) error {
	f, err := os.Create(ReportPath(data.OutputPath))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	return WriteReport(f, data)
}

// WriteReport writes the report for data to w.
func WriteReport(w io.Writer, data ReportData) error {
	writeReportHeader(w, data)
	writeProcessingSummary(w, data)
	writeSettings(w, data.Config)

	if data.Result == nil {
		return nil
	}
	writeSilenceDetection(w, data.Result)
	writeComparisonTable(w, data.Result)
	if data.Result.Video != nil {
		writeVideoDiagnostics(w, data.Result)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// formatTimestamp renders seconds as h:mm:ss.mmm
func formatTimestamp(secs float64) string {
	d := time.Duration(secs * float64(time.Second)).Round(time.Millisecond)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%d:%02d:%06.3f", h, m, s)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}

func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "Hushcut Analysis Report")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(w, "Output: %s\n", filepath.Base(data.OutputPath))
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if r := data.Result; r != nil {
		fmt.Fprintf(w, "Audio: %d Hz, %s, %d-bit\n", r.SampleRate, channelName(r.Channels), r.BitDepth)
	}
	fmt.Fprintln(w, "")
}

func writeProcessingSummary(w io.Writer, data ReportData) {
	writeSection(w, "Processing Summary")

	total := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(w, "Total: %s", formatDuration(total))
	if data.Result != nil && total > 0 {
		media := time.Duration(data.Result.InputDuration() * float64(time.Second))
		fmt.Fprintf(w, " (%.0fx real-time)", float64(media)/float64(total))
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "")
}

func writeSettings(w io.Writer, cfg config.Config) {
	writeSection(w, "Settings")

	if cfg.Threshold != nil {
		fmt.Fprintf(w, "Threshold:     %s (manual)\n", formatMetric(*cfg.Threshold, 2))
	} else {
		fmt.Fprintf(w, "Method:        %s\n", cfg.Strategy)
	}
	fmt.Fprintf(w, "Window factor: %d\n", cfg.WindowFactor)
	fmt.Fprintf(w, "Margin:        %d samples\n", cfg.Margin)
	fmt.Fprintf(w, "Compression:   %s\n", cfg.Compression)
	fmt.Fprintln(w, "")
}

func writeSilenceDetection(w io.Writer, r *processor.Result) {
	writeSection(w, "Silence Detection")

	a := r.Analysis
	source := a.Strategy.String()
	if a.Manual {
		source = "manual"
	}
	fmt.Fprintf(w, "Threshold:      %s (%s dBFS, %s)\n",
		formatMetric(a.Threshold, 2), formatMetricDB(amplitudeDB(a.Threshold, r.BitDepth), 1), source)
	fmt.Fprintf(w, "Minimum run:    %d samples (%s)\n",
		a.MinRunLength, formatMetricWithUnit(seconds(a.MinRunLength, r.SampleRate)*1000, 1, "ms"))
	fmt.Fprintf(w, "Removed runs:   %d\n", len(a.Runs))

	for i, run := range a.Runs {
		if i == maxListedRuns {
			fmt.Fprintf(w, "  ... %d more\n", len(a.Runs)-maxListedRuns)
			break
		}
		fmt.Fprintf(w, "  %s - %s  (%s)\n",
			formatTimestamp(seconds(run.Start, r.SampleRate)),
			formatTimestamp(seconds(run.End, r.SampleRate)),
			formatMetricWithUnit(seconds(run.Len(), r.SampleRate), 3, "s"))
	}
	fmt.Fprintln(w, "")
}

func writeComparisonTable(w io.Writer, r *processor.Result) {
	writeSection(w, "Input vs Output")

	table := NewMetricTable()
	table.AddMetricRow("Duration", r.InputDuration(), r.OutputDuration(), 3, "s",
		interpretRemoval(r.InputDuration(), r.OutputDuration()))
	table.AddRow("Sample frames", []string{formatCount(r.Analysis.InputFrames), formatCount(r.Analysis.OutputFrames)}, "", "")

	if v := r.Video; v != nil {
		table.AddRow("Video frames", []string{formatCount(v.Geometry.FrameCount), formatCount(v.OutputFrames)}, "", "")
		table.AddMetricRow("Frame rate", v.Geometry.FrameRate(), v.FrameRate, 3, "fps", "")
		outDuration := 0.0
		if v.FrameRate > 0 {
			outDuration = float64(v.OutputFrames) / v.FrameRate
		}
		table.AddMetricRow("Video duration", v.Geometry.DurationSeconds, outDuration, 3, "s",
			"drift "+formatMetricSigned(outDuration-r.OutputDuration(), 3)+" s")
	}

	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

func writeVideoDiagnostics(w io.Writer, r *processor.Result) {
	writeSection(w, "Frame Selection")

	v := r.Video
	fmt.Fprintf(w, "Geometry:       %dx%d\n", v.Geometry.Width, v.Geometry.Height)
	if v.Geometry.FrameRateHint > 0 {
		fmt.Fprintf(w, "Container rate: %s fps\n", formatMetric(v.Geometry.FrameRateHint, 3))
	}
	fmt.Fprintf(w, "Frames grabbed: %d\n", v.Grabbed)
	fmt.Fprintf(w, "Frames skipped: %d\n", v.Skips)
	fmt.Fprintln(w, "")
}

// interpretRemoval describes how much of the input was cut.
func interpretRemoval(in, out float64) string {
	if in <= 0 {
		return ""
	}
	pct := 100 * (in - out) / in
	switch {
	case pct == 0:
		return "nothing removed"
	case pct < 10:
		return fmt.Sprintf("%.1f%% removed, light trim", pct)
	case pct < 40:
		return fmt.Sprintf("%.1f%% removed", pct)
	default:
		return fmt.Sprintf("%.1f%% removed, check threshold", pct)
	}
}

func seconds(samples, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(samples) / float64(sampleRate)
}
