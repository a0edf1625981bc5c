package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/hushcut/internal/cli"
	"github.com/linuxmatters/hushcut/internal/config"
	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/logging"
	"github.com/linuxmatters/hushcut/internal/processor"
	"github.com/linuxmatters/hushcut/internal/silence"
	"github.com/linuxmatters/hushcut/internal/ui"
	"github.com/sirupsen/logrus"
)

var (
	version = "0.0.1"
)

const debugLogName = "hushcut-debug.log"

// CLI defines the command-line interface
type CLI struct {
	Version      bool     `short:"v" help:"Show version information"`
	Config       string   `type:"path" placeholder:"file" help:"Path to YAML config file (optional)"`
	Method       string   `short:"m" placeholder:"name" group:"detection" config:"method" help:"Threshold method: moderate, sensitive, weak or strong"`
	Threshold    *float64 `short:"t" placeholder:"value" group:"detection" config:"threshold" help:"Silence threshold in sample units; overrides --method"`
	WindowFactor *int     `name:"window-factor" placeholder:"n" group:"detection" config:"window_factor" help:"Minimum silence is sample rate divided by this"`
	Margin       *int     `placeholder:"samples" group:"detection" config:"margin" help:"Samples kept at each edge of a removed silence"`
	Output       string   `short:"o" placeholder:"name" group:"output" help:"Output file name without extension, written next to the input (single input only)"`
	Compress     string   `short:"c" placeholder:"level" group:"output" config:"compress" help:"Video compression: 1/light, 2/mid or 3/heavy"`
	KeepTemp     bool     `name:"keep-temp" group:"output" config:"keep_temp" help:"Keep intermediate files"`
	Logs         bool     `group:"output" help:"Save detailed analysis logs"`
	Files        []string `arg:"" name:"files" help:"Audio or video files to process" optional:""`
}

func main() {
	cliArgs := &CLI{}
	parser, err := kong.New(cliArgs,
		kong.Name("hushcut"),
		kong.Description("Removes silence from audio and video files"),
		kong.UsageOnError(),
		kong.ExplicitGroups(cli.Groups()),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(failure.ExitUnknown)
	}
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(failure.ExitInvalidOption)
	}

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(failure.ExitOK)
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		_ = kctx.PrintUsage(false)
		os.Exit(failure.ExitInvalidOption)
	}

	debugLog := setupLogging()
	if debugLog != nil {
		defer debugLog.Close()
	}

	cfg, err := buildConfig(cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(failure.ExitCode(err))
	}
	if cliArgs.Output != "" && len(cliArgs.Files) > 1 {
		err := fmt.Errorf("--output names a single file but %d were given: %w", len(cliArgs.Files), failure.ErrOutputNotCompatible)
		cli.PrintError(err.Error())
		os.Exit(failure.ExitCode(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tc := ffmpeg.New(logrus.StandardLogger())
	if err := checkTools(tc, cliArgs.Files); err != nil {
		cli.PrintError(fmt.Sprintf("%v; install ffmpeg and ffprobe, or pass only PCM WAV files", err))
		os.Exit(failure.ExitUnknown)
	}

	proc := processor.NewFFmpeg(cfg, tc)
	job := &batch{
		proc:   proc,
		cfg:    cfg,
		output: cliArgs.Output,
		logs:   cliArgs.Logs,
		log:    logrus.WithField("component", "main"),
	}

	model := ui.NewModel(cliArgs.Files)
	p := tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		done <- job.run(ctx, cliArgs.Files, p.Send)
	}()

	if _, err := p.Run(); err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		cancel()
		<-done
		os.Exit(failure.ExitUnknown)
	}

	// Quitting the UI early stops the batch.
	cancel()
	lastErr := <-done

	for _, f := range job.failures {
		cli.PrintFailure(f.path, f.err)
	}
	os.Exit(failure.ExitCode(lastErr))
}

// setupLogging sends logrus output to the debug log file. Without the file,
// logging is discarded so it cannot disturb the UI.
// toolChecker reports whether the external tools can be run.
type toolChecker interface {
	Available() error
}

// checkTools verifies ffmpeg is installed when any input needs it.
func checkTools(tools toolChecker, files []string) error {
	for _, f := range files {
		if processor.NeedsFFmpeg(f) {
			return tools.Available()
		}
	}
	return nil
}

func setupLogging() *os.File {
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)

	f, err := os.Create(debugLogName)
	if err != nil {
		logrus.SetOutput(io.Discard)
		return nil
	}
	logrus.SetOutput(f)
	return f
}

// buildConfig loads the optional config file and applies flag overrides.
func buildConfig(c *CLI) (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.Method != "" {
		s, err := silence.ParseStrategy(c.Method)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = s
	}
	if c.Compress != "" {
		l, err := ffmpeg.ParseLevel(c.Compress)
		if err != nil {
			return cfg, err
		}
		cfg.Compression = l
	}
	if c.Threshold != nil {
		t := *c.Threshold
		cfg.Threshold = &t
	}
	if c.WindowFactor != nil {
		cfg.WindowFactor = *c.WindowFactor
	}
	if c.Margin != nil {
		cfg.Margin = *c.Margin
	}
	if c.KeepTemp {
		cfg.KeepTemp = true
	}

	return cfg, cfg.Validate()
}

type fileFailure struct {
	path string
	err  error
}

// batch processes input files in order, reporting to the UI through send.
type batch struct {
	proc   *processor.Processor
	cfg    config.Config
	output string
	logs   bool
	log    logrus.FieldLogger

	failures []fileFailure
}

// run processes every file and returns the error of the last file that
// failed, or nil when all succeeded. A failure never stops the batch.
func (b *batch) run(ctx context.Context, files []string, send func(tea.Msg)) error {
	var lastErr error

	for i, inputPath := range files {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		fileStartTime := time.Now()
		result, err := b.processOne(ctx, i, inputPath, send)
		if err != nil {
			b.log.WithError(err).WithField("file", inputPath).Warn("processing failed")
			b.failures = append(b.failures, fileFailure{path: inputPath, err: err})
			lastErr = err
			send(ui.FileCompleteMsg{FileIndex: i, Error: err})
			continue
		}

		if b.logs {
			reportData := logging.ReportData{
				InputPath:  inputPath,
				OutputPath: result.OutputPath,
				StartTime:  fileStartTime,
				EndTime:    time.Now(),
				Config:     b.cfg,
				Result:     result,
			}
			if err := logging.GenerateReport(reportData); err != nil {
				b.log.WithError(err).Warn("failed to generate log file")
			}
		}

		send(ui.FileCompleteMsg{FileIndex: i, Result: result})
	}

	send(ui.AllCompleteMsg{})
	return lastErr
}

func (b *batch) processOne(ctx context.Context, i int, inputPath string, send func(tea.Msg)) (*processor.Result, error) {
	kind, err := processor.KindOf(inputPath)
	if err != nil {
		send(ui.FileStartMsg{FileIndex: i, FileName: inputPath})
		return nil, err
	}

	output := processor.OutputPath(inputPath, b.output, kind)
	send(ui.FileStartMsg{FileIndex: i, FileName: inputPath, OutputPath: output})

	result, err := b.proc.ProcessFile(ctx, inputPath, output, func(stage processor.Stage, progress float64) {
		send(ui.ProgressMsg{Stage: stage, Progress: progress})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s: interrupted: %w", inputPath, err)
		}
		return nil, err
	}
	return result, nil
}
