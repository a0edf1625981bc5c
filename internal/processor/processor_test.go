package processor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/hushcut/internal/audio"
	"github.com/linuxmatters/hushcut/internal/config"
	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/resync"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// speechWithGap is one second of sound, half a second of silence and one
// more second of sound at 8 kHz.
var speechWithGap = TestAudioOptions{
	SampleRate: 8000,
	Pattern: []Block{
		{Frames: 8000},
		{Frames: 4000, Silent: true},
		{Frames: 8000},
	},
}

func newTestProcessor(cfg config.Config, tools Tools, frames FrameIO) *Processor {
	log, _ := test.NewNullLogger()
	return New(cfg, tools, frames, log)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestKindOf(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.MKV", "c.mp3", "d.wav", "e.txt"} {
		touch(t, filepath.Join(dir, name))
	}

	tests := []struct {
		path    string
		want    Kind
		wantErr error
	}{
		{"a.mp4", KindVideo, nil},
		{"b.MKV", KindVideo, nil},
		{"c.mp3", KindAudio, nil},
		{"d.wav", KindAudio, nil},
		{"e.txt", 0, failure.ErrUnsupportedFormat},
		{"missing.mp4", 0, failure.ErrPathNotFound},
		{"", 0, failure.ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := KindOf(filepath.Join(dir, tt.path))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("KindOf() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("KindOf() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input string
		name  string
		kind  Kind
		want  string
	}{
		{"/media/talk.wav", "", KindAudio, "/media/talk_sr.wav"},
		{"/media/talk.mp3", "", KindAudio, "/media/talk_sr.mp3"},
		{"/media/talk.mp4", "", KindVideo, "/media/talk_sr.mp4"},
		{"/media/talk.mkv", "", KindVideo, "/media/talk_sr.mp4"},
		{"/media/talk.mp3", "short", KindAudio, "/media/short.mp3"},
		{"/media/talk.mkv", "short", KindVideo, "/media/short.mkv"},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.name, tt.kind); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.input, tt.name, got, tt.want)
		}
	}
}

func TestProcessFileWAV(t *testing.T) {
	input := generateTestAudio(t, "speech.wav", speechWithGap)
	output := OutputPath(input, "", KindAudio)
	tools := &fakeTools{}

	p := newTestProcessor(config.Default(), tools, nil)
	result, err := p.ProcessFile(context.Background(), input, output, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	// The gap starts after loud frame 7999 and ends at 12000; 30 frames of
	// margin survive on each side.
	const removed = 12000 - 7999 - 2*30
	if got := result.Analysis.Removed(); got != removed {
		t.Errorf("removed %d frames, want %d", got, removed)
	}
	if got := result.Analysis.OutputFrames; got != 20000-removed {
		t.Errorf("kept %d frames, want %d", got, 20000-removed)
	}
	if len(result.Analysis.Runs) != 1 {
		t.Errorf("got %d removed runs, want 1", len(result.Analysis.Runs))
	}

	track, err := audio.ReadWAV(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if track.Frames() != result.Analysis.OutputFrames {
		t.Errorf("output has %d frames, result says %d", track.Frames(), result.Analysis.OutputFrames)
	}
	if track.SampleRate != 8000 || track.Channels != 1 {
		t.Errorf("output format %d Hz × %d, want 8000 Hz × 1", track.SampleRate, track.Channels)
	}
	if len(tools.extracted) != 0 || len(tools.converted) != 0 {
		t.Error("WAV input must not go through ffmpeg")
	}
	if got := result.OutputDuration(); got >= result.InputDuration() {
		t.Errorf("output duration %v not shorter than input %v", got, result.InputDuration())
	}
}

func TestProcessFileStereoKeepsWholeFrames(t *testing.T) {
	opts := speechWithGap
	opts.Channels = 2
	input := generateTestAudio(t, "stereo.wav", opts)
	output := OutputPath(input, "", KindAudio)

	p := newTestProcessor(config.Default(), &fakeTools{}, nil)
	result, err := p.ProcessFile(context.Background(), input, output, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	track, err := audio.ReadWAV(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if track.Channels != 2 {
		t.Fatalf("output has %d channels, want 2", track.Channels)
	}
	if len(track.Samples) != 2*result.Analysis.OutputFrames {
		t.Errorf("output has %d samples, want %d", len(track.Samples), 2*result.Analysis.OutputFrames)
	}
	for i := 0; i < len(track.Samples); i += 2 {
		if track.Samples[i] != track.Samples[i+1] {
			t.Fatalf("channels differ at frame %d", i/2)
		}
	}
}

func TestProcessFileFloatWAVTranscodes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speech.wav")
	writeFloatWAV(t, input, 8000, 20000)
	output := OutputPath(input, "", KindAudio)

	tools := &fakeTools{track: testSamples(speechWithGap)}
	p := newTestProcessor(config.Default(), tools, nil)
	result, err := p.ProcessFile(context.Background(), input, output, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	temps := tempFilesFor(input)
	if temps.Extracted == input {
		t.Fatalf("extraction target %s is the input", temps.Extracted)
	}
	if len(tools.extracted) != 1 || tools.extracted[0] != temps.Extracted {
		t.Errorf("extracted to %v, want %s", tools.extracted, temps.Extracted)
	}
	if len(tools.converted) != 0 {
		t.Errorf("converted %v, want direct WAV output", tools.converted)
	}

	// Analysis runs on the transcoded PCM, not on float bit patterns.
	const removed = 12000 - 7999 - 2*30
	if got := result.Analysis.Removed(); got != removed {
		t.Errorf("removed %d frames, want %d", got, removed)
	}
	if result.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", result.BitDepth)
	}
	if fileExists(temps.Extracted) {
		t.Error("transcoded temp left behind after success")
	}
	if !audio.NonPCM(input) {
		t.Error("input was modified")
	}
}

func TestProcessFileCompressedAudio(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speech.mp3")
	touch(t, input)
	output := OutputPath(input, "", KindAudio)

	tools := &fakeTools{track: testSamples(speechWithGap)}
	p := newTestProcessor(config.Default(), tools, nil)

	var stages []Stage
	result, err := p.ProcessFile(context.Background(), input, output, func(s Stage, progress float64) {
		if progress == 0 {
			stages = append(stages, s)
		}
	})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	temps := tempFilesFor(input)
	if len(tools.extracted) != 1 || tools.extracted[0] != temps.Extracted {
		t.Errorf("extracted to %v, want %s", tools.extracted, temps.Extracted)
	}
	if len(tools.converted) != 2 || tools.converted[0] != temps.Audio || tools.converted[1] != output {
		t.Errorf("converted %v, want [%s %s]", tools.converted, temps.Audio, output)
	}
	if fileExists(temps.Extracted) || fileExists(temps.Audio) {
		t.Error("temporary files left behind after success")
	}
	if result.TempFiles != nil {
		t.Errorf("TempFiles = %v after cleanup", result.TempFiles)
	}

	want := []Stage{StageExtracting, StageAnalysing, StageCutting, StageMuxing}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d = %v, want %v", i, stages[i], want[i])
		}
	}
}

func TestProcessFileKeepTemp(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speech.mp3")
	touch(t, input)

	cfg := config.Default()
	cfg.KeepTemp = true
	p := newTestProcessor(cfg, &fakeTools{track: testSamples(speechWithGap)}, nil)

	result, err := p.ProcessFile(context.Background(), input, OutputPath(input, "", KindAudio), nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(result.TempFiles) != 2 {
		t.Fatalf("TempFiles = %v, want 2 entries", result.TempFiles)
	}
	for _, path := range result.TempFiles {
		if !fileExists(path) {
			t.Errorf("%s removed despite KeepTemp", path)
		}
	}
}

func TestProcessFileOutputCollision(t *testing.T) {
	input := generateTestAudio(t, "speech.wav", speechWithGap)
	output := OutputPath(input, "", KindAudio)
	if err := os.WriteFile(output, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestProcessor(config.Default(), &fakeTools{}, nil)
	_, err := p.ProcessFile(context.Background(), input, output, nil)
	if !errors.Is(err, failure.ErrOutputCollision) {
		t.Fatalf("error = %v, want output collision", err)
	}

	data, _ := os.ReadFile(output)
	if string(data) != "keep me" {
		t.Error("existing output was overwritten")
	}
}

func TestProcessFileLeavesTempsOnFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speech.mp3")
	touch(t, input)
	output := OutputPath(input, "", KindAudio)
	touch(t, output)

	p := newTestProcessor(config.Default(), &fakeTools{track: testSamples(speechWithGap)}, nil)
	result, err := p.ProcessFile(context.Background(), input, output, nil)
	if !errors.Is(err, failure.ErrOutputCollision) {
		t.Fatalf("error = %v, want output collision", err)
	}
	for _, path := range result.TempFiles {
		if !fileExists(path) {
			t.Errorf("%s removed after a failed run", path)
		}
	}
}

func TestProcessFileManualThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
	}{
		{"zero keeps everything", 0},
		{"above every sample keeps everything", 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := generateTestAudio(t, "speech.wav", speechWithGap)
			cfg := config.Default()
			threshold := tt.threshold
			cfg.Threshold = &threshold

			p := newTestProcessor(cfg, &fakeTools{}, nil)
			result, err := p.ProcessFile(context.Background(), input, OutputPath(input, "", KindAudio), nil)
			if err != nil {
				t.Fatalf("ProcessFile failed: %v", err)
			}
			if !result.Analysis.Manual || result.Analysis.Threshold != tt.threshold {
				t.Errorf("threshold = %v manual=%v, want %v manual", result.Analysis.Threshold, result.Analysis.Manual, tt.threshold)
			}
			if result.Analysis.Removed() != 0 {
				t.Errorf("removed %d frames, want 0", result.Analysis.Removed())
			}
		})
	}
}

func TestProcessFileDeterministic(t *testing.T) {
	var outputs [][]byte
	for i := 0; i < 2; i++ {
		input := generateTestAudio(t, "speech.wav", speechWithGap)
		output := OutputPath(input, "", KindAudio)
		p := newTestProcessor(config.Default(), &fakeTools{}, nil)
		if _, err := p.ProcessFile(context.Background(), input, output, nil); err != nil {
			t.Fatalf("ProcessFile failed: %v", err)
		}
		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("identical inputs produced different outputs")
	}
}

func TestProcessFileRejectsInvalidConfig(t *testing.T) {
	input := generateTestAudio(t, "speech.wav", speechWithGap)
	cfg := config.Default()
	cfg.WindowFactor = 0

	p := newTestProcessor(cfg, &fakeTools{}, nil)
	_, err := p.ProcessFile(context.Background(), input, OutputPath(input, "", KindAudio), nil)
	if !errors.Is(err, failure.ErrInvalidParameter) {
		t.Fatalf("error = %v, want invalid parameter", err)
	}
}

func TestProcessFileVideo(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.mp4")
	touch(t, input)
	output := OutputPath(input, "", KindVideo)

	// 3 s at 1 kHz with a silent middle second, over 30 frames at 10 fps.
	tools := &fakeTools{
		track: testSamples(TestAudioOptions{
			SampleRate: 1000,
			Pattern:    []Block{{Frames: 1000}, {Frames: 1000, Silent: true}, {Frames: 1000}},
		}),
		geometry: resync.Geometry{FrameCount: 30, DurationSeconds: 3, Width: 4, Height: 4},
	}
	frames := &fakeFrames{frameCount: 30}

	cfg := config.Default()
	cfg.Compression = ffmpeg.Heavy
	p := newTestProcessor(cfg, tools, frames)

	result, err := p.ProcessFile(context.Background(), input, output, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	// minimum run 1000/80 = 12, so [999+30, 2000-30) goes.
	if got := result.Analysis.OutputFrames; got != 3000-941 {
		t.Fatalf("kept %d audio frames, want %d", got, 3000-941)
	}
	if frames.rate != 10 {
		t.Errorf("encoder rate = %v, want 10", frames.rate)
	}
	if len(frames.written) != 21 {
		t.Fatalf("wrote %d frames, want 21", len(frames.written))
	}
	if result.Video == nil || result.Video.OutputFrames != 21 {
		t.Fatalf("video result = %+v, want 21 output frames", result.Video)
	}

	prev := -1
	for i, f := range frames.written {
		idx := int(f[0])
		if idx < prev {
			t.Fatalf("frame %d went backwards: %d after %d", i, idx, prev)
		}
		if idx > 10 && idx < 21 {
			t.Errorf("frame %d inside the removed second was written", idx)
		}
		prev = idx
	}
	if first := frames.written[0][0]; first != 0 {
		t.Errorf("first frame = %d, want 0", first)
	}
	if prev != 29 {
		t.Errorf("last frame = %d, want 29", prev)
	}
	if frames.source.grabs != 30 {
		t.Errorf("grabbed %d frames, want 30", frames.source.grabs)
	}

	temps := tempFilesFor(input)
	if len(tools.muxed) != 3 || tools.muxed[0] != temps.Video || tools.muxed[1] != temps.Audio || tools.muxed[2] != output {
		t.Errorf("mux args = %v", tools.muxed)
	}
	if tools.muxLevel != ffmpeg.Heavy {
		t.Errorf("mux level = %v, want heavy", tools.muxLevel)
	}
	if fileExists(temps.Extracted) || fileExists(temps.Audio) {
		t.Error("temporary files left behind after success")
	}
}

func TestProcessFileVideoWithFFmpeg(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mkv")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=10:duration=3",
		"-f", "lavfi", "-i", "aevalsrc=if(between(t\\,1\\,2)\\,0\\,0.5*sin(2*PI*440*t)):s=8000:d=3",
		"-c:v", "mpeg4", "-c:a", "pcm_s16le", input)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("cannot generate test clip: %v: %s", err, out)
	}

	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	tc := ffmpeg.New(log)
	cfg := config.Default()
	cfg.Compression = ffmpeg.Mid

	output := OutputPath(input, "", KindVideo)
	result, err := NewFFmpeg(cfg, tc).ProcessFile(context.Background(), input, output, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	g, err := tc.Probe(context.Background(), output)
	if err != nil {
		t.Fatalf("probing output: %v", err)
	}
	if g.DurationSeconds >= 2.9 {
		t.Errorf("output lasts %.2fs, expected the silent second to be cut", g.DurationSeconds)
	}
	if result.Analysis.Removed() == 0 {
		t.Error("no audio removed")
	}
}
