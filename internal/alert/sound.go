package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone describes the synthesized fallback alarm.
type Tone struct {
	Frequency  float64
	Duration   time.Duration
	Volume     float64
	SampleRate int
}

var DefaultTone = Tone{
	Frequency:  880,
	Duration:   650 * time.Millisecond,
	Volume:     0.95,
	SampleRate: 44100,
}

// Samples returns the tone as signed 16-bit mono samples.
func (t Tone) Samples() []int {
	n := int(float64(t.SampleRate) * t.Duration.Seconds())
	amp := 32767 * math.Max(0, math.Min(1, t.Volume))

	out := make([]int, n)
	for i := range out {
		x := float64(i) / float64(t.SampleRate)
		out[i] = int(amp * math.Sin(2*math.Pi*t.Frequency*x))
	}
	return out
}

// WriteTone writes t as a 16-bit mono PCM WAV file at path unless the file
// already exists.
func WriteTone(path string, t Tone) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create sound directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	enc := wav.NewEncoder(f, t.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: t.SampleRate},
		Data:           t.Samples(),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode tone: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to finish wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// playerCommand returns the command that plays a WAV file synchronously on
// goos. lookPath reports whether a binary is installed.
func playerCommand(goos, path string, lookPath func(string) bool) (string, []string, bool) {
	switch goos {
	case "darwin":
		return "afplay", []string{path}, true
	case "windows":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(path, "'", "''"))
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}, true
	default:
		for _, bin := range []string{"paplay", "aplay"} {
			if lookPath(bin) {
				return bin, []string{path}, true
			}
		}
		return "", nil, false
	}
}

// Sound plays the operator's WAV file, or a synthesized tone when there is
// none, and falls back to the system beep.
type Sound struct {
	custom   string
	fallback string
	tone     Tone
	timeout  time.Duration

	play   func(ctx context.Context, path string) error
	beep   func() error
	logger *slog.Logger
}

func NewSound(custom, fallback string, logger *slog.Logger) *Sound {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sound{
		custom:   custom,
		fallback: fallback,
		tone:     DefaultTone,
		timeout:  15 * time.Second,
		beep: func() error {
			return beeep.Beep(DefaultTone.Frequency, int(DefaultTone.Duration.Milliseconds()))
		},
		logger: logger.With("component", "sound"),
	}
	s.play = s.runPlayer
	return s
}

func (s *Sound) Name() string {
	return "sound"
}

func (s *Sound) Send(ctx context.Context, a Alert) error {
	path, err := s.file()
	if err == nil {
		err = s.play(ctx, path)
	}
	if err == nil {
		return nil
	}

	s.logger.Warn("sound playback failed, beeping", "error", err)
	if berr := s.beep(); berr != nil {
		return fmt.Errorf("play sound: %w", errors.Join(err, berr))
	}
	return nil
}

// file returns the custom sound if it exists, else the fallback tone,
// creating it on first use.
func (s *Sound) file() (string, error) {
	if s.custom != "" {
		if _, err := os.Stat(s.custom); err == nil {
			return filepath.Abs(s.custom)
		}
	}
	if s.fallback == "" {
		return "", errors.New("no sound file configured")
	}
	if err := WriteTone(s.fallback, s.tone); err != nil {
		return "", err
	}
	return filepath.Abs(s.fallback)
}

func (s *Sound) runPlayer(ctx context.Context, path string) error {
	lookPath := func(bin string) bool {
		_, err := exec.LookPath(bin)
		return err == nil
	}
	name, args, ok := playerCommand(runtime.GOOS, path, lookPath)
	if !ok {
		return errors.New("no audio player available")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
