package devices

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var audioDeviceRegex = regexp.MustCompile(`(?i)"([^"]+)" \((audio)\)`)

// RunFunc runs the listing command and returns what it printed on stderr.
type RunFunc func(ctx context.Context, binary string, args []string) ([]byte, error)

type Config struct {
	FFmpegBinary string // defaults to ffmpeg
	Format       string // input device format, defaults to dshow
}

func (c Config) withDefaultValues() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.Format == "" {
		c.Format = "dshow"
	}
	return c
}

type ListerCtx struct {
	logger zerolog.Logger
	config Config
	run    RunFunc
}

func New(config Config) *ListerCtx {
	return NewWithRunner(config, runCommand)
}

func NewWithRunner(config Config, run RunFunc) *ListerCtx {
	return &ListerCtx{
		logger: log.With().Str("module", "devices").Logger(),
		config: config.withDefaultValues(),
		run:    run,
	}
}

func (l *ListerCtx) Args() []string {
	return ffmpeg.Input("dummy", ffmpeg.KwArgs{
		"f":            l.config.Format,
		"list_devices": "true",
	}).GetArgs()
}

// List returns audio device names in the order ffmpeg printed them.
func (l *ListerCtx) List(ctx context.Context) ([]string, error) {
	args := l.Args()

	output, err := l.run(ctx, l.config.FFmpegBinary, args)
	if err != nil {
		l.logger.Error().Err(err).Strs("args", args).Msg("error listing devices")
		return nil, fmt.Errorf("unable to list audio devices: %w", err)
	}

	devices := Parse(bytes.NewReader(output))
	l.logger.Debug().Strs("devices", devices).Msg("audio devices listed")

	return devices, nil
}

// Parse scans ffmpeg device listing output for `"<name>" (audio)` entries.
func Parse(r io.Reader) []string {
	devices := []string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		match := audioDeviceRegex.FindStringSubmatch(scanner.Text())
		if match != nil {
			devices = append(devices, match[1])
		}
	}

	return devices
}

// runCommand treats a non zero exit as success: the listing input "dummy"
// never opens, so ffmpeg always exits with an error after printing devices.
func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return stderr.Bytes(), nil
}
