package broadcast

import (
	"errors"
	"os/exec"
	"strings"
	"sync"
)

type Classifier struct {
	benign []string
}

func NewClassifier(benign []string) *Classifier {
	return &Classifier{
		benign: benign,
	}
}

func (c *Classifier) Line(stream Stream, text string) Line {
	text = strings.TrimRight(text, "\r\n")

	line := Line{
		Stream: stream,
		Text:   text,
		Level:  LevelInfo,
	}

	if stream != Stderr {
		return line
	}

	for _, pattern := range c.benign {
		if pattern != "" && strings.Contains(text, pattern) {
			line.Level = LevelDebug
			return line
		}
	}

	// the encoder reports transient problems on stderr, they are not fatal
	line.Level = LevelWarn
	return line
}

// ClassifyExit maps the result of cmd.Wait to an exit reason. Any exit that
// follows an interrupt sent by the manager counts as a user stop, because
// ffmpeg traps SIGINT and exits with its own code.
func ClassifyExit(err error, interrupted bool) Exit {
	code := 0
	if err != nil {
		code = -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	switch {
	case interrupted:
		return Exit{Reason: ExitUserStopped, Code: code}
	case code == 0:
		return Exit{Reason: ExitCompleted, Code: 0}
	default:
		return Exit{
			Reason: ExitAbnormal,
			Code:   code,
			Err:    &EncoderExitedAbnormallyError{Code: code},
		}
	}
}

// lineRing keeps the last lines written to it.
type lineRing struct {
	mu    sync.Mutex
	lines []string
	head  int
	full  bool
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 1
	}
	return &lineRing{
		lines: make([]string, capacity),
	}
}

func (r *lineRing) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.head == 0 {
		r.full = true
	}
}

func (r *lineRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]string{}, r.lines[:r.head]...)
	}

	ordered := make([]string, 0, len(r.lines))
	ordered = append(ordered, r.lines[r.head:]...)
	return append(ordered, r.lines[:r.head]...)
}
