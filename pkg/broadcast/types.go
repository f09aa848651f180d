package broadcast

import (
	"context"
	"time"
)

type Options struct {
	FFmpegBinary   string        // encoder executable, looked up in PATH when not absolute
	GlobalArgs     []string      // prepended before the fixed argument template
	DefaultFile    string        // substituted when a start request carries no file
	StopTimeout    time.Duration // how long to wait for exit after interrupt before killing, 0 disables
	BenignWarnings []string      // stderr substrings that are never reported as warnings
}

func (o Options) withDefaultValues() Options {
	if o.FFmpegBinary == "" {
		o.FFmpegBinary = "ffmpeg"
	}
	if o.BenignWarnings == nil {
		o.BenignWarnings = []string{"frame size not set"}
	}
	return o
}

type Status string

const (
	StatusIdle     Status = "idle"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// Active reports whether a session in this status still owns a process.
func (s Status) Active() bool {
	return s == StatusStarting || s == StatusRunning || s == StatusStopping
}

type ExitReason string

const (
	ExitUserStopped ExitReason = "user-stopped"
	ExitCompleted   ExitReason = "completed"
	ExitAbnormal    ExitReason = "abnormal"
	ExitSpawnFailed ExitReason = "spawn-failed"
)

type Exit struct {
	Reason ExitReason `json:"reason"`
	Code   int        `json:"code"`
	Err    error      `json:"-"`
}

type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
)

type Line struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
	Level  Level  `json:"level"`
}

type EventType string

const (
	EventStarted EventType = "started"
	EventOutput  EventType = "output"
	EventExited  EventType = "exited"
)

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session"`
	Time      time.Time `json:"time"`
	Line      *Line     `json:"line,omitempty"`
	Exit      *Exit     `json:"exit,omitempty"`
}

type Manager interface {
	Start(ctx context.Context, config Config) (*Session, error)
	Stop() error
	Current() *Session
	Status() Status

	Subscribe() *Listener
	Unsubscribe(l *Listener)

	SetOptions(opts Options)
	Shutdown(ctx context.Context) error
}
