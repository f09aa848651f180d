package broadcast

import (
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// how many stderr lines are kept for the abnormal exit report
const stderrTailLines = 20

// Session is one run of the encoder against one Config. Its process handle
// is never exposed, only the manager signals it.
type Session struct {
	id        string
	config    Config
	startedAt time.Time
	logger    zerolog.Logger

	mu          sync.Mutex
	status      Status
	cmd         *exec.Cmd
	interrupted bool
	finished    bool
	exit        Exit
	killTimer   *time.Timer

	stderrTail *lineRing
	done       chan struct{}
}

type SessionInfo struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Config    Config    `json:"config"`
	Target    string    `json:"target"`
	StartedAt time.Time `json:"startedAt"`
	Exit      *Exit     `json:"exit,omitempty"`
}

func newSession(config Config, logger zerolog.Logger) *Session {
	id := uuid.NewString()

	return &Session{
		id:        id,
		config:    config,
		startedAt: time.Now(),
		logger:    logger.With().Str("session", id).Logger(),

		status:     StatusStarting,
		stderrTail: newLineRing(stderrTailLines),
		done:       make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() Config {
	return s.config
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Done is closed once the encoder has exited and its output was drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Exit() (Exit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exit, s.finished
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		ID:        s.id,
		Status:    s.status,
		Config:    s.config,
		Target:    s.config.Target(),
		StartedAt: s.startedAt,
	}

	if s.finished {
		exit := s.exit
		info.Exit = &exit
	}

	return info
}

func (s *Session) running(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cmd = cmd
	s.status = StatusRunning
}

func (s *Session) wasInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interrupted
}

// interrupt signals the encoder and arms the kill timer.
func (s *Session) interrupt(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || s.cmd == nil || s.interrupted {
		return nil
	}

	s.interrupted = true
	s.status = StatusStopping

	s.logger.Debug().Int("pid", s.cmd.Process.Pid).Msg("interrupting encoder")
	err := interruptProcess(s.cmd)

	if timeout > 0 {
		s.killTimer = time.AfterFunc(timeout, s.kill)
	}

	return err
}

func (s *Session) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || s.cmd == nil {
		return
	}

	// kill is only reachable after an interrupt, so the exit stays a user stop
	s.interrupted = true

	err := killProcess(s.cmd)
	s.logger.Warn().Err(err).Msg("encoder did not exit in time, killed")
}

// finish records the exit exactly once and releases the process handle.
func (s *Session) finish(exit Exit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return false
	}

	s.finished = true
	s.exit = exit
	s.cmd = nil

	if s.killTimer != nil {
		s.killTimer.Stop()
		s.killTimer = nil
	}

	switch exit.Reason {
	case ExitUserStopped, ExitCompleted:
		s.status = StatusStopped
	default:
		s.status = StatusFailed
	}

	return true
}
