package broadcast

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// longest single output line before the scanner gives up and drains
const maxLineLength = 256 * 1024

type ManagerCtx struct {
	logger  zerolog.Logger
	mu      sync.Mutex
	opts    Options
	current *Session

	// closed once the last stopped encoder has exited
	draining <-chan struct{}

	listenersMu sync.RWMutex
	listeners   map[*Listener]struct{}
}

func New(opts Options) *ManagerCtx {
	return &ManagerCtx{
		logger:    log.With().Str("module", "broadcast").Str("submodule", "manager").Logger(),
		opts:      opts.withDefaultValues(),
		listeners: make(map[*Listener]struct{}),
	}
}

func (m *ManagerCtx) SetOptions(opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts = opts.withDefaultValues()
}

// Start replaces any active session: the previous encoder is stopped and
// waited for before the new one is spawned.
func (m *ManagerCtx) Start(ctx context.Context, config Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	opts := m.opts

	if config.FilePath == "" {
		config.FilePath = opts.DefaultFile
	}

	if err := config.Validate(); err != nil {
		startTotal.WithLabelValues("invalid").Inc()
		m.logger.Warn().Err(err).Msg("broadcast config rejected")
		return nil, err
	}

	// output of a stopped session must end before the next encoder spawns
	if err := m.waitDraining(ctx); err != nil {
		startTotal.WithLabelValues("canceled").Inc()
		return nil, err
	}

	if prev := m.current; prev != nil {
		m.logger.Info().Str("session", prev.id).Msg("replacing active broadcast")

		err := m.stopAndWait(ctx, prev, opts.StopTimeout)
		m.current = nil
		activeSessions.Set(0)

		if err != nil {
			startTotal.WithLabelValues("canceled").Inc()
			return nil, err
		}
	}

	session := newSession(config, m.logger)
	logger := session.logger

	cmd := exec.Command(opts.FFmpegBinary, config.EncoderArgs(opts.GlobalArgs...)...)
	configureProcessGroup(cmd)

	pipes, err := openOutputPipes()
	if err != nil {
		return nil, m.spawnFailed(session, opts.FFmpegBinary, err)
	}

	cmd.Stdout = pipes.stdoutW
	cmd.Stderr = pipes.stderrW

	logger.Info().
		Str("file", config.FilePath).
		Str("target", config.Target()).
		Msg("starting RTP over UDP broadcast")
	logger.Debug().Str("command", cmd.String()).Msg("encoder command")

	err = cmd.Start()

	// the encoder holds its own copies of the write ends
	pipes.closeWriters()

	if err != nil {
		pipes.closeReaders()
		return nil, m.spawnFailed(session, opts.FFmpegBinary, err)
	}

	session.running(cmd)
	m.current = session

	startTotal.WithLabelValues("ok").Inc()
	activeSessions.Set(1)

	m.emit(Event{
		Type:      EventStarted,
		SessionID: session.id,
		Time:      time.Now(),
	})

	go m.supervise(session, cmd, pipes, NewClassifier(opts.BenignWarnings))

	return session, nil
}

func (m *ManagerCtx) spawnFailed(session *Session, binary string, err error) error {
	spawnErr := &ProcessSpawnError{Binary: binary, Err: err}

	session.finish(Exit{Reason: ExitSpawnFailed, Code: -1, Err: spawnErr})
	close(session.done)

	startTotal.WithLabelValues("spawn-failed").Inc()
	session.logger.Error().Err(err).Str("binary", binary).Msg("encoder could not be started")

	return spawnErr
}

// Stop interrupts the encoder and releases it. The exit itself is reported
// asynchronously through the exited event.
func (m *ManagerCtx) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.current
	if session == nil {
		m.logger.Info().Msg("no active broadcast to stop")
		return ErrNoActiveSession
	}

	m.current = nil
	m.draining = session.Done()
	activeSessions.Set(0)

	session.logger.Info().Msg("stopping broadcast")
	if err := session.interrupt(m.opts.StopTimeout); err != nil {
		session.logger.Warn().Err(err).Msg("interrupting encoder failed")
	}

	return nil
}

// Shutdown stops the current session and waits for the encoder to exit.
func (m *ManagerCtx) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.current
	if session == nil {
		return m.waitDraining(ctx)
	}

	m.current = nil
	activeSessions.Set(0)

	if err := m.stopAndWait(ctx, session, m.opts.StopTimeout); err != nil {
		return err
	}

	return m.waitDraining(ctx)
}

func (m *ManagerCtx) waitDraining(ctx context.Context) error {
	if m.draining == nil {
		return nil
	}

	select {
	case <-m.draining:
		m.draining = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ManagerCtx) stopAndWait(ctx context.Context, session *Session, timeout time.Duration) error {
	if err := session.interrupt(timeout); err != nil {
		session.logger.Warn().Err(err).Msg("interrupting encoder failed")
	}

	select {
	case <-session.Done():
		return nil
	case <-ctx.Done():
	}

	// the caller gave up waiting, do not leave the encoder behind
	session.kill()
	<-session.Done()

	return ctx.Err()
}

func (m *ManagerCtx) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

func (m *ManagerCtx) Status() Status {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()

	if session == nil {
		return StatusIdle
	}

	return session.Status()
}

func (m *ManagerCtx) release(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == session {
		m.current = nil
		activeSessions.Set(0)
	}
}

func (m *ManagerCtx) supervise(session *Session, cmd *exec.Cmd, pipes *outputPipes, classifier *Classifier) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		m.readOutput(session, Stdout, pipes.stdout, classifier)
	}()

	go func() {
		defer wg.Done()
		m.readOutput(session, Stderr, pipes.stderr, classifier)
	}()

	// output is complete once every holder of the write ends is gone
	wg.Wait()
	pipes.closeReaders()
	err := cmd.Wait()

	exit := ClassifyExit(err, session.wasInterrupted())
	session.finish(exit)

	logger := session.logger
	switch exit.Reason {
	case ExitUserStopped:
		logger.Info().Int("exit-code", exit.Code).Msg("broadcast stopped by user")
	case ExitCompleted:
		logger.Info().Msg("broadcast finished successfully")
	default:
		logger.Error().
			Int("exit-code", exit.Code).
			Strs("stderr", session.stderrTail.Lines()).
			Msg("broadcast process exited abnormally")
	}

	exitTotal.WithLabelValues(string(exit.Reason)).Inc()

	m.emit(Event{
		Type:      EventExited,
		SessionID: session.id,
		Time:      time.Now(),
		Exit:      &exit,
	})

	close(session.done)
	m.release(session)
}

func (m *ManagerCtx) readOutput(session *Session, stream Stream, r io.Reader, classifier *Classifier) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	scanner.Split(scanLines)

	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}

		line := classifier.Line(stream, text)
		if stream == Stderr {
			session.stderrTail.Add(line.Text)
		}

		outputLinesTotal.WithLabelValues(string(line.Stream), string(line.Level)).Inc()

		switch line.Level {
		case LevelWarn:
			session.logger.Warn().Str("stream", string(stream)).Msg(line.Text)
		case LevelDebug:
			session.logger.Debug().Str("stream", string(stream)).Msg(line.Text)
		default:
			session.logger.Info().Str("stream", string(stream)).Msg(line.Text)
		}

		m.emit(Event{
			Type:      EventOutput,
			SessionID: session.id,
			Time:      time.Now(),
			Line:      &line,
		})
	}

	if err := scanner.Err(); err != nil {
		session.logger.Warn().Err(err).Str("stream", string(stream)).Msg("output read failed, discarding the rest")
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanLines splits on \n and on the bare \r ffmpeg uses for progress lines.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
