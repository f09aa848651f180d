package broadcast

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid broadcast config")
	ErrProcessSpawn        = errors.New("encoder process could not be spawned")
	ErrAlreadyBroadcasting = errors.New("broadcast is already running")
	ErrNoActiveSession     = errors.New("no active broadcast to stop")
)

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

type ProcessSpawnError struct {
	Binary string
	Err    error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrProcessSpawn, e.Binary, e.Err)
}

func (e *ProcessSpawnError) Unwrap() []error {
	return []error{ErrProcessSpawn, e.Err}
}

// EncoderExitedAbnormallyError is reported through the exited event, never
// returned from Start or Stop.
type EncoderExitedAbnormallyError struct {
	Code int
}

func (e *EncoderExitedAbnormallyError) Error() string {
	return fmt.Sprintf("encoder exited abnormally with code %d", e.Code)
}
