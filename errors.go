package runas

import (
	"errors"

	"github.com/kochelmonster/runas/internal/protocol"
	"github.com/kochelmonster/runas/internal/spawn"
)

// Launch failures, distinguishable so callers can prompt again, fall back
// or abort with an actionable message.
var (
	// ErrNoElevationMechanism: nothing to elevate with on this host.
	ErrNoElevationMechanism = spawn.ErrNoElevationMechanism
	// ErrWrongCredentials: the elevation mechanism rejected the password,
	// or the user declined the consent prompt. Never retried silently.
	ErrWrongCredentials = spawn.ErrWrongCredentials
	// ErrHelperFailed: the helper process died or failed to signal
	// readiness. Fatal for the session; a new Start is required.
	ErrHelperFailed = errors.New("runas: helper failed to start")
	// ErrClosed: the session is closed; a new session requires a new
	// proxy and a new launch.
	ErrClosed = errors.New("runas: session closed")
)

// RemoteError is a failure reported by the helper: a target fault, an
// unknown method or a protocol violation, told apart by Kind.
type RemoteError = protocol.RemoteError

// ErrorKind classifies a RemoteError.
type ErrorKind = protocol.ErrorKind

const (
	// KindFault: the target method returned an error or panicked.
	KindFault = protocol.KindFault
	// KindNoSuchMethod: the call named a method the target does not expose.
	KindNoSuchMethod = protocol.KindNoSuchMethod
	// KindBadEnvelope: the helper could not decode the frame as a call.
	KindBadEnvelope = protocol.KindBadEnvelope
)
