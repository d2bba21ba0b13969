// Package protocol implements the remote-call envelopes exchanged between
// the parent proxy and the elevated helper, the caller-side client and the
// helper-side dispatch loop.
//
// Envelopes are a small, versioned JSON schema restricted to primitives,
// sequences, mappings and a closed set of error kinds. Nothing resembling
// an arbitrary object graph ever crosses the privilege boundary: during the
// launch handshake the peer is not yet trusted.
package protocol

import "fmt"

// envelopeVersion is bumped when the wire schema changes shape.
const envelopeVersion = 1

// Envelope kinds. A close envelope is the reserved sentinel that ends a
// session; everything else is a call.
const (
	kindCall  = "call"
	kindClose = "close"
)

// readyMarker is written by the helper immediately after its dispatch loop
// starts, and read exactly once by the caller before any calls are issued.
var readyMarker = []byte("READY")

// closingAck acknowledges the close sentinel before the loop exits.
const closingAck = "CLOSING"

// ErrorKind classifies a failure crossing the process boundary.
type ErrorKind string

const (
	// KindFault reports that the target method returned an error or
	// panicked. The helper survives these; only the call fails.
	KindFault ErrorKind = "fault"
	// KindNoSuchMethod reports a call naming a method the target does not
	// expose, including names with the reserved prefix.
	KindNoSuchMethod ErrorKind = "no-such-method"
	// KindBadEnvelope reports a frame that did not decode as an envelope.
	KindBadEnvelope ErrorKind = "bad-envelope"
)

// RemoteError is a failure reported by the helper, reconstructed on the
// caller side from its wire descriptor.
type RemoteError struct {
	Kind    ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

type callEnvelope struct {
	V      int    `json:"v"`
	Kind   string `json:"kind"`
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

type wireError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type resultEnvelope struct {
	V      int        `json:"v"`
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Err    *wireError `json:"error,omitempty"`
}
