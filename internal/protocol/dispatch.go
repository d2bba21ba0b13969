package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/log"

	"github.com/kochelmonster/runas/internal/pipe"
)

// Serve runs the helper-side dispatch loop until the caller sends the close
// sentinel or the channel dies. It writes the ready marker first, then
// alternates strictly: read one frame, write one response.
//
// A fault raised by a target method never ends the loop; it is caught and
// reported as a failing result. Unknown methods and undecodable envelopes
// are likewise answered and survived; the frame boundary is intact, so the
// session can continue. Only channel failure ends the loop abnormally; a
// vanished peer (end of stream) ends it silently.
func Serve(p *pipe.Pipe, target *Target) error {
	defer p.Close()
	if err := p.WriteFrame(readyMarker); err != nil {
		return fmt.Errorf("writing ready marker: %w", err)
	}
	for {
		frame, err := p.ReadFrame()
		if err != nil {
			if errors.Is(err, pipe.ErrClosed) {
				return nil
			}
			return err
		}
		var call callEnvelope
		if err := json.Unmarshal(frame, &call); err != nil {
			if err := writeFailure(p, KindBadEnvelope, fmt.Sprintf("undecodable envelope: %v", err)); err != nil {
				return err
			}
			continue
		}
		switch call.Kind {
		case kindClose:
			ack, err := json.Marshal(resultEnvelope{V: envelopeVersion, OK: true, Result: closingAck})
			if err != nil {
				return err
			}
			return p.WriteFrame(ack)
		case kindCall:
			res := dispatch(target, call)
			body, err := json.Marshal(res)
			if err != nil {
				// The method produced a result outside the wire schema.
				res = resultEnvelope{V: envelopeVersion, Err: &wireError{
					Kind:    KindFault,
					Message: fmt.Sprintf("unserializable result from %s: %v", call.Method, err),
				}}
				body, _ = json.Marshal(res)
			}
			if err := p.WriteFrame(body); err != nil {
				return err
			}
		default:
			if err := writeFailure(p, KindBadEnvelope, fmt.Sprintf("unknown envelope kind %q", call.Kind)); err != nil {
				return err
			}
		}
	}
}

func dispatch(target *Target, call callEnvelope) (res resultEnvelope) {
	res = resultEnvelope{V: envelopeVersion}
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("method %s panicked: %v", call.Method, r)
			res = resultEnvelope{V: envelopeVersion, Err: &wireError{
				Kind:    KindFault,
				Message: fmt.Sprint(r),
			}}
		}
	}()
	if strings.HasPrefix(call.Method, reservedPrefix) {
		res.Err = &wireError{Kind: KindNoSuchMethod, Message: "method name is reserved: " + call.Method}
		return
	}
	fn, ok := target.lookup(call.Method)
	if !ok {
		res.Err = &wireError{Kind: KindNoSuchMethod, Message: "no such method: " + call.Method}
		return
	}
	out, err := fn(call.Args)
	if err != nil {
		res.Err = &wireError{Kind: KindFault, Message: err.Error()}
		return
	}
	res.OK = true
	res.Result = out
	return
}

func writeFailure(p *pipe.Pipe, kind ErrorKind, message string) error {
	body, err := json.Marshal(resultEnvelope{V: envelopeVersion, Err: &wireError{Kind: kind, Message: message}})
	if err != nil {
		return err
	}
	return p.WriteFrame(body)
}
