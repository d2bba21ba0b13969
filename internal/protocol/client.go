package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kochelmonster/runas/internal/pipe"
)

// Client drives calls from the parent side of the channel. The protocol is
// strictly half-duplex request/response: one outstanding call at a time,
// serialized by the caller. Interleaving calls on one channel is undefined.
type Client struct {
	pipe *pipe.Pipe
}

// NewClient wraps a connected channel endpoint.
func NewClient(p *pipe.Pipe) *Client {
	return &Client{pipe: p}
}

// WaitReady consumes the initial frame the helper writes when its dispatch
// loop starts. Anything other than the ready marker means the helper died
// or something else is on the channel; the session is unusable either way.
func (c *Client) WaitReady() error {
	frame, err := c.pipe.ReadFrame()
	if err != nil {
		return fmt.Errorf("reading ready marker: %w", err)
	}
	if !bytes.Equal(frame, readyMarker) {
		return fmt.Errorf("unexpected ready marker %q", frame)
	}
	return nil
}

// Invoke serializes one call, writes it as a frame, blocks for exactly one
// response frame and returns the payload or the reconstructed remote
// failure.
func (c *Client) Invoke(method string, args []any) (any, error) {
	body, err := json.Marshal(callEnvelope{
		V:      envelopeVersion,
		Kind:   kindCall,
		Method: method,
		Args:   args,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding call %q: %w", method, err)
	}
	if err := c.pipe.WriteFrame(body); err != nil {
		return nil, err
	}
	frame, err := c.pipe.ReadFrame()
	if err != nil {
		return nil, err
	}
	var res resultEnvelope
	if err := json.Unmarshal(frame, &res); err != nil {
		return nil, fmt.Errorf("decoding result of %q: %w", method, err)
	}
	if !res.OK {
		if res.Err == nil {
			return nil, &RemoteError{Kind: KindBadEnvelope, Message: "failure result without error descriptor"}
		}
		return nil, &RemoteError{Kind: res.Err.Kind, Message: res.Err.Message}
	}
	return res.Result, nil
}

// SendClose performs the shutdown handshake: write the close sentinel, wait
// for the helper's acknowledgement. After it returns the helper has left
// its dispatch loop.
func (c *Client) SendClose() error {
	body, err := json.Marshal(callEnvelope{V: envelopeVersion, Kind: kindClose})
	if err != nil {
		return fmt.Errorf("encoding close sentinel: %w", err)
	}
	if err := c.pipe.WriteFrame(body); err != nil {
		return err
	}
	if _, err := c.pipe.ReadFrame(); err != nil {
		return fmt.Errorf("reading close acknowledgement: %w", err)
	}
	return nil
}
