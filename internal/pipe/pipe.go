// Package pipe implements the length-framed message transport between the
// parent process and the elevated helper, together with the platform-specific
// construction of the private duplex channel it runs over: paired FIFOs in a
// private directory on POSIX, a uniquely named kernel pipe on Windows, or the
// child's stdin/stdout when the elevation wrapper preserves them.
package pipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed reports that the peer closed the stream before a complete frame
// arrived, or that the pipe was closed locally. A dead channel is never
// retried; the session it belonged to is over.
var ErrClosed = errors.New("pipe: closed")

// Pipe frames messages over a pair of blocking conduits. Each frame is a
// 4-byte native-endian length immediately followed by that many payload
// bytes, in both directions. The protocol above alternates strictly
// (request/response), so writes reach the peer before WriteFrame returns.
type Pipe struct {
	r io.ReadCloser
	w io.WriteCloser

	// cleanup removes filesystem artifacts (FIFO names, channel dir) the
	// channel constructor created. May be nil.
	cleanup func() error

	closeOnce sync.Once
	closeErr  error
}

// New wraps a read conduit and a write conduit into a framed pipe. The two
// may be the same object (Windows named pipes are duplex on one handle).
func New(r io.ReadCloser, w io.WriteCloser) *Pipe {
	return &Pipe{r: r, w: w}
}

func newWithCleanup(r io.ReadCloser, w io.WriteCloser, cleanup func() error) *Pipe {
	return &Pipe{r: r, w: w, cleanup: cleanup}
}

// ReadFrame blocks until one complete frame is available and returns its
// payload, which may be empty. A stream that ends before a full length
// prefix or full body has arrived yields ErrClosed, never partial data.
func (p *Pipe) ReadFrame() ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(p.r, head[:]); err != nil {
		return nil, eofToClosed(err)
	}
	body := make([]byte, binary.NativeEndian.Uint32(head[:]))
	if _, err := io.ReadFull(p.r, body); err != nil {
		return nil, eofToClosed(err)
	}
	return body, nil
}

// WriteFrame sends one frame. The write is flushed before returning; a
// buffered-but-unsent frame would deadlock the peer, which blocks reading
// between calls.
func (p *Pipe) WriteFrame(body []byte) error {
	var head [4]byte
	binary.NativeEndian.PutUint32(head[:], uint32(len(body)))
	if _, err := p.w.Write(head[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := p.w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	if f, ok := p.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing frame: %w", err)
		}
	}
	return nil
}

// Close releases both conduits and removes any filesystem artifacts the
// channel created. It is idempotent and safe to call after a failure.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		err := p.r.Close()
		if any(p.w) != any(p.r) {
			if werr := p.w.Close(); err == nil {
				err = werr
			}
		}
		if p.cleanup != nil {
			if cerr := p.cleanup(); err == nil {
				err = cerr
			}
		}
		p.closeErr = err
	})
	return p.closeErr
}

func eofToClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClosed
	}
	return err
}
