package pipe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty frame", payload: []byte{}},
		{name: "single byte", payload: []byte{0x42}},
		{name: "short text", payload: []byte("hello helper")},
		{name: "binary with zeros", payload: []byte{0, 1, 0, 2, 0, 3}},
		{name: "larger than pipe buffers", payload: bytes.Repeat([]byte{0xAB}, 256*1024)},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, w := io.Pipe()
			sender := New(io.NopCloser(bytes.NewReader(nil)), w)
			receiver := New(r, nopWriteCloser{io.Discard})

			errc := make(chan error, 1)
			go func() {
				errc <- sender.WriteFrame(tc.payload)
			}()

			got, err := receiver.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !bytes.Equal(got, tc.payload) {
				t.Errorf("ReadFrame() = %d bytes, want %d bytes", len(got), len(tc.payload))
			}
			if err := <-errc; err != nil {
				t.Fatalf("WriteFrame() error = %v", err)
			}
		})
	}
}

func TestZeroLengthFrameIsNotEndOfStream(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	sender := New(io.NopCloser(bytes.NewReader(nil)), w)
	receiver := New(r, nopWriteCloser{io.Discard})

	go sender.WriteFrame(nil)

	got, err := receiver.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v, want nil for zero-length frame", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadFrame() = %q, want empty", got)
	}
}

func TestTruncatedStream(t *testing.T) {
	t.Parallel()

	longLength := make([]byte, 4)
	binary.NativeEndian.PutUint32(longLength, 10)

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "closed before any bytes", raw: nil},
		{name: "closed mid length prefix", raw: []byte{1, 2}},
		{name: "closed mid body", raw: append(longLength, 'a', 'b', 'c')},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, w := io.Pipe()
			receiver := New(r, nopWriteCloser{io.Discard})

			go func() {
				if len(tc.raw) > 0 {
					w.Write(tc.raw)
				}
				w.Close()
			}()

			if _, err := receiver.ReadFrame(); !errors.Is(err, ErrClosed) {
				t.Errorf("ReadFrame() error = %v, want ErrClosed", err)
			}
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	p := New(r, w)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

type duplexStub struct{ closes int }

func (d *duplexStub) Read(p []byte) (int, error)  { return 0, io.EOF }
func (d *duplexStub) Write(p []byte) (int, error) { return len(p), nil }
func (d *duplexStub) Close() error                { d.closes++; return nil }

func TestCloseSharedConduitOnce(t *testing.T) {
	t.Parallel()

	// A duplex handle (Windows named pipe) is the same object on both
	// sides; Close must not release it twice.
	d := &duplexStub{}
	p := New(d, d)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	p.Close()
	if d.closes != 1 {
		t.Errorf("conduit closed %d times, want 1", d.closes)
	}
}
