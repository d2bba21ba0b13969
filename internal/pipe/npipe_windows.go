//go:build windows

package pipe

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

const pipeBufferSize = 64 * 1024

// NamedPipe is the Windows duplex channel: a single-instance byte-mode pipe
// whose name carries a fresh random identifier. A process that does not
// know the generated name cannot attach, and the first-instance flag stops
// anyone from squatting another instance of it. The client opens the pipe
// with identification-level impersonation only, so the helper can never
// act under the caller's identity.
type NamedPipe struct {
	name   string
	handle windows.Handle
}

// NewNamedPipe creates the server endpoint with a fresh unguessable name.
func NewNamedPipe() (*NamedPipe, error) {
	name := `\\.\pipe\runas-` + uuid.NewString()
	name16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("encoding pipe name: %w", err)
	}
	h, err := windows.CreateNamedPipe(
		name16,
		windows.PIPE_ACCESS_DUPLEX|windows.FILE_FLAG_FIRST_PIPE_INSTANCE,
		windows.PIPE_TYPE_BYTE|windows.PIPE_READMODE_BYTE|windows.PIPE_WAIT,
		1,
		pipeBufferSize,
		pipeBufferSize,
		0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating named pipe: %w", err)
	}
	return &NamedPipe{name: name, handle: h}, nil
}

// Identity names the pipe for the helper's bootstrap arguments.
func (n *NamedPipe) Identity() Identity {
	return Identity{Kind: KindNamed, PipeName: n.name}
}

// Wait blocks until the helper connects, then returns the framed pipe.
// No read or write happens before the first client is in.
func (n *NamedPipe) Wait() (*Pipe, error) {
	if err := windows.ConnectNamedPipe(n.handle, nil); err != nil && err != windows.ERROR_PIPE_CONNECTED {
		windows.CloseHandle(n.handle)
		return nil, fmt.Errorf("waiting for pipe client: %w", err)
	}
	f := os.NewFile(uintptr(n.handle), n.name)
	return New(f, f), nil
}

// Close releases the server handle without waiting for a client. Used when
// the spawn failed before the helper could connect.
func (n *NamedPipe) Close() error {
	return windows.CloseHandle(n.handle)
}

// Connect opens the client endpoint of the pipe named by id. Called in the
// helper process.
func Connect(id Identity) (*Pipe, error) {
	name16, err := windows.UTF16PtrFromString(id.PipeName)
	if err != nil {
		return nil, fmt.Errorf("encoding pipe name: %w", err)
	}
	h, err := windows.CreateFile(
		name16,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.SECURITY_SQOS_PRESENT|windows.SECURITY_IDENTIFICATION,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("opening named pipe: %w", err)
	}
	f := os.NewFile(uintptr(h), id.PipeName)
	return New(f, f), nil
}
