//go:build !windows

package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// FIFOPair is the POSIX duplex channel: two named FIFOs ("m2s" carries
// master-to-slave frames, "s2m" the reverse) inside a freshly created
// 0700 directory. Both names embed a random token, and each side removes
// its own write-conduit name once connected, so a third process cannot
// reopen it.
//
// A hostile process running under the same account could still race the
// rendezvous before the names are unlinked. That residual risk is accepted:
// anonymous pipes are not reliably inherited through sudo wrappers, and the
// channel is meant to defeat accidental collision and other-account
// snooping, not a co-located attacker with the owner's privileges.
type FIFOPair struct {
	dir       string
	readName  string
	writeName string
	master    bool
}

// NewFIFOPair creates the master endpoint and both FIFO names. The slave
// endpoint is described by Identity and connected in the helper process
// with Connect.
func NewFIFOPair() (*FIFOPair, error) {
	dir, err := os.MkdirTemp("", "runas-")
	if err != nil {
		return nil, fmt.Errorf("creating channel directory: %w", err)
	}
	token := uuid.NewString()
	m2s := filepath.Join(dir, "m2s-"+token)
	s2m := filepath.Join(dir, "s2m-"+token)
	for _, name := range []string{m2s, s2m} {
		if err := unix.Mkfifo(name, 0o600); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("creating fifo: %w", err)
		}
	}
	return &FIFOPair{dir: dir, readName: s2m, writeName: m2s, master: true}, nil
}

// Identity describes the slave endpoint: read and write conduits swapped.
func (f *FIFOPair) Identity() Identity {
	return Identity{
		Kind:      KindFIFO,
		Dir:       f.dir,
		ReadName:  f.writeName,
		WriteName: f.readName,
	}
}

// Connect opens the slave endpoint named by id. Called in the helper.
func Connect(id Identity) (*Pipe, error) {
	f := &FIFOPair{dir: id.Dir, readName: id.ReadName, writeName: id.WriteName}
	return f.Open()
}

// Open blocks until the peer opens its ends, then returns the framed pipe.
// FIFO opens block until the opposite end arrives: the master opens its
// read conduit first and the slave its write conduit first, so the two
// sides rendezvous instead of deadlocking.
func (f *FIFOPair) Open() (*Pipe, error) {
	var rf, wf *os.File
	var err error
	if f.master {
		if rf, err = os.OpenFile(f.readName, os.O_RDONLY, 0); err == nil {
			wf, err = os.OpenFile(f.writeName, os.O_WRONLY, 0)
		}
	} else {
		if wf, err = os.OpenFile(f.writeName, os.O_WRONLY, 0); err == nil {
			rf, err = os.OpenFile(f.readName, os.O_RDONLY, 0)
		}
	}
	if err != nil {
		if rf != nil {
			rf.Close()
		}
		if wf != nil {
			wf.Close()
		}
		f.Remove()
		return nil, fmt.Errorf("opening fifo: %w", err)
	}
	// Connected. Our write-conduit name is no longer needed by anyone;
	// unlink it so it cannot be reopened.
	if err := os.Remove(f.writeName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		rf.Close()
		wf.Close()
		return nil, fmt.Errorf("unlinking fifo: %w", err)
	}
	return newWithCleanup(rf, wf, f.Remove), nil
}

// Unblock completes the rendezvous from the absent peer's side so a
// process blocked in Open returns. The unblocked pipe sees end-of-stream
// on its first read. Used by launchers when the spawned process died
// before connecting.
func (f *FIFOPair) Unblock() {
	if w, err := os.OpenFile(f.readName, os.O_WRONLY, 0); err == nil {
		w.Close()
	}
	if r, err := os.OpenFile(f.writeName, os.O_RDONLY, 0); err == nil {
		r.Close()
	}
}

// Remove deletes any FIFO names and the channel directory that still exist.
// "Already removed" is not an error: the peer may have cleaned up first.
func (f *FIFOPair) Remove() error {
	for _, name := range []string{f.readName, f.writeName} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Remove(f.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// The peer's conduit name may still be present; leave the
		// directory for the peer's cleanup.
		if !errors.Is(err, unix.ENOTEMPTY) {
			return err
		}
	}
	return nil
}
