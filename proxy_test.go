package runas

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kochelmonster/runas/internal/pipe"
	"github.com/kochelmonster/runas/internal/protocol"
	"github.com/kochelmonster/runas/internal/spawn"
)

// fakeProc stands in for the elevated helper process when the protocol is
// served in-process.
type fakeProc struct {
	killed bool
	waited bool
}

func (f *fakeProc) Kill() error { f.killed = true; return nil }
func (f *fakeProc) Wait() error { f.waited = true; return nil }

// installLauncher replaces the helper launcher for the duration of a test.
// Tests using it must not run in parallel; the launcher is package state.
func installLauncher(t *testing.T, launch func(spawn.Options) (*spawn.Session, error)) {
	t.Helper()
	prev := launchHelper
	launchHelper = launch
	t.Cleanup(func() { launchHelper = prev })
}

// serveInProcess wires a launcher that runs the dispatch loop for target on
// an in-memory duplex channel instead of spawning anything.
func serveInProcess(t *testing.T, target *Target) *fakeProc {
	t.Helper()
	proc := &fakeProc{}
	installLauncher(t, func(spawn.Options) (*spawn.Session, error) {
		toHelperR, toHelperW := io.Pipe()
		toProxyR, toProxyW := io.Pipe()
		helperSide := pipe.New(toHelperR, toProxyW)
		proxySide := pipe.New(toProxyR, toHelperW)
		go func() {
			protocol.Serve(helperSide, target)
			proxySide.Close()
		}()
		return &spawn.Session{Proc: proc, Pipe: proxySide}, nil
	})
	return proc
}

func mustRegister(t *testing.T, name string, target *Target) {
	t.Helper()
	if err := Register(name, target); err != nil {
		t.Fatalf("Register(%q) error = %v", name, err)
	}
}

func echoTarget(t *testing.T) *Target {
	t.Helper()
	target := NewTarget()
	target.MustRegister("Upper", func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, errors.New("want a string")
		}
		return strings.ToUpper(s), nil
	})
	target.MustRegister("Fail", func([]any) (any, error) {
		return nil, errors.New("target says no")
	})
	return target
}

func TestProxyLifecycle(t *testing.T) {
	mustRegister(t, "lifecycle", echoTarget(t))
	proc := serveInProcess(t, echoTarget(t))

	p := NewProxy("lifecycle")
	if got := p.State(); got != StateIdle {
		t.Fatalf("State() = %s, want idle", got)
	}
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := p.State(); got != StateReady {
		t.Fatalf("State() = %s, want ready", got)
	}

	result, err := p.Call("Upper", "quiet")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result != "QUIET" {
		t.Errorf("Call() = %v, want QUIET", result)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := p.State(); got != StateClosed {
		t.Errorf("State() after Close = %s, want closed", got)
	}
	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if !proc.waited {
		t.Error("Terminate() did not reap the helper")
	}
}

func TestProxyCallBeforeStart(t *testing.T) {
	p := NewProxy("never-started")
	if _, err := p.Call("Upper", "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Call() error = %v, want ErrClosed", err)
	}
}

func TestProxyCallAfterClose(t *testing.T) {
	mustRegister(t, "after-close", echoTarget(t))
	serveInProcess(t, echoTarget(t))

	p := NewProxy("after-close")
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := p.Call("Upper", "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Call() after Close error = %v, want ErrClosed", err)
	}
}

func TestProxyStartTwice(t *testing.T) {
	mustRegister(t, "start-twice", echoTarget(t))
	serveInProcess(t, echoTarget(t))

	p := NewProxy("start-twice")
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { p.Terminate() })
	if err := p.Start("", ""); err == nil {
		t.Error("second Start() succeeded, want error")
	}
}

func TestProxyStartUnregisteredTarget(t *testing.T) {
	serveInProcess(t, echoTarget(t))

	p := NewProxy("nobody-registered-this")
	if err := p.Start("", ""); err == nil {
		t.Error("Start() succeeded for unregistered target, want error")
	}
	if got := p.State(); got != StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
}

func TestProxyStartLaunchFailure(t *testing.T) {
	mustRegister(t, "launch-failure", echoTarget(t))
	installLauncher(t, func(spawn.Options) (*spawn.Session, error) {
		return nil, spawn.ErrWrongCredentials
	})

	p := NewProxy("launch-failure")
	err := p.Start("root", "hunter2")
	if !errors.Is(err, ErrWrongCredentials) {
		t.Errorf("Start() error = %v, want ErrWrongCredentials", err)
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("State() = %s, want failed", got)
	}
}

func TestProxyStartHandshakeFailure(t *testing.T) {
	mustRegister(t, "bad-handshake", echoTarget(t))
	proc := &fakeProc{}
	installLauncher(t, func(spawn.Options) (*spawn.Session, error) {
		toHelperR, toHelperW := io.Pipe()
		toProxyR, toProxyW := io.Pipe()
		helperSide := pipe.New(toHelperR, toProxyW)
		proxySide := pipe.New(toProxyR, toHelperW)
		go func() {
			// A helper that crashed during startup and babbled to the
			// channel instead of announcing readiness.
			helperSide.WriteFrame([]byte("panic: out of cheese"))
			helperSide.Close()
		}()
		return &spawn.Session{Proc: proc, Pipe: proxySide}, nil
	})

	p := NewProxy("bad-handshake")
	err := p.Start("", "")
	if !errors.Is(err, ErrHelperFailed) {
		t.Errorf("Start() error = %v, want ErrHelperFailed", err)
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("State() = %s, want failed", got)
	}
	if !proc.killed || !proc.waited {
		t.Errorf("failed handshake left helper unreaped (killed=%v waited=%v)", proc.killed, proc.waited)
	}
}

func TestProxyRemoteFaultKeepsSessionAlive(t *testing.T) {
	mustRegister(t, "fault-survives", echoTarget(t))
	serveInProcess(t, echoTarget(t))

	p := NewProxy("fault-survives")
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { p.Terminate() })

	_, err := p.Call("Fail")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call() error = %v, want *RemoteError", err)
	}
	if remote.Kind != KindFault {
		t.Errorf("remote kind = %q, want %q", remote.Kind, KindFault)
	}
	if got := p.State(); got != StateReady {
		t.Fatalf("State() after fault = %s, want ready", got)
	}

	// The session keeps working after a fault.
	result, err := p.Call("Upper", "still here")
	if err != nil {
		t.Fatalf("Call() after fault error = %v", err)
	}
	if result != "STILL HERE" {
		t.Errorf("Call() = %v, want STILL HERE", result)
	}
}

func TestProxyTerminateAbortsInFlightCall(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	target := NewTarget()
	target.MustRegister("Hang", func([]any) (any, error) {
		close(entered)
		<-release
		return nil, nil
	})
	defer close(release)

	mustRegister(t, "terminate-hung", target)
	proc := serveInProcess(t, target)

	p := NewProxy("terminate-hung")
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	callErr := make(chan error, 1)
	go func() {
		_, err := p.Call("Hang")
		callErr <- err
	}()
	<-entered

	terminated := make(chan error, 1)
	go func() { terminated <- p.Terminate() }()

	select {
	case err := <-terminated:
		if err != nil {
			t.Fatalf("Terminate() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Terminate() blocked behind the in-flight call")
	}

	select {
	case err := <-callErr:
		if err == nil {
			t.Error("aborted call returned a nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("aborted call never returned")
	}

	if !proc.killed {
		t.Error("Terminate() did not kill the hung helper")
	}
	if got := p.State(); got != StateClosed {
		t.Errorf("State() = %s, want closed", got)
	}
}

func TestProxyTerminateWithoutClose(t *testing.T) {
	mustRegister(t, "terminate-direct", echoTarget(t))
	proc := serveInProcess(t, echoTarget(t))

	p := NewProxy("terminate-direct")
	if err := p.Start("", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if got := p.State(); got != StateClosed {
		t.Errorf("State() = %s, want closed", got)
	}
	if !proc.waited {
		t.Error("Terminate() did not reap the helper")
	}

	// Terminate again is a no-op.
	if err := p.Terminate(); err != nil {
		t.Fatalf("second Terminate() error = %v", err)
	}
}
