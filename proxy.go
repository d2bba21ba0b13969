package runas

import (
	"fmt"
	"sync"

	"github.com/caarlos0/log"

	"github.com/kochelmonster/runas/internal/protocol"
	"github.com/kochelmonster/runas/internal/spawn"
)

// State of a proxy session. Transitions run idle → spawning → handshaking
// → ready → closing → closed, with failed reachable from any step until
// ready. A closed or failed proxy is never reused; a new session requires
// a new proxy and a new launch.
type State int

const (
	StateIdle State = iota
	StateSpawning
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// launchHelper is swapped out by tests that serve the protocol in-process.
var launchHelper = spawn.Launch

// Proxy drives method calls against a target running in an elevated helper
// process. A proxy exclusively owns its helper process and its endpoint of
// the channel.
//
// Sessions are strictly synchronous: one outstanding call at a time, each
// call blocking until the helper responds or the channel dies. The proxy
// serializes concurrent callers internally, but a long-running remote
// operation blocks every caller; there is no cancellation of an in-flight
// call short of Terminate, after which its effect on the target is
// indeterminate.
type Proxy struct {
	// Prompt is the display string for graphical consent prompts. Set it
	// before Start.
	Prompt string

	targetName string

	// callMu serializes calls and the shutdown handshake on the
	// half-duplex channel. Terminate does not take it: it must be able to
	// abort a call that is still blocked on the helper.
	callMu sync.Mutex

	mu     sync.Mutex
	state  State
	sess   *spawn.Session
	client *protocol.Client
}

// NewProxy prepares a session for the target registered under targetName.
// Nothing is spawned until Start.
func NewProxy(targetName string) *Proxy {
	return &Proxy{
		Prompt:     "Administrator privileges required",
		targetName: targetName,
		state:      StateIdle,
	}
}

// State returns the current session state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start spawns the elevated helper and performs the readiness handshake.
// user and password feed the credential-based POSIX path; the interactive
// strategies (desktop agents, the macOS administrator prompt, UAC) ignore
// them and let the OS prompt own authentication.
//
// Launch failures are distinguishable: ErrNoElevationMechanism,
// ErrWrongCredentials, and ErrHelperFailed for a helper that died before
// signalling readiness. None are retried automatically.
func (p *Proxy) Start(user, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return fmt.Errorf("runas: session already started (state %s)", p.state)
	}
	if _, ok := lookupTarget(p.targetName); !ok {
		return fmt.Errorf("runas: no target registered as %q", p.targetName)
	}

	p.state = StateSpawning
	sess, err := launchHelper(spawn.Options{
		Target:   p.targetName,
		User:     user,
		Password: password,
		Prompt:   p.Prompt,
	})
	if err != nil {
		p.state = StateFailed
		return err
	}

	p.state = StateHandshaking
	client := protocol.NewClient(sess.Pipe)
	if err := client.WaitReady(); err != nil {
		sess.Pipe.Close()
		sess.Proc.Kill()
		sess.Proc.Wait()
		p.state = StateFailed
		return fmt.Errorf("%w: %v", ErrHelperFailed, err)
	}

	p.sess = sess
	p.client = client
	p.state = StateReady
	log.Debugf("helper session ready for target %q", p.targetName)
	return nil
}

// Call invokes method with args in the helper and blocks for its result.
// A failing result surfaces as a *RemoteError carrying the remote kind and
// message; target faults never end the session.
func (p *Proxy) Call(method string, args ...any) (any, error) {
	p.callMu.Lock()
	defer p.callMu.Unlock()

	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	client := p.client
	p.mu.Unlock()

	// The state lock is not held across the blocking invoke; Terminate
	// needs it to close the channel under this call.
	result, err := client.Invoke(method, args)
	if err != nil {
		if _, remote := err.(*RemoteError); !remote {
			// Transport-level failure: the session is dead.
			p.mu.Lock()
			if p.state == StateReady {
				p.state = StateFailed
			}
			p.mu.Unlock()
		}
		return nil, err
	}
	return result, nil
}

// Close performs the shutdown handshake: send the close sentinel, wait for
// the helper's acknowledgement. Idempotent; closing a session that never
// became ready is a no-op.
func (p *Proxy) Close() error {
	p.callMu.Lock()
	defer p.callMu.Unlock()
	return p.closeHandshake()
}

// closeHandshake runs under callMu.
func (p *Proxy) closeHandshake() error {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosing
	client := p.client
	p.mu.Unlock()

	err := client.SendClose()

	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("runas: close handshake: %w", err)
	}
	return nil
}

// Terminate ends the session unconditionally. With no call in flight it
// runs the shutdown handshake first; while a call is blocked on the helper
// it skips the handshake, closes the channel (failing the pending call)
// and kills the helper, aborting the in-flight operation with
// indeterminate effect on the target. Safe to call after Close.
func (p *Proxy) Terminate() error {
	graceful := false
	if p.callMu.TryLock() {
		graceful = p.closeHandshake() == nil
		p.callMu.Unlock()
	}

	p.mu.Lock()
	sess := p.sess
	p.sess = nil
	p.client = nil
	p.state = StateClosed
	p.mu.Unlock()

	if sess == nil {
		return nil
	}
	sess.Pipe.Close()
	if !graceful {
		// The helper may never leave its dispatch loop on its own.
		sess.Proc.Kill()
	}
	err := sess.Proc.Wait()
	if err != nil {
		return fmt.Errorf("runas: reaping helper: %w", err)
	}
	return nil
}
