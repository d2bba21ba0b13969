// Package spawn implements the per-platform strategies for launching the
// elevated helper process and wiring up its channel: sudo with a piped
// password on POSIX, graphical privilege-prompt agents when a desktop
// session is present, the AppleScript "with administrator privileges"
// facility on macOS and the native "runas" shell verb on Windows.
//
// All strategies converge on the same contract: a live process handle plus
// a connected framed channel, ready for the protocol handshake, or a named
// failure the caller can act on.
package spawn

import (
	"errors"
	"os"
	"os/exec"

	"github.com/kochelmonster/runas/internal/bootstrap"
	"github.com/kochelmonster/runas/internal/pipe"
)

var (
	// ErrNoElevationMechanism reports that no way to elevate exists on
	// this host (no sudo-family program, no prompt agent).
	ErrNoElevationMechanism = errors.New("spawn: no elevation mechanism available")
	// ErrWrongCredentials reports that the elevation mechanism rejected
	// the supplied password, or that the user declined the consent prompt.
	// Never retried silently; the caller decides whether to prompt again.
	ErrWrongCredentials = errors.New("spawn: wrong credentials")
)

// Handle is the spawned helper process as seen by the launcher. POSIX
// strategies wrap os/exec; Windows wraps the process handle returned by the
// shell verb.
type Handle interface {
	// Kill forcefully terminates the helper. Any in-flight operation is
	// aborted with indeterminate effect on the target.
	Kill() error
	// Wait reaps the helper after it exits. Safe to call after Kill.
	Wait() error
}

// Session is the outcome of a successful spawn.
type Session struct {
	Proc Handle
	Pipe *pipe.Pipe
}

// Options configures one launch.
type Options struct {
	// Target names the method set the helper should serve. It must be
	// registered in the binary under the same name on both sides.
	Target string
	// User and Password feed the credential-based POSIX path. Interactive
	// strategies ignore them; the OS prompt owns authentication there.
	User     string
	Password string
	// Prompt is the display string for graphical consent prompts.
	Prompt string
}

// encodeBootstrap builds the helper command-line tail for a given channel.
func encodeBootstrap(target string, channel pipe.Identity) (string, error) {
	return bootstrap.Encode(bootstrap.Args{
		Target:  target,
		Path:    bootstrap.Snapshot(),
		Channel: channel,
	})
}

// helperExecutable locates the binary to re-execute as the helper: this
// very process image.
func helperExecutable() (string, error) {
	return os.Executable()
}

// findExe probes the search path for name and returns an argv prefix with
// extra appended, or nil if the program is absent.
func findExe(name string, extra ...string) []string {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil
	}
	return append([]string{path}, extra...)
}
