// Package bootstrap encodes the arguments handed to the elevated helper on
// its command line: the marker flag identifying the helper entry point, a
// snapshot of the parent's search path, the name of the target to serve and
// the identity of the channel to connect back through.
package bootstrap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kochelmonster/runas/internal/pipe"
	"github.com/kochelmonster/runas/internal/sliceutil"
)

// Flag marks a process as the elevated helper entry point. The encoded
// arguments follow as the next argument.
const Flag = "--runas-helper"

// CredAck is the single byte the helper writes to stderr on startup. On the
// credential-based POSIX path the parent reads it to learn that the
// elevation mechanism accepted the password and actually started us;
// anything else on that stream is a sudo failure message.
const CredAck byte = '@'

// Args is everything the helper needs to come up.
type Args struct {
	Target  string        `json:"target"`
	Path    []string      `json:"path"`
	Channel pipe.Identity `json:"channel"`
}

// Encode serializes args for transport on a command line. Base64 keeps the
// payload safe through shells, sudo wrappers and the AppleScript layer.
func Encode(a Args) (string, error) {
	if a.Target == "" {
		return "", fmt.Errorf("bootstrap: empty target name")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("bootstrap: encoding args: %w", err)
	}
	return base64.StdEncoding.EncodeToString(body), nil
}

// Decode is the inverse of Encode, validating the channel identity.
func Decode(s string) (Args, error) {
	var a Args
	body, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("bootstrap: undecodable args: %w", err)
	}
	if err := json.Unmarshal(body, &a); err != nil {
		return a, fmt.Errorf("bootstrap: malformed args: %w", err)
	}
	if a.Target == "" {
		return a, fmt.Errorf("bootstrap: args carry no target name")
	}
	if err := a.Channel.Validate(); err != nil {
		return a, fmt.Errorf("bootstrap: %w", err)
	}
	return a, nil
}

// FromArgv scans a command line for the marker flag. The second return is
// false when the flag is absent (the process is a regular invocation, not
// the helper).
func FromArgv(argv []string) (Args, bool, error) {
	for i, arg := range argv {
		if arg != Flag {
			continue
		}
		if i+1 >= len(argv) {
			return Args{}, true, fmt.Errorf("bootstrap: %s given without arguments", Flag)
		}
		a, err := Decode(argv[i+1])
		return a, true, err
	}
	return Args{}, false, nil
}

// Snapshot captures the parent's PATH as a deduplicated list of absolute
// directories. Elevation wrappers reset the environment; the helper
// restores this snapshot so the target's methods resolve the same tools
// the parent would.
func Snapshot() []string {
	raw := strings.Split(os.Getenv("PATH"), string(os.PathListSeparator))
	return sliceutil.Filter(raw, func(dir string) (string, bool) {
		return dir, dir != "" && filepath.IsAbs(dir)
	})
}

// RestorePath installs a snapshot taken in the parent process.
func RestorePath(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return os.Setenv("PATH", strings.Join(paths, string(os.PathListSeparator)))
}
