package runas

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/caarlos0/log"

	"github.com/kochelmonster/runas/internal/bootstrap"
	"github.com/kochelmonster/runas/internal/pipe"
	"github.com/kochelmonster/runas/internal/privilege"
	"github.com/kochelmonster/runas/internal/protocol"
)

// Target is an explicit set of methods a helper process exposes. See
// protocol.Target; the set is fixed at registration time, dispatch never
// reflects over a receiver.
type Target = protocol.Target

// Handler executes one proxied method in the helper process. Arguments and
// results must stay within the wire schema (JSON primitives, sequences,
// mappings); numeric arguments arrive as float64.
type Handler = protocol.Handler

// NewTarget returns an empty method set.
func NewTarget() *Target {
	return protocol.NewTarget()
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Target)
)

// Register makes target available under name. The helper is this same
// binary re-executed, so the registration must run in both roles: call
// Register before RunHelper in main.
func Register(name string, target *Target) error {
	if name == "" {
		return fmt.Errorf("runas: empty target name")
	}
	if target == nil {
		return fmt.Errorf("runas: nil target %q", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		return fmt.Errorf("runas: target already registered: %s", name)
	}
	registry[name] = target
	return nil
}

func lookupTarget(name string) (*Target, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	t, ok := registry[name]
	return t, ok
}

// RunHelper turns the current process into the elevated helper when the
// bootstrap marker flag is present on its command line, and never returns
// in that case. Without the flag it is a no-op. Call it in main after all
// targets are registered and before any other work.
func RunHelper() {
	args, isHelper, err := bootstrap.FromArgv(os.Args)
	if !isHelper {
		return
	}
	if err != nil {
		log.WithError(err).Error("helper bootstrap arguments unusable")
		os.Exit(1)
	}
	os.Exit(runHelper(args, os.Stderr))
}

func runHelper(args bootstrap.Args, stderr io.Writer) int {
	// The credential-path parent reads this byte from stderr before it
	// trusts that the elevation mechanism accepted the password. On the
	// agent paths stderr stays attached to the user's terminal and must
	// stay clean.
	if args.Channel.Kind == pipe.KindStdio {
		stderr.Write([]byte{bootstrap.CredAck})
	}
	if err := bootstrap.RestorePath(args.Path); err != nil {
		log.WithError(err).Error("restoring search path")
		return 1
	}
	target, ok := lookupTarget(args.Target)
	if !ok {
		log.Errorf("helper has no target registered as %q", args.Target)
		return 1
	}
	p, err := connectChannel(args.Channel)
	if err != nil {
		log.WithError(err).Error("connecting helper channel")
		return 1
	}
	if err := protocol.Serve(p, target); err != nil {
		log.WithError(err).Error("dispatch loop failed")
		return 1
	}
	return 0
}

// HasRoot reports whether the current process already has elevated rights.
func HasRoot() bool {
	return privilege.HasRoot()
}

// CanGetRoot reports whether the current process could plausibly obtain
// elevated rights. Always true on POSIX; on Windows it inspects the UAC
// split-token session.
func CanGetRoot() bool {
	return privilege.CanGetRoot()
}
