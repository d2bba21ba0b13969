package protocol

import (
	"fmt"
	"strings"
)

// reservedPrefix marks internal names that must never be remotely callable.
const reservedPrefix = "_"

// Handler executes one proxied method in the helper process. Arguments and
// result must stay within the wire schema: JSON primitives, sequences and
// mappings. Numeric arguments arrive as float64.
type Handler func(args []any) (any, error)

// Target is the set of methods a helper exposes. The set is fixed at
// registration time; dispatch never reflects over a receiver, so the
// capability surface of a session is exactly what was registered.
type Target struct {
	methods map[string]Handler
}

// NewTarget returns an empty method set.
func NewTarget() *Target {
	return &Target{methods: make(map[string]Handler)}
}

// Register adds a method. Names must be non-empty, unique, and must not
// start with the reserved prefix.
func (t *Target) Register(name string, fn Handler) error {
	if name == "" {
		return fmt.Errorf("protocol: empty method name")
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return fmt.Errorf("protocol: method name %q uses the reserved prefix %q", name, reservedPrefix)
	}
	if fn == nil {
		return fmt.Errorf("protocol: nil handler for method %q", name)
	}
	if _, dup := t.methods[name]; dup {
		return fmt.Errorf("protocol: method already registered: %s", name)
	}
	t.methods[name] = fn
	return nil
}

// MustRegister is Register for static method sets assembled at startup.
func (t *Target) MustRegister(name string, fn Handler) {
	if err := t.Register(name, fn); err != nil {
		panic(err)
	}
}

func (t *Target) lookup(name string) (Handler, bool) {
	fn, ok := t.methods[name]
	return fn, ok
}
