package pipe

import "fmt"

// Kind selects the transport a channel endpoint runs over.
type Kind string

const (
	// KindStdio frames the helper's stdin/stdout. Used by elevation
	// wrappers that preserve standard streams (sudo -S).
	KindStdio Kind = "stdio"
	// KindFIFO is a pair of named FIFOs inside a private directory.
	KindFIFO Kind = "fifo"
	// KindNamed is a Windows named pipe.
	KindNamed Kind = "npipe"
)

// Identity names the helper-side endpoint of a duplex channel so it can be
// handed to the spawned process through its bootstrap arguments. The names
// it carries embed a fresh random token; identities travel only on the
// helper's command line, never through any world-readable location.
type Identity struct {
	Kind Kind `json:"kind"`

	// FIFO channel: directory plus the two conduit names, as seen from the
	// helper (ReadName is the FIFO the helper reads from).
	Dir       string `json:"dir,omitempty"`
	ReadName  string `json:"read,omitempty"`
	WriteName string `json:"write,omitempty"`

	// Named pipe channel.
	PipeName string `json:"pipe,omitempty"`
}

// Validate checks that the identity carries the fields its kind requires.
func (id Identity) Validate() error {
	switch id.Kind {
	case KindStdio:
		return nil
	case KindFIFO:
		if id.Dir == "" || id.ReadName == "" || id.WriteName == "" {
			return fmt.Errorf("fifo channel identity missing conduit names")
		}
		return nil
	case KindNamed:
		if id.PipeName == "" {
			return fmt.Errorf("named pipe channel identity missing pipe name")
		}
		return nil
	default:
		return fmt.Errorf("unknown channel kind %q", id.Kind)
	}
}
