//go:build !windows

package runas

import (
	"fmt"
	"os"

	"github.com/kochelmonster/runas/internal/pipe"
)

// connectChannel attaches the helper to its end of the duplex channel.
func connectChannel(id pipe.Identity) (*pipe.Pipe, error) {
	switch id.Kind {
	case pipe.KindStdio:
		// sudo preserved our standard streams; the parent frames them.
		return pipe.New(os.Stdin, os.Stdout), nil
	case pipe.KindFIFO:
		return pipe.Connect(id)
	default:
		return nil, fmt.Errorf("runas: channel kind %q not usable on this platform", id.Kind)
	}
}
