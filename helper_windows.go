//go:build windows

package runas

import (
	"fmt"

	"github.com/kochelmonster/runas/internal/pipe"
)

// connectChannel attaches the helper to its end of the duplex channel.
func connectChannel(id pipe.Identity) (*pipe.Pipe, error) {
	if id.Kind != pipe.KindNamed {
		return nil, fmt.Errorf("runas: channel kind %q not usable on this platform", id.Kind)
	}
	return pipe.Connect(id)
}
