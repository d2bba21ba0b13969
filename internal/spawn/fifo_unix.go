//go:build !windows

package spawn

import (
	"fmt"
	"os/exec"

	"github.com/caarlos0/log"

	"github.com/kochelmonster/runas/internal/bootstrap"
	"github.com/kochelmonster/runas/internal/pipe"
)

// launchOverFIFO is the channel-first flow shared by the interactive POSIX
// strategies: build the FIFO pair before spawning, hand the slave identity
// to the helper through its bootstrap arguments, then block in Open until
// the helper connects or the elevation agent dies. There is no password
// exchange; the OS prompt owns authentication, readiness is the first
// successful read, and an agent that exits without connecting (prompt
// dismissed) surfaces as ErrWrongCredentials.
//
// makeArgv receives the helper command tail (executable, marker flag,
// encoded arguments) and wraps it in the platform's elevation command.
func launchOverFIFO(opts Options, makeArgv func(tail []string) ([]string, error)) (*Session, error) {
	exe, err := helperExecutable()
	if err != nil {
		return nil, fmt.Errorf("locating helper executable: %w", err)
	}
	fifo, err := pipe.NewFIFOPair()
	if err != nil {
		return nil, err
	}
	boot, err := encodeBootstrap(opts.Target, fifo.Identity())
	if err != nil {
		fifo.Remove()
		return nil, err
	}

	argv, err := makeArgv([]string{exe, bootstrap.Flag, boot})
	if err != nil {
		fifo.Remove()
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)

	log.Debugf("starting helper: %s", argv[0])
	if err := cmd.Start(); err != nil {
		fifo.Remove()
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	h := &execHandle{cmd: cmd}
	exited := make(chan struct{})
	go func() {
		h.wait()
		close(exited)
	}()

	type openResult struct {
		p   *pipe.Pipe
		err error
	}
	opened := make(chan openResult, 1)
	go func() {
		p, err := fifo.Open()
		opened <- openResult{p: p, err: err}
	}()

	// Blocks until the helper opens its ends. The agent exiting first
	// means the helper will never connect: the user dismissed the prompt,
	// or the agent failed to start the command.
	select {
	case res := <-opened:
		if res.err != nil {
			h.Kill()
			h.Wait()
			return nil, res.err
		}
		return &Session{Proc: h, Pipe: res.p}, nil
	case <-exited:
		select {
		case res := <-opened:
			if res.p != nil {
				res.p.Close()
			}
		default:
			// Complete the rendezvous locally so the pending open
			// returns, then discard its result.
			fifo.Unblock()
			if res := <-opened; res.p != nil {
				res.p.Close()
			}
		}
		fifo.Remove()
		return nil, ErrWrongCredentials
	}
}
