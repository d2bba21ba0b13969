//go:build windows

package spawn

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/log"
	"golang.org/x/sys/windows"

	"github.com/kochelmonster/runas/internal/bootstrap"
	"github.com/kochelmonster/runas/internal/pipe"
	"github.com/kochelmonster/runas/internal/windowsexec"
)

// winHandle wraps the bare process handle the "runas" verb gives us. The
// verb hands over no job object and no signal path; termination goes
// through TerminateProcess and reaping through WaitForSingleObject.
type winHandle struct {
	handle windows.Handle
}

func (h *winHandle) Kill() error {
	err := windows.TerminateProcess(h.handle, 1)
	// Already gone is fine.
	if err == windows.ERROR_ACCESS_DENIED {
		if done, _, _ := processState(h.handle); done {
			return nil
		}
	}
	return err
}

func (h *winHandle) Wait() error {
	defer windows.CloseHandle(h.handle)
	if _, err := windows.WaitForSingleObject(h.handle, windows.INFINITE); err != nil {
		return fmt.Errorf("waiting for helper process: %w", err)
	}
	return nil
}

func processState(h windows.Handle) (exited bool, code uint32, err error) {
	if err = windows.GetExitCodeProcess(h, &code); err != nil {
		return false, 0, err
	}
	const stillActive = 259 // STILL_ACTIVE
	return code != stillActive, code, nil
}

// Launch is the Windows strategy: create the named pipe server first, ask
// the shell to run the helper elevated (the verb itself raises the consent
// prompt), then wait for the helper to connect to the pipe.
func Launch(opts Options) (*Session, error) {
	exe, err := helperExecutable()
	if err != nil {
		return nil, fmt.Errorf("locating helper executable: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	np, err := pipe.NewNamedPipe()
	if err != nil {
		return nil, err
	}
	boot, err := encodeBootstrap(opts.Target, np.Identity())
	if err != nil {
		np.Close()
		return nil, err
	}

	log.Debugf("starting helper via runas verb: %s", exe)
	proc, err := windowsexec.RunAs(exe, cwd, []string{bootstrap.Flag, boot})
	if err != nil {
		np.Close()
		if errors.Is(err, windows.ERROR_CANCELLED) {
			// The user declined the consent prompt.
			return nil, ErrWrongCredentials
		}
		return nil, err
	}

	p, err := np.Wait()
	if err != nil {
		windows.TerminateProcess(proc, 1)
		windows.CloseHandle(proc)
		return nil, err
	}
	return &Session{Proc: &winHandle{handle: proc}, Pipe: p}, nil
}
