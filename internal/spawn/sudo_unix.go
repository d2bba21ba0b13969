//go:build !windows

package spawn

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/caarlos0/log"

	"github.com/kochelmonster/runas/internal/bootstrap"
	"github.com/kochelmonster/runas/internal/pipe"
)

// execHandle wraps a started exec.Cmd as a launcher process handle. The
// wait is routed through a sync.Once so a launch-time exit monitor and the
// session can both reap the same command.
type execHandle struct {
	cmd      *exec.Cmd
	waitOnce sync.Once
	waitErr  error
}

func (h *execHandle) wait() error {
	h.waitOnce.Do(func() { h.waitErr = h.cmd.Wait() })
	return h.waitErr
}

func (h *execHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *execHandle) Wait() error {
	// The helper exits nonzero when killed or when its channel died;
	// the session outcome was already decided by then.
	err := h.wait()
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}

// launchSudo is the credential-based POSIX strategy: sudo reads the
// password from its stdin, the helper's stdin/stdout become the channel,
// and a single marker byte on stderr tells us the password was accepted.
func launchSudo(opts Options) (*Session, error) {
	sudo := findExe("sudo")
	if sudo == nil {
		return nil, ErrNoElevationMechanism
	}
	exe, err := helperExecutable()
	if err != nil {
		return nil, fmt.Errorf("locating helper executable: %w", err)
	}
	boot, err := encodeBootstrap(opts.Target, pipe.Identity{Kind: pipe.KindStdio})
	if err != nil {
		return nil, err
	}

	user := opts.User
	if user == "" {
		user = "root"
	}
	// -k drops cached credentials so the password is actually checked,
	// -p "" suppresses the prompt on stderr, -S reads the password from
	// stdin.
	argv := append(sudo, "-k", "-p", "", "-u", user, "-S", exe, bootstrap.Flag, boot)
	cmd := exec.Command(argv[0], argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	log.Debugf("starting helper: sudo -u %s %s", user, exe)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting sudo: %w", err)
	}
	if _, err := io.WriteString(stdin, opts.Password+"\n"); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("sending password: %w", err)
	}

	// The helper writes one marker byte to stderr as soon as it starts.
	// Anything else on that stream, or the stream closing, is sudo
	// reporting an authentication failure.
	var ack [1]byte
	if _, err := io.ReadFull(stderr, ack[:]); err != nil || ack[0] != bootstrap.CredAck {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, ErrWrongCredentials
	}
	// Drain whatever the helper logs to stderr afterwards.
	go io.Copy(io.Discard, stderr)

	return &Session{
		Proc: &execHandle{cmd: cmd},
		Pipe: pipe.New(stdout, stdin),
	}, nil
}
