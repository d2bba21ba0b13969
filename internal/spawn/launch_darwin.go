//go:build darwin

package spawn

import (
	"fmt"
	"os"
)

// Launch picks the macOS strategy. With an explicit password the
// sudo-credential path is used (useful for unattended runs); otherwise the
// elevation request goes through the OS script facility, which raises the
// native administrator prompt.
func Launch(opts Options) (*Session, error) {
	if opts.Password != "" {
		return launchSudo(opts)
	}
	return launchOSAScript(opts)
}

// launchOSAScript spawns the helper through
//
//	osascript -e 'do shell script ... with administrator privileges'
//
// with the channel-first FIFO flow. The helper command line is written to a
// private script file and quoted once for the shell and once for the
// AppleScript layer.
func launchOSAScript(opts Options) (*Session, error) {
	osascript := findExe("osascript")
	if osascript == nil {
		return nil, ErrNoElevationMechanism
	}
	var script string
	sess, err := launchOverFIFO(opts, func(tail []string) ([]string, error) {
		var werr error
		script, werr = writeCallScript(quoteShell(tail))
		if werr != nil {
			return nil, fmt.Errorf("writing call script: %w", werr)
		}
		request := fmt.Sprintf(
			"do shell script %s with prompt %s with administrator privileges without altering line endings",
			quoteAppleScript(quoteShell([]string{"sh", script})),
			quoteAppleScript(opts.Prompt),
		)
		return append(osascript, "-e", request), nil
	})
	// The launch only resolves after the shell consumed the script (or
	// the agent died); the bootstrap payload must not linger on disk.
	if script != "" {
		os.Remove(script)
	}
	return sess, err
}

// writeCallScript stores the helper command in a mode-0600 temp file, kept
// out of the process list that `ps` would expose through osascript's own
// argv. The launcher removes it once the launch resolves.
func writeCallScript(command string) (string, error) {
	f, err := os.CreateTemp("", "runas-*.sh")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(command + "\n"); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
