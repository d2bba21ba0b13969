//go:build !windows && !darwin

package spawn

import "os"

// Launch picks the platform strategy. With a desktop session present a
// graphical privilege-prompt agent is preferred over the credential path;
// otherwise sudo reads the password we were given.
func Launch(opts Options) (*Session, error) {
	if desktopSession() {
		if agent := probeAgent(opts.Prompt); agent != nil {
			return launchOverFIFO(opts, func(tail []string) ([]string, error) {
				return append(agent, tail...), nil
			})
		}
	}
	return launchSudo(opts)
}

func desktopSession() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// probeAgent walks the known graphical privilege-prompt agents in order of
// preference and returns the argv prefix of the first one present.
func probeAgent(prompt string) []string {
	if agent := findExe("pkexec"); agent != nil {
		return agent
	}
	if agent := findExe("gksudo", "-k", "-D", prompt, "--"); agent != nil {
		return agent
	}
	if agent := findExe("kdesudo"); agent != nil {
		return agent
	}
	return nil
}
