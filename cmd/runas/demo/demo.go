// Package demo exercises a full helper session end to end: spawn, ready
// handshake, a few proxied calls, clean shutdown. It doubles as the sample
// wiring for embedding the library in an application binary.
package demo

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"syscall"
	"time"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kochelmonster/runas"
	"github.com/kochelmonster/runas/internal/logutil"
)

// TargetName is the registry name shared by the parent and helper roles of
// this binary.
const TargetName = "demo"

// RegisterTarget installs the demo method set. main calls it before
// runas.RunHelper so both roles expose the same methods.
func RegisterTarget() {
	t := runas.NewTarget()
	t.MustRegister("IsRoot", func(args []any) (any, error) {
		return runas.HasRoot(), nil
	})
	t.MustRegister("WhoAmI", func(args []any) (any, error) {
		u, err := user.Current()
		if err != nil {
			return nil, err
		}
		return u.Username, nil
	})
	t.MustRegister("WriteFile", func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("WriteFile wants (path, content), got %d arguments", len(args))
		}
		path, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("WriteFile path must be a string")
		}
		content, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("WriteFile content must be a string")
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
		return len(content), nil
	})
	if err := runas.Register(TargetName, t); err != nil {
		panic(err)
	}
}

type options struct {
	user    string
	verbose bool
}

// NewCommand creates the demo command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "spawn an elevated helper and round-trip a few calls",
		Long: `Spawn an elevated helper process and invoke methods through it.

On a desktop session the OS privilege prompt handles authentication;
otherwise you are asked for the password of the target user.`,
		Example: `  # Run the round trip, elevating to root
  runas demo

  ## Elevate to a different user (credential path only)
  runas demo --user admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "root", "User to elevate to on the credential path")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func run(opts *options) error {
	logger := log.New(os.Stdout)
	if opts.verbose {
		logger.Level = log.DebugLevel
	}

	password, err := maybeAskPassword(opts.user)
	if err != nil {
		return err
	}

	proxy := runas.NewProxy(TargetName)
	proxy.Prompt = "runas demo needs administrator privileges"

	start := time.Now()
	logger.Info("starting elevated helper")
	if err := proxy.Start(opts.user, password); err != nil {
		return fmt.Errorf("starting helper: %w", err)
	}
	defer proxy.Terminate()
	logutil.LogDuration(logger, start)

	isRoot, err := proxy.Call("IsRoot")
	if err != nil {
		return fmt.Errorf("calling IsRoot: %w", err)
	}
	logger.WithField("is_root", isRoot).Info("helper privilege check")

	who, err := proxy.Call("WhoAmI")
	if err != nil {
		return fmt.Errorf("calling WhoAmI: %w", err)
	}
	logger.WithField("user", who).Info("helper identity")

	if err := proxy.Close(); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	logger.Info("session closed cleanly")
	return nil
}

// maybeAskPassword prompts for the credential path. Desktop sessions and
// Windows let the OS prompt own authentication, so no password is read.
func maybeAskPassword(user string) (string, error) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return "", nil
	}
	if os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" {
		return "", nil
	}
	if pass := os.Getenv("RUNAS_PASSWORD"); pass != "" {
		return pass, nil
	}
	fmt.Fprintf(os.Stderr, "password for %s: ", user)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}
