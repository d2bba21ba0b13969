// Package privilege answers two questions callers ask before spawning a
// helper: does this process already run with elevated rights, and could it
// plausibly obtain them. Both checks are synchronous, session-independent
// and never prompt.
package privilege

// HasRoot reports whether the current process already has elevated rights:
// superuser effective uid on POSIX, BUILTIN\Administrators membership of
// the process token on Windows. A standard-user process whose token merely
// links to an administrator token is not elevated, only elevation-capable.
func HasRoot() bool {
	return hasRoot()
}

// CanGetRoot reports whether the current process could plausibly obtain
// elevated rights. On POSIX this is always true: there is no reliable way
// to inspect the authorization policy from outside. On Windows it is true
// when either the direct or the UAC-linked token carries the
// administrators identity; without a split-token session the answer is
// "cannot determine", reported as false rather than an error.
func CanGetRoot() bool {
	return canGetRoot()
}
