// Package runas runs selected operations with elevated privileges by
// spawning a helper process under the operating system's native elevation
// mechanism and proxying method calls to it over a private, length-framed
// channel.
//
// The calling process never executes application logic with elevated
// rights itself. It registers a named Target (an explicit, compile-time
// set of methods), starts a Proxy, and invokes methods through it. The
// helper is the same binary re-executed under sudo, a graphical privilege
// prompt agent, the macOS administrator-privileges script facility or the
// Windows "runas" verb; it dispatches each call against its own copy of
// the target and writes the result back.
//
//	func main() {
//		target := runas.NewTarget()
//		target.MustRegister("InstallVersion", installVersion)
//		runas.Register("updater", target)
//		runas.RunHelper() // become the helper when re-executed elevated
//
//		proxy := runas.NewProxy("updater")
//		if err := proxy.Start("root", password); err != nil {
//			// runas.ErrWrongCredentials, runas.ErrNoElevationMechanism, ...
//		}
//		defer proxy.Terminate()
//		result, err := proxy.Call("InstallVersion", "1.2.3")
//		...
//	}
//
// A proxy session is strictly synchronous: one outstanding call at a time,
// no built-in timeouts, no multiplexing. Callers needing a deadline wrap
// the blocking call with an external watchdog that triggers Terminate.
//
// The package also answers two session-independent questions: HasRoot
// (already elevated?) and CanGetRoot (elevation plausible?).
package runas
