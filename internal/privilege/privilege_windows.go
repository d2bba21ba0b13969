//go:build windows

package privilege

import "golang.org/x/sys/windows"

func adminSid() (*windows.SID, error) {
	return windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
}

func hasRoot() bool {
	sid, err := adminSid()
	if err != nil {
		return false
	}
	member, err := windows.GetCurrentProcessToken().IsMember(sid)
	return err == nil && member
}

func canGetRoot() bool {
	if hasRoot() {
		return true
	}
	sid, err := adminSid()
	if err != nil {
		return false
	}
	// UAC split-token model: a filtered standard-user token may link to a
	// full administrator token. Failure to get one means there is no
	// split-token session, which we report as "cannot determine" = false.
	linked, err := windows.GetCurrentProcessToken().GetLinkedToken()
	if err != nil {
		return false
	}
	defer linked.Close()
	member, err := linked.IsMember(sid)
	return err == nil && member
}
