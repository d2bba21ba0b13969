//go:build windows

package windowsexec

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/caarlos0/log"
	"golang.org/x/sys/windows"
)

//go:generate go run golang.org/x/sys/windows/mkwinsyscall -output zsyscall_windows.go exec.go
//sys shellExecuteExW(info *shellExecuteInfoW) (err error) [failretval==0] = shell32.ShellExecuteExW

// shellExecuteInfoW is the input/output struct for ShellExecuteExW.
// See: https://learn.microsoft.com/en-us/windows/win32/api/shellapi/ns-shellapi-shellexecuteinfow
type shellExecuteInfoW struct {
	cbSize         uint32
	fMask          uint32
	hwnd           windows.Handle
	lpVerb         uintptr
	lpFile         uintptr
	lpParameters   uintptr
	lpDirectory    uintptr
	nShow          int
	hInstApp       windows.Handle
	lpIDList       uintptr
	lpClass        uintptr
	hkeyClass      windows.Handle
	dwHotKey       uint32
	hIconOrMonitor windows.Handle
	hProcess       windows.Handle
}

const (
	// SEE_MASK_NOCLOSEPROCESS (0x00000040):
	// the hProcess member receives the handle of the created process. The
	// caller owns the handle and must close it.
	SEE_MASK_NOCLOSEPROCESS = 0x40
	// SEE_MASK_NOASYNC (0x00000100):
	// complete the ShellExecuteEx call before returning, so the handle is
	// valid when we get it.
	SEE_MASK_NOASYNC = 0x100
)

// RunAs creates a new process through the shell "runas" verb, which raises
// the UAC consent prompt. It returns the process handle without waiting for
// the process to exit; the caller owns the handle (terminate it with
// TerminateProcess, reap it with WaitForSingleObject, close it when done).
//
// The verb gives us no shell job object and no std handles, only the bare
// process handle, which is all the launcher needs.
func RunAs(file, directory string, parameters []string) (windows.Handle, error) {
	lpVerb, err := windows.UTF16PtrFromString("runas")
	if err != nil {
		return 0, fmt.Errorf("converting verb to ptr: %w", err)
	}
	lpFile, err := windows.UTF16PtrFromString(file)
	if err != nil {
		return 0, fmt.Errorf("converting file to ptr: %w", err)
	}
	lpDirectory, err := windows.UTF16PtrFromString(directory)
	if err != nil {
		return 0, fmt.Errorf("converting directory to ptr: %w", err)
	}
	lpParameters, err := windows.UTF16PtrFromString(strings.Join(parameters, " "))
	if err != nil {
		return 0, fmt.Errorf("converting parameters to ptr: %w", err)
	}

	info := &shellExecuteInfoW{
		fMask:        SEE_MASK_NOCLOSEPROCESS | SEE_MASK_NOASYNC,
		lpVerb:       uintptr(unsafe.Pointer(lpVerb)),
		lpFile:       uintptr(unsafe.Pointer(lpFile)),
		lpParameters: uintptr(unsafe.Pointer(lpParameters)),
		lpDirectory:  uintptr(unsafe.Pointer(lpDirectory)),
		nShow:        windows.SW_HIDE,
	}
	info.cbSize = uint32(unsafe.Sizeof(*info))

	if err := shellExecuteExW(info); err != nil {
		log.Debugf("shellExecuteExW failed: %v (hInstApp=%d)", err, info.hInstApp)
		return 0, fmt.Errorf("calling shellExecuteExW: %w", err)
	}
	if info.hProcess == 0 {
		return 0, fmt.Errorf("unexpected null hProcess handle from shellExecuteExW")
	}
	return info.hProcess, nil
}
