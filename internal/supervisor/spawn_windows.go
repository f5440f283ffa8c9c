//go:build windows

package supervisor

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// detachedAttr hides the child's window and detaches it from the daemon's console.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// Personal.AI order the ending
