//go:build !windows

package supervisor

import "syscall"

// detachedAttr starts the child in its own session so terminal signals
// sent to the daemon do not reach it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// Personal.AI order the ending
