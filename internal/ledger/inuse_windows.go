// SPDX-License-Identifier: MPL-2.0

//go:build windows

package ledger

import (
	"errors"

	"golang.org/x/sys/windows"
)

// fileInUse probes whether another process holds path open. Opening with an
// empty share mode demands exclusive access, which Windows refuses with a
// sharing violation while any other handle exists — exactly the condition
// under which deleting a runtime would corrupt its host process.
func fileInUse(path string) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		0, // no sharing: fail if anyone else has the file open
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return errors.Is(err, windows.ERROR_SHARING_VIOLATION)
	}
	_ = windows.CloseHandle(h)
	return false
}
