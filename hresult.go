package dxfeatures

import (
	"fmt"
	"syscall"
)

// HRESULT is a platform status code. The sign bit marks failure.
type HRESULT int32

const (
	S_OK                   HRESULT = 0
	S_FALSE                HRESULT = 1
	E_NOTIMPL              HRESULT = -0x7fffbfff // 0x80004001
	E_NOINTERFACE          HRESULT = -0x7fffbffe // 0x80004002
	E_FAIL                 HRESULT = -0x7fffbffb // 0x80004005
	E_INVALIDARG           HRESULT = -0x7ff8ffa9 // 0x80070057
	DXGI_ERROR_NOT_FOUND   HRESULT = -0x7785fffe // 0x887A0002
	DXGI_ERROR_UNSUPPORTED HRESULT = -0x7785fffc // 0x887A0004
)

// Failed reports whether h denotes failure.
func (h HRESULT) Failed() bool {
	return h < 0
}

// Succeeded reports whether h denotes success.
func (h HRESULT) Succeeded() bool {
	return h >= 0
}

// String renders h as eight uppercase hex digits, e.g. "0x887A0004".
func (h HRESULT) String() string {
	return fmt.Sprintf("0x%08X", uint32(h))
}

// MarshalText encodes h in its [HRESULT.String] form.
func (h HRESULT) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// HRESULTFromWin32 maps a Win32 error code to its FACILITY_WIN32 status code.
// Loader failures (missing DLL or entry point) surface this way.
func HRESULTFromWin32(errno syscall.Errno) HRESULT {
	if errno == 0 {
		return S_OK
	}
	return HRESULT(int32(uint32(errno)&0x0000ffff | 7<<16 | 0x80000000))
}
