//go:build !windows

package dxfeatures

// platformRuntime has nothing to offer outside Windows; use [WithRuntime]
// to supply entry points.
func platformRuntime() (Runtime, error) {
	return nil, ErrUnsupportedPlatform
}
