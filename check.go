package dxfeatures

import (
	"errors"
	"fmt"
)

// Check probes the runtimes named by required and returns a *[LevelError]
// for the first unmet requirement, or nil if all are met.
// Duplicate requirements for the same runtime collapse to the strictest one.
func Check(required []Requirement, opts ...ProbeOption) error {
	reqs := normalizeRequirements(required)
	if len(reqs) == 0 {
		return fmt.Errorf("no requirements specified")
	}

	apis := make([]API, 0, len(reqs))
	for _, r := range reqs {
		apis = append(apis, r.API)
	}
	opts = append(opts, WithAPIs(apis...))

	report, err := ProbeWith(opts...)
	if err != nil {
		return fmt.Errorf("probe direct3d: %w", err)
	}

	for _, req := range reqs {
		result := report.Result(req.API)
		if result == nil {
			return &LevelError{API: req.API, Required: req.MinLevel, Reason: "unknown API"}
		}
		if !result.Supported {
			return &LevelError{
				API:      req.API,
				Required: req.MinLevel,
				Reason:   Diagnose(result),
				Err:      result.Error,
			}
		}
		if result.Level < req.MinLevel {
			return &LevelError{
				API:      req.API,
				Required: req.MinLevel,
				Got:      result.Level,
				Reason:   fmt.Sprintf("adapter supports %s (%s)", result.Level, result.Level.Hex()),
			}
		}
	}
	return nil
}

// Diagnose returns a human-readable reason for a failed probe and what the
// operator can check.
func Diagnose(r *ProbeResult) string {
	if r == nil || r.Supported {
		return "supported"
	}
	var op Op = -1
	var se *StatusError
	if errors.As(r.Error, &se) {
		op = se.Op
	}

	switch r.Status() {
	case DXGI_ERROR_NOT_FOUND:
		if op == OpEnumAdapters {
			return "no display adapter at the requested index"
		}
	case DXGI_ERROR_UNSUPPORTED:
		return "no feature level supported by the adapter or driver; update the graphics driver"
	case E_INVALIDARG:
		if op == OpD3D11CreateDevice {
			return "runtime rejected the candidate levels; Direct3D 11.1 runtime may be missing"
		}
	case E_NOINTERFACE:
		if op == OpCreateDXGIFactory {
			return "DXGI 1.4 not available; requires Windows 10 or later"
		}
	}

	switch op {
	case OpCreateDXGIFactory:
		return "failed to create DXGI factory"
	case OpEnumAdapters:
		return "failed to enumerate adapters"
	case OpD3D11CreateDevice, OpD3D12CreateDevice:
		return "failed to create device"
	}
	if r.Error != nil {
		return r.Error.Error()
	}
	return "not supported"
}
