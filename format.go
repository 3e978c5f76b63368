package dxfeatures

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// String returns the console report: one section per probed runtime,
// D3D11 first, sections separated by a blank line.
func (r *Report) String() string {
	var b strings.Builder

	first := true
	for _, api := range APIValues() {
		result := r.Result(api)
		if result == nil {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		writeSection(&b, result)
	}

	return b.String()
}

// WriteTo writes the console report to w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	return int64(n), err
}

func writeSection(b *strings.Builder, r *ProbeResult) {
	title := r.API.Title()
	fmt.Fprintf(b, "=== %s ===\n", title)

	if r.Supported {
		fmt.Fprintf(b, "%s Device created successfully!\n", title)
		fmt.Fprintf(b, "Feature Level: %s (%s)\n", r.Level, r.Level.Hex())
		return
	}

	fmt.Fprintf(b, "%s HRESULT: %s\n", failureMessage(r), r.Status())
}

func failureMessage(r *ProbeResult) string {
	var se *StatusError
	if errors.As(r.Error, &se) {
		switch se.Op {
		case OpCreateDXGIFactory:
			return "Failed to create DXGI factory."
		case OpEnumAdapters:
			return "Failed to enumerate adapters."
		}
	}
	return fmt.Sprintf("Failed to create %s device.", r.API.Title())
}
