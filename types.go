package dxfeatures

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FeatureLevel is a Direct3D hardware feature level (D3D_FEATURE_LEVEL).
//
// Values are the platform constants, so the natural integer order is the
// capability order.
type FeatureLevel uint32

const (
	FeatureLevel9_1  FeatureLevel = 0x9100
	FeatureLevel9_2  FeatureLevel = 0x9200
	FeatureLevel9_3  FeatureLevel = 0x9300
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
	FeatureLevel12_2 FeatureLevel = 0xc200
)

// featureLevels lists every known level in ascending order.
var featureLevels = []struct {
	level FeatureLevel
	name  string
}{
	{FeatureLevel9_1, "9.1"},
	{FeatureLevel9_2, "9.2"},
	{FeatureLevel9_3, "9.3"},
	{FeatureLevel10_0, "10.0"},
	{FeatureLevel10_1, "10.1"},
	{FeatureLevel11_0, "11.0"},
	{FeatureLevel11_1, "11.1"},
	{FeatureLevel12_0, "12.0"},
	{FeatureLevel12_1, "12.1"},
	{FeatureLevel12_2, "12.2"},
}

// UnknownFeatureLevel is the name reported for values outside the enumeration.
const UnknownFeatureLevel = "Unknown"

// D3D11Candidates are offered to D3D11CreateDevice, highest first.
var D3D11Candidates = []FeatureLevel{
	FeatureLevel12_1,
	FeatureLevel12_0,
	FeatureLevel11_1,
	FeatureLevel11_0,
	FeatureLevel10_1,
	FeatureLevel10_0,
	FeatureLevel9_3,
	FeatureLevel9_2,
	FeatureLevel9_1,
}

// D3D12Candidates are tried one by one against D3D12CreateDevice, highest first.
// D3D12 has no 9.x or 10.x device support.
var D3D12Candidates = []FeatureLevel{
	FeatureLevel12_2,
	FeatureLevel12_1,
	FeatureLevel12_0,
	FeatureLevel11_1,
	FeatureLevel11_0,
}

func (l FeatureLevel) String() string {
	for _, fl := range featureLevels {
		if fl.level == l {
			return fl.name
		}
	}
	return UnknownFeatureLevel
}

// IsKnown reports whether l is one of the enumerated feature levels.
func (l FeatureLevel) IsKnown() bool {
	return l.String() != UnknownFeatureLevel
}

// Hex returns the platform constant in the 0x-prefixed lowercase form
// used in reports (e.g. "0xb100").
func (l FeatureLevel) Hex() string {
	return fmt.Sprintf("0x%x", uint32(l))
}

// MarshalText encodes l as its display name.
func (l FeatureLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a name or hex constant.
func (l *FeatureLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseFeatureLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseFeatureLevel parses "12.1" or "0xc100" into a known [FeatureLevel].
func ParseFeatureLevel(s string) (FeatureLevel, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err == nil && FeatureLevel(v).IsKnown() {
			return FeatureLevel(v), nil
		}
		return 0, fmt.Errorf("unknown feature level: %q", s)
	}
	for _, fl := range featureLevels {
		if fl.name == s {
			return fl.level, nil
		}
	}
	return 0, fmt.Errorf("unknown feature level: %q", s)
}

// FeatureLevelValues returns every known feature level in ascending order.
func FeatureLevelValues() []FeatureLevel {
	values := make([]FeatureLevel, 0, len(featureLevels))
	for _, fl := range featureLevels {
		values = append(values, fl.level)
	}
	return values
}

// FeatureLevelNames returns the display names of [FeatureLevelValues].
func FeatureLevelNames() []string {
	names := make([]string, 0, len(featureLevels))
	for _, fl := range featureLevels {
		names = append(names, fl.name)
	}
	return names
}

// API selects a Direct3D runtime to probe.
type API int

const (
	// APID3D11 probes the Direct3D 11 runtime.
	APID3D11 API = iota
	// APID3D12 probes the Direct3D 12 runtime.
	APID3D12
)

var apiNames = map[API]string{
	APID3D11: "d3d11",
	APID3D12: "d3d12",
}

func (a API) String() string {
	if name, ok := apiNames[a]; ok {
		return name
	}
	return fmt.Sprintf("API(%d)", a)
}

// Title returns the section label used in reports ("D3D11", "D3D12").
func (a API) Title() string {
	return strings.ToUpper(a.String())
}

// APIValues returns the supported APIs in probing order.
func APIValues() []API {
	return []API{APID3D11, APID3D12}
}

// APINames returns the flag names of [APIValues].
func APINames() []string {
	names := make([]string, 0, len(apiNames))
	for _, a := range APIValues() {
		names = append(names, a.String())
	}
	return names
}

// Op identifies the platform call a status code came from.
type Op int

const (
	OpD3D11CreateDevice Op = iota
	OpCreateDXGIFactory
	OpEnumAdapters
	OpD3D12CreateDevice
)

var opNames = map[Op]string{
	OpD3D11CreateDevice: "D3D11CreateDevice",
	OpCreateDXGIFactory: "CreateDXGIFactory1",
	OpEnumAdapters:      "IDXGIFactory1::EnumAdapters1",
	OpD3D12CreateDevice: "D3D12CreateDevice",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", o)
}

// StatusError is a failed platform call and its raw status code.
type StatusError struct {
	Op   Op
	Code HRESULT
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HRESULT %s", e.Op, e.Code)
}

// Attempt is one D3D12CreateDevice call made by the descending probe loop.
type Attempt struct {
	Level  FeatureLevel `json:"level"`
	Status HRESULT      `json:"status"`
}

// ProbeResult is the outcome of probing one Direct3D runtime.
type ProbeResult struct {
	API API
	// Supported is true when a device was created.
	Supported bool
	// Level is the highest granted feature level. Zero unless Supported.
	Level FeatureLevel
	// Error is a *StatusError when no device could be created.
	Error error
	// Attempts lists D3D12 device creations in the order they were made.
	Attempts []Attempt
	// Adapter describes the probed D3D12 adapter, when it could be read.
	Adapter *AdapterDesc
}

// Status returns the failing status code, or S_OK if the probe succeeded.
func (r *ProbeResult) Status() HRESULT {
	var se *StatusError
	if errors.As(r.Error, &se) {
		return se.Code
	}
	return S_OK
}

// Report aggregates the results of one probe run.
type Report struct {
	D3D11 *ProbeResult
	D3D12 *ProbeResult
}

// Result returns the result for api, or nil if it was not probed.
func (r *Report) Result(api API) *ProbeResult {
	switch api {
	case APID3D11:
		return r.D3D11
	case APID3D12:
		return r.D3D12
	default:
		return nil
	}
}

// LevelError reports an unmet [Requirement].
type LevelError struct {
	API      API
	Required FeatureLevel
	Got      FeatureLevel
	Reason   string
	Err      error
}

func (e *LevelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s feature level %s: %s: %v", e.API.Title(), e.Required, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s feature level %s: %s", e.API.Title(), e.Required, e.Reason)
}

func (e *LevelError) Unwrap() error {
	return e.Err
}
