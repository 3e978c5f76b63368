package dxfeatures

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned when Direct3D is not available on the
// running operating system.
var ErrUnsupportedPlatform = errors.New("direct3d probing requires Windows")

// Handle is a platform object owned by the caller. Release must be called
// exactly once.
type Handle interface {
	Release()
}

// Factory enumerates display adapters (IDXGIFactory).
type Factory interface {
	Handle
	// EnumAdapter returns the adapter at index, or DXGI_ERROR_NOT_FOUND
	// past the last one.
	EnumAdapter(index uint32) (Adapter, HRESULT)
}

// Adapter is one enumerated display adapter (IDXGIAdapter1).
type Adapter interface {
	Handle
	Desc() (AdapterDesc, HRESULT)
}

// Runtime is the set of platform entry points the probers depend on.
// Implementations return nil handles whenever the status code is a failure.
type Runtime interface {
	// CreateD3D11Device creates a hardware device on the default adapter,
	// letting the runtime pick the first of levels it can satisfy.
	// It returns the granted level, the device and its immediate context.
	CreateD3D11Device(levels []FeatureLevel) (FeatureLevel, Handle, Handle, HRESULT)
	// CreateDXGIFactory creates an adapter-enumerating factory.
	CreateDXGIFactory() (Factory, HRESULT)
	// CreateD3D12Device creates a device on adapter at exactly minLevel.
	CreateD3D12Device(adapter Adapter, minLevel FeatureLevel) (Handle, HRESULT)
}

// AdapterDesc describes a display adapter (DXGI_ADAPTER_DESC1).
type AdapterDesc struct {
	Description           string `json:"description"`
	VendorID              uint32 `json:"vendor_id"`
	DeviceID              uint32 `json:"device_id"`
	SubSysID              uint32 `json:"subsys_id"`
	Revision              uint32 `json:"revision"`
	DedicatedVideoMemory  uint64 `json:"dedicated_video_memory"`
	DedicatedSystemMemory uint64 `json:"dedicated_system_memory"`
	SharedSystemMemory    uint64 `json:"shared_system_memory"`
	LUID                  int64  `json:"luid"`
	// Software is set for software rasterizers such as WARP.
	Software bool `json:"software"`
}

// PCI vendor IDs of common display adapter vendors.
const (
	VendorAMD       uint32 = 0x1002
	VendorNvidia    uint32 = 0x10de
	VendorIntel     uint32 = 0x8086
	VendorMicrosoft uint32 = 0x1414
	VendorQualcomm  uint32 = 0x5143
	VendorVMware    uint32 = 0x15ad
	VendorMatrox    uint32 = 0x102b
	VendorASPEED    uint32 = 0x1a03
)

var vendorNames = map[uint32]string{
	VendorAMD:       "AMD",
	VendorNvidia:    "Nvidia",
	VendorIntel:     "Intel",
	VendorMicrosoft: "Microsoft",
	VendorQualcomm:  "Qualcomm",
	VendorVMware:    "VMware",
	VendorMatrox:    "Matrox",
	VendorASPEED:    "ASPEED",
}

// VendorName returns the vendor name for a PCI vendor ID, or its hex form
// when the vendor is not known.
func VendorName(id uint32) string {
	if name, ok := vendorNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", id)
}

// scope releases tracked handles in reverse acquisition order.
type scope struct {
	handles []Handle
}

// track registers h for release. Nil handles are ignored, so a failed
// acquisition is never released.
func (s *scope) track(h Handle) {
	if h == nil {
		return
	}
	s.handles = append(s.handles, h)
}

func (s *scope) close() {
	for i := len(s.handles) - 1; i >= 0; i-- {
		s.handles[i].Release()
	}
	s.handles = nil
}
