//go:build windows

package dxfeatures

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	d3d11DLL = windows.NewLazySystemDLL("d3d11.dll")
	d3d12DLL = windows.NewLazySystemDLL("d3d12.dll")
	dxgiDLL  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D11CreateDevice  = d3d11DLL.NewProc("D3D11CreateDevice")
	procD3D12CreateDevice  = d3d12DLL.NewProc("D3D12CreateDevice")
	procCreateDXGIFactory1 = dxgiDLL.NewProc("CreateDXGIFactory1")
)

const (
	d3dDriverTypeHardware   = 1
	d3d11SDKVersion         = 7
	dxgiAdapterFlagSoftware = 0x2
)

var (
	iidIDXGIFactory4 = windows.GUID{Data1: 0x1bc6ea02, Data2: 0xef36, Data3: 0x464f, Data4: [8]byte{0xbf, 0x0c, 0x21, 0xca, 0x39, 0xe5, 0x16, 0x8a}}
	iidID3D12Device  = windows.GUID{Data1: 0x189819f1, Data2: 0x1db6, Data3: 0x4b57, Data4: [8]byte{0xbe, 0x54, 0x18, 0x21, 0x33, 0x9b, 0x85, 0xf7}}
)

type iUnknownVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

type iUnknown struct {
	vtbl *iUnknownVtbl
}

type iDXGIObjectVtbl struct {
	iUnknownVtbl

	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	GetPrivateData          uintptr
	GetParent               uintptr
}

type iDXGIFactory1Vtbl struct {
	iDXGIObjectVtbl

	EnumAdapters          uintptr
	MakeWindowAssociation uintptr
	GetWindowAssociation  uintptr
	CreateSwapChain       uintptr
	CreateSoftwareAdapter uintptr
	EnumAdapters1         uintptr
	IsCurrent             uintptr
}

type iDXGIFactory1 struct {
	vtbl *iDXGIFactory1Vtbl
}

type iDXGIAdapter1Vtbl struct {
	iDXGIObjectVtbl

	EnumOutputs           uintptr
	GetDesc               uintptr
	CheckInterfaceSupport uintptr
	GetDesc1              uintptr
}

type iDXGIAdapter1 struct {
	vtbl *iDXGIAdapter1Vtbl
}

// dxgiAdapterDesc1 matches DXGI_ADAPTER_DESC1.
type dxgiAdapterDesc1 struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLUID           windows.LUID
	Flags                 uint32
}

func hresult(r uintptr) HRESULT {
	return HRESULT(int32(uint32(r)))
}

// loadStatus reports why an entry point cannot be called, or S_OK.
func loadStatus(proc *windows.LazyProc) HRESULT {
	err := proc.Find()
	if err == nil {
		return S_OK
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return HRESULTFromWin32(errno)
	}
	return E_FAIL
}

// comHandle releases a COM object at most once.
type comHandle struct {
	obj *iUnknown
}

func (h *comHandle) Release() {
	if h.obj == nil {
		return
	}
	syscall.SyscallN(h.obj.vtbl.Release, uintptr(unsafe.Pointer(h.obj)))
	h.obj = nil
}

func newHandle(obj *iUnknown) Handle {
	if obj == nil {
		return nil
	}
	return &comHandle{obj: obj}
}

type factoryHandle struct {
	comHandle
	factory *iDXGIFactory1
}

func (f *factoryHandle) EnumAdapter(index uint32) (Adapter, HRESULT) {
	var adapter *iDXGIAdapter1
	r, _, _ := syscall.SyscallN(
		f.factory.vtbl.EnumAdapters1,
		uintptr(unsafe.Pointer(f.factory)),
		uintptr(index),
		uintptr(unsafe.Pointer(&adapter)),
	)
	hr := hresult(r)
	if hr.Failed() {
		return nil, hr
	}
	if adapter == nil {
		return nil, E_FAIL
	}
	return &adapterHandle{
		comHandle: comHandle{obj: (*iUnknown)(unsafe.Pointer(adapter))},
		adapter:   adapter,
	}, hr
}

type adapterHandle struct {
	comHandle
	adapter *iDXGIAdapter1
}

func (a *adapterHandle) Desc() (AdapterDesc, HRESULT) {
	var d dxgiAdapterDesc1
	r, _, _ := syscall.SyscallN(
		a.adapter.vtbl.GetDesc1,
		uintptr(unsafe.Pointer(a.adapter)),
		uintptr(unsafe.Pointer(&d)),
	)
	hr := hresult(r)
	if hr.Failed() {
		return AdapterDesc{}, hr
	}
	return AdapterDesc{
		Description:           windows.UTF16ToString(d.Description[:]),
		VendorID:              d.VendorID,
		DeviceID:              d.DeviceID,
		SubSysID:              d.SubSysID,
		Revision:              d.Revision,
		DedicatedVideoMemory:  uint64(d.DedicatedVideoMemory),
		DedicatedSystemMemory: uint64(d.DedicatedSystemMemory),
		SharedSystemMemory:    uint64(d.SharedSystemMemory),
		LUID:                  int64(d.AdapterLUID.HighPart)<<32 | int64(d.AdapterLUID.LowPart),
		Software:              d.Flags&dxgiAdapterFlagSoftware != 0,
	}, hr
}

// windowsRuntime calls the system Direct3D and DXGI libraries.
type windowsRuntime struct{}

func platformRuntime() (Runtime, error) {
	return windowsRuntime{}, nil
}

func (windowsRuntime) CreateD3D11Device(levels []FeatureLevel) (FeatureLevel, Handle, Handle, HRESULT) {
	if hr := loadStatus(procD3D11CreateDevice); hr.Failed() {
		return 0, nil, nil, hr
	}
	if len(levels) == 0 {
		return 0, nil, nil, E_INVALIDARG
	}

	var (
		device  *iUnknown
		context *iUnknown
		granted FeatureLevel
	)
	r, _, _ := procD3D11CreateDevice.Call(
		0,                                   // pAdapter: default
		d3dDriverTypeHardware,               // DriverType
		0,                                   // Software
		0,                                   // Flags
		uintptr(unsafe.Pointer(&levels[0])), // pFeatureLevels
		uintptr(len(levels)),                // FeatureLevels
		d3d11SDKVersion,                     // SDKVersion
		uintptr(unsafe.Pointer(&device)),    // ppDevice
		uintptr(unsafe.Pointer(&granted)),   // pFeatureLevel
		uintptr(unsafe.Pointer(&context)),   // ppImmediateContext
	)
	hr := hresult(r)
	if hr.Failed() {
		return 0, nil, nil, hr
	}
	return granted, newHandle(device), newHandle(context), hr
}

func (windowsRuntime) CreateDXGIFactory() (Factory, HRESULT) {
	if hr := loadStatus(procCreateDXGIFactory1); hr.Failed() {
		return nil, hr
	}

	var factory *iDXGIFactory1
	r, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(&iidIDXGIFactory4)),
		uintptr(unsafe.Pointer(&factory)),
	)
	hr := hresult(r)
	if hr.Failed() {
		return nil, hr
	}
	if factory == nil {
		return nil, E_FAIL
	}
	return &factoryHandle{
		comHandle: comHandle{obj: (*iUnknown)(unsafe.Pointer(factory))},
		factory:   factory,
	}, hr
}

func (windowsRuntime) CreateD3D12Device(adapter Adapter, minLevel FeatureLevel) (Handle, HRESULT) {
	if hr := loadStatus(procD3D12CreateDevice); hr.Failed() {
		return nil, hr
	}
	a, ok := adapter.(*adapterHandle)
	if !ok || a.adapter == nil {
		return nil, E_INVALIDARG
	}

	var device *iUnknown
	r, _, _ := procD3D12CreateDevice.Call(
		uintptr(unsafe.Pointer(a.adapter)),
		uintptr(minLevel),
		uintptr(unsafe.Pointer(&iidID3D12Device)),
		uintptr(unsafe.Pointer(&device)),
	)
	hr := hresult(r)
	if hr.Failed() {
		return nil, hr
	}
	return newHandle(device), hr
}
