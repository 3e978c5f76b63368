package dxfeatures

// fakeHandle counts releases.
type fakeHandle struct {
	name     string
	releases int
}

func (h *fakeHandle) Release() { h.releases++ }

type fakeAdapter struct {
	fakeHandle
	desc   AdapterDesc
	descHR HRESULT
}

func (a *fakeAdapter) Desc() (AdapterDesc, HRESULT) {
	if a.descHR.Failed() {
		return AdapterDesc{}, a.descHR
	}
	return a.desc, a.descHR
}

type fakeFactory struct {
	fakeHandle
	adapters  []*fakeAdapter
	enumHR    HRESULT // returned for every index when failing
	enumCalls []uint32
}

func (f *fakeFactory) EnumAdapter(index uint32) (Adapter, HRESULT) {
	f.enumCalls = append(f.enumCalls, index)
	if f.enumHR.Failed() {
		return nil, f.enumHR
	}
	if int(index) >= len(f.adapters) {
		return nil, DXGI_ERROR_NOT_FOUND
	}
	return f.adapters[index], S_OK
}

// fakeRuntime grants up to d3d11Max/d3d12Max and records every call.
type fakeRuntime struct {
	d3d11Max FeatureLevel
	d3d11HR  HRESULT

	factory   *fakeFactory
	factoryHR HRESULT

	d3d12Max FeatureLevel
	// d3d12HR maps a level to the status returned for it when not granted.
	d3d12HR map[FeatureLevel]HRESULT

	d3d11Calls   int
	d3d11Offered []FeatureLevel
	d3d11Device  *fakeHandle
	d3d11Context *fakeHandle
	factoryCalls int
	d3d12Calls   map[FeatureLevel]int
	d3d12Order   []FeatureLevel
	d3d12Devices []*fakeHandle
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		d3d11Max: FeatureLevel11_1,
		factory: &fakeFactory{adapters: []*fakeAdapter{{
			fakeHandle: fakeHandle{name: "adapter0"},
			desc:       AdapterDesc{Description: "Fake GPU", VendorID: VendorNvidia, DedicatedVideoMemory: 8 << 30},
		}}},
		d3d12Max:   FeatureLevel12_1,
		d3d12Calls: map[FeatureLevel]int{},
	}
}

func (rt *fakeRuntime) CreateD3D11Device(levels []FeatureLevel) (FeatureLevel, Handle, Handle, HRESULT) {
	rt.d3d11Calls++
	rt.d3d11Offered = append([]FeatureLevel(nil), levels...)
	if rt.d3d11HR.Failed() {
		return 0, nil, nil, rt.d3d11HR
	}
	for _, l := range levels {
		if l <= rt.d3d11Max {
			rt.d3d11Device = &fakeHandle{name: "d3d11 device"}
			rt.d3d11Context = &fakeHandle{name: "d3d11 context"}
			return l, rt.d3d11Device, rt.d3d11Context, S_OK
		}
	}
	return 0, nil, nil, DXGI_ERROR_UNSUPPORTED
}

func (rt *fakeRuntime) CreateDXGIFactory() (Factory, HRESULT) {
	rt.factoryCalls++
	if rt.factoryHR.Failed() {
		return nil, rt.factoryHR
	}
	return rt.factory, S_OK
}

func (rt *fakeRuntime) CreateD3D12Device(_ Adapter, level FeatureLevel) (Handle, HRESULT) {
	rt.d3d12Calls[level]++
	rt.d3d12Order = append(rt.d3d12Order, level)
	if level > rt.d3d12Max {
		if hr, ok := rt.d3d12HR[level]; ok {
			return nil, hr
		}
		return nil, DXGI_ERROR_UNSUPPORTED
	}
	dev := &fakeHandle{name: "d3d12 device " + level.String()}
	rt.d3d12Devices = append(rt.d3d12Devices, dev)
	return dev, S_OK
}
