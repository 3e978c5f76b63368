package dxfeatures

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProbeD3D11(t *testing.T) {
	t.Run("granted level is reported and handles released once", func(t *testing.T) {
		rt := newFakeRuntime()

		r := probeD3D11(rt, zap.NewNop())
		if !r.Supported {
			t.Fatalf("Supported = false, error = %v", r.Error)
		}
		if r.Level != FeatureLevel11_1 {
			t.Errorf("Level = %s, want 11.1", r.Level)
		}
		if !slices.Contains(D3D11Candidates, r.Level) {
			t.Errorf("Level %s not in D3D11 candidates", r.Level)
		}
		if rt.d3d11Calls != 1 {
			t.Errorf("CreateD3D11Device called %d times, want 1", rt.d3d11Calls)
		}
		if !slices.Equal(rt.d3d11Offered, D3D11Candidates) {
			t.Errorf("offered %v, want %v", rt.d3d11Offered, D3D11Candidates)
		}
		if rt.d3d11Device.releases != 1 {
			t.Errorf("device released %d times, want 1", rt.d3d11Device.releases)
		}
		if rt.d3d11Context.releases != 1 {
			t.Errorf("context released %d times, want 1", rt.d3d11Context.releases)
		}
	})

	t.Run("failure carries status code and is not retried", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.d3d11HR = E_FAIL

		r := probeD3D11(rt, zap.NewNop())
		if r.Supported {
			t.Fatal("Supported = true, want false")
		}
		var se *StatusError
		if !errors.As(r.Error, &se) {
			t.Fatalf("Error = %v, want *StatusError", r.Error)
		}
		if se.Op != OpD3D11CreateDevice || se.Code != E_FAIL {
			t.Errorf("StatusError = %+v, want D3D11CreateDevice/E_FAIL", se)
		}
		if r.Status() != E_FAIL {
			t.Errorf("Status() = %s, want %s", r.Status(), E_FAIL)
		}
		if rt.d3d11Calls != 1 {
			t.Errorf("CreateD3D11Device called %d times, want 1", rt.d3d11Calls)
		}
	})
}

func TestProbeD3D12_StopsAtFirstSuccess(t *testing.T) {
	rt := newFakeRuntime()
	rt.d3d12Max = FeatureLevel12_0

	r := probeD3D12(rt, 0, zap.NewNop())
	if !r.Supported {
		t.Fatalf("Supported = false, error = %v", r.Error)
	}
	if r.Level != FeatureLevel12_0 {
		t.Errorf("Level = %s, want 12.0", r.Level)
	}
	if r.Error != nil {
		t.Errorf("Error = %v, want nil after success", r.Error)
	}

	wantOrder := []FeatureLevel{FeatureLevel12_2, FeatureLevel12_1, FeatureLevel12_0}
	if !slices.Equal(rt.d3d12Order, wantOrder) {
		t.Errorf("attempt order = %v, want %v", rt.d3d12Order, wantOrder)
	}
	for _, lower := range []FeatureLevel{FeatureLevel11_1, FeatureLevel11_0} {
		if n := rt.d3d12Calls[lower]; n != 0 {
			t.Errorf("level %s attempted %d times after success, want 0", lower, n)
		}
	}
	if len(r.Attempts) != len(wantOrder) {
		t.Fatalf("Attempts = %v, want %d entries", r.Attempts, len(wantOrder))
	}
	if r.Attempts[2].Status != S_OK || r.Attempts[0].Status != DXGI_ERROR_UNSUPPORTED {
		t.Errorf("Attempts = %v", r.Attempts)
	}

	if len(rt.d3d12Devices) != 1 || rt.d3d12Devices[0].releases != 1 {
		t.Errorf("probe device not released exactly once: %+v", rt.d3d12Devices)
	}
	adapter := rt.factory.adapters[0]
	if adapter.releases != 1 {
		t.Errorf("adapter released %d times, want 1", adapter.releases)
	}
	if rt.factory.releases != 1 {
		t.Errorf("factory released %d times, want 1", rt.factory.releases)
	}
	if r.Adapter == nil || r.Adapter.Description != "Fake GPU" {
		t.Errorf("Adapter = %+v, want Fake GPU", r.Adapter)
	}
}

func TestProbeD3D12_FactoryFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.factoryHR = E_NOINTERFACE

	r := probeD3D12(rt, 0, zap.NewNop())
	if r.Supported {
		t.Fatal("Supported = true, want false")
	}
	var se *StatusError
	if !errors.As(r.Error, &se) || se.Op != OpCreateDXGIFactory || se.Code != E_NOINTERFACE {
		t.Fatalf("Error = %v, want CreateDXGIFactory1 E_NOINTERFACE", r.Error)
	}
	if len(rt.factory.enumCalls) != 0 {
		t.Errorf("EnumAdapter called %d times, want 0", len(rt.factory.enumCalls))
	}
	if len(rt.d3d12Order) != 0 {
		t.Errorf("CreateD3D12Device called %d times, want 0", len(rt.d3d12Order))
	}
	if rt.factory.releases != 0 {
		t.Errorf("factory released %d times, want 0", rt.factory.releases)
	}
}

func TestProbeD3D12_AdapterFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.factory.enumHR = DXGI_ERROR_NOT_FOUND

	r := probeD3D12(rt, 0, zap.NewNop())
	var se *StatusError
	if !errors.As(r.Error, &se) || se.Op != OpEnumAdapters || se.Code != DXGI_ERROR_NOT_FOUND {
		t.Fatalf("Error = %v, want EnumAdapters1 DXGI_ERROR_NOT_FOUND", r.Error)
	}
	if len(rt.d3d12Order) != 0 {
		t.Errorf("CreateD3D12Device called %d times, want 0", len(rt.d3d12Order))
	}
	if rt.factory.releases != 1 {
		t.Errorf("factory released %d times, want 1", rt.factory.releases)
	}
	if rt.factory.adapters[0].releases != 0 {
		t.Errorf("adapter released %d times, want 0", rt.factory.adapters[0].releases)
	}
}

func TestProbeD3D12_AllLevelsFail(t *testing.T) {
	rt := newFakeRuntime()
	rt.d3d12Max = 0
	rt.d3d12HR = map[FeatureLevel]HRESULT{
		FeatureLevel12_2: DXGI_ERROR_UNSUPPORTED,
		FeatureLevel12_1: DXGI_ERROR_UNSUPPORTED,
		FeatureLevel12_0: DXGI_ERROR_UNSUPPORTED,
		FeatureLevel11_1: DXGI_ERROR_UNSUPPORTED,
		FeatureLevel11_0: E_INVALIDARG,
	}

	r := probeD3D12(rt, 0, zap.NewNop())
	if r.Supported {
		t.Fatal("Supported = true, want false")
	}
	if r.Status() != E_INVALIDARG {
		t.Errorf("Status() = %s, want status of the 11.0 attempt %s", r.Status(), E_INVALIDARG)
	}
	if !slices.Equal(rt.d3d12Order, D3D12Candidates) {
		t.Errorf("attempt order = %v, want %v", rt.d3d12Order, D3D12Candidates)
	}
	for _, l := range D3D12Candidates {
		if rt.d3d12Calls[l] != 1 {
			t.Errorf("level %s attempted %d times, want 1", l, rt.d3d12Calls[l])
		}
	}
	if r.Adapter != nil {
		t.Errorf("Adapter = %+v, want nil on failure", r.Adapter)
	}
	if rt.factory.adapters[0].releases != 1 || rt.factory.releases != 1 {
		t.Errorf("releases adapter=%d factory=%d, want 1 each",
			rt.factory.adapters[0].releases, rt.factory.releases)
	}
}

func TestProbeD3D12_AdapterIndex(t *testing.T) {
	rt := newFakeRuntime()
	rt.factory.adapters = append(rt.factory.adapters, &fakeAdapter{
		desc: AdapterDesc{Description: "Second GPU", VendorID: VendorIntel},
	})

	report, err := ProbeWith(WithRuntime(rt), WithD3D12(), WithAdapterIndex(1))
	if err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}
	if got := rt.factory.enumCalls; !slices.Equal(got, []uint32{1}) {
		t.Errorf("EnumAdapter indexes = %v, want [1]", got)
	}
	if report.D3D12.Adapter == nil || report.D3D12.Adapter.Description != "Second GPU" {
		t.Errorf("Adapter = %+v, want Second GPU", report.D3D12.Adapter)
	}
	if rt.factory.adapters[1].releases != 1 {
		t.Errorf("adapter released %d times, want 1", rt.factory.adapters[1].releases)
	}
}

func TestProbeWith_Selection(t *testing.T) {
	tests := []struct {
		name      string
		opts      []ProbeOption
		wantD3D11 bool
		wantD3D12 bool
	}{
		{"default probes both", nil, true, true},
		{"all", []ProbeOption{WithAll()}, true, true},
		{"d3d11 only", []ProbeOption{WithD3D11()}, true, false},
		{"d3d12 only", []ProbeOption{WithD3D12()}, false, true},
		{"apis", []ProbeOption{WithAPIs(APID3D12, APID3D11)}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRuntime()
			report, err := ProbeWith(append(tt.opts, WithRuntime(rt))...)
			if err != nil {
				t.Fatalf("ProbeWith() error = %v", err)
			}
			if (report.D3D11 != nil) != tt.wantD3D11 {
				t.Errorf("D3D11 probed = %v, want %v", report.D3D11 != nil, tt.wantD3D11)
			}
			if (report.D3D12 != nil) != tt.wantD3D12 {
				t.Errorf("D3D12 probed = %v, want %v", report.D3D12 != nil, tt.wantD3D12)
			}
			if got := rt.d3d11Calls; (got == 1) != tt.wantD3D11 {
				t.Errorf("CreateD3D11Device calls = %d", got)
			}
			if got := rt.factoryCalls; (got == 1) != tt.wantD3D12 {
				t.Errorf("CreateDXGIFactory calls = %d", got)
			}
		})
	}
}

func TestProbeWith_Logger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rt := newFakeRuntime()
	rt.d3d12Max = FeatureLevel11_1

	if _, err := ProbeWith(WithRuntime(rt), WithLogger(zap.New(core))); err != nil {
		t.Fatalf("ProbeWith() error = %v", err)
	}

	if n := logs.FilterMessage("D3D11CreateDevice").Len(); n != 1 {
		t.Errorf("D3D11CreateDevice logged %d times, want 1", n)
	}
	attempts := logs.FilterMessage("D3D12CreateDevice").All()
	if len(attempts) != 4 {
		t.Fatalf("D3D12CreateDevice logged %d times, want 4", len(attempts))
	}
	last := attempts[len(attempts)-1].ContextMap()
	if last["level"] != "11.1" || last["hresult"] != "0x00000000" {
		t.Errorf("last attempt fields = %v", last)
	}
}

func TestAdapters(t *testing.T) {
	rt := newFakeRuntime()
	rt.factory.adapters = append(rt.factory.adapters,
		&fakeAdapter{descHR: E_FAIL},
		&fakeAdapter{desc: AdapterDesc{Description: "Microsoft Basic Render Driver", VendorID: VendorMicrosoft, Software: true}},
	)

	descs, err := Adapters(WithRuntime(rt))
	if err != nil {
		t.Fatalf("Adapters() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("got %d adapters, want 2 (unreadable one skipped)", len(descs))
	}
	if descs[0].Description != "Fake GPU" || !descs[1].Software {
		t.Errorf("descs = %+v", descs)
	}
	if got := rt.factory.enumCalls; !slices.Equal(got, []uint32{0, 1, 2, 3}) {
		t.Errorf("EnumAdapter indexes = %v, want [0 1 2 3]", got)
	}
	for i, a := range rt.factory.adapters {
		if a.releases != 1 {
			t.Errorf("adapter %d released %d times, want 1", i, a.releases)
		}
	}
	if rt.factory.releases != 1 {
		t.Errorf("factory released %d times, want 1", rt.factory.releases)
	}
}

func TestAdapters_FactoryFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.factoryHR = E_FAIL

	_, err := Adapters(WithRuntime(rt))
	var se *StatusError
	if !errors.As(err, &se) || se.Op != OpCreateDXGIFactory {
		t.Fatalf("Adapters() error = %v, want CreateDXGIFactory1 status", err)
	}
}

func TestScope(t *testing.T) {
	var order []string
	var s scope
	s.track(releaseFunc(func() { order = append(order, "first") }))
	s.track(nil)
	s.track(releaseFunc(func() { order = append(order, "second") }))
	s.close()
	s.close()

	if !slices.Equal(order, []string{"second", "first"}) {
		t.Errorf("release order = %v, want [second first]", order)
	}
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }
