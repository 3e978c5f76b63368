package dxfeatures

import (
	"go.uber.org/zap"
)

// probeConfig holds the configuration for a probe operation.
type probeConfig struct {
	apis         map[API]bool
	adapterIndex uint32
	runtime      Runtime // nil selects the platform runtime
	logger       *zap.Logger
}

// ProbeOption configures what [ProbeWith] probes and how.
type ProbeOption func(*probeConfig)

// WithD3D11 probes the Direct3D 11 runtime.
func WithD3D11() ProbeOption {
	return func(c *probeConfig) {
		c.apis[APID3D11] = true
	}
}

// WithD3D12 probes the Direct3D 12 runtime.
func WithD3D12() ProbeOption {
	return func(c *probeConfig) {
		c.apis[APID3D12] = true
	}
}

// WithAPIs probes the given runtimes.
func WithAPIs(apis ...API) ProbeOption {
	return func(c *probeConfig) {
		for _, a := range apis {
			c.apis[a] = true
		}
	}
}

// WithAll probes every supported runtime.
func WithAll() ProbeOption {
	return WithAPIs(APIValues()...)
}

// WithAdapterIndex selects the DXGI adapter the D3D12 prober targets.
// The default is 0, the first enumerated adapter.
func WithAdapterIndex(index uint32) ProbeOption {
	return func(c *probeConfig) {
		c.adapterIndex = index
	}
}

// WithRuntime replaces the platform entry points.
// This is primarily for testing.
func WithRuntime(rt Runtime) ProbeOption {
	return func(c *probeConfig) {
		c.runtime = rt
	}
}

// WithLogger traces every platform call at debug level.
func WithLogger(l *zap.Logger) ProbeOption {
	return func(c *probeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newProbeConfig(opts []ProbeOption) (*probeConfig, error) {
	cfg := &probeConfig{
		apis:   map[API]bool{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.runtime == nil {
		rt, err := platformRuntime()
		if err != nil {
			return nil, err
		}
		cfg.runtime = rt
	}
	return cfg, nil
}

// ProbeWith probes the selected Direct3D runtimes.
// If no runtime is selected, both are probed. D3D11 always runs first.
//
// Platform failures are recorded in the per-runtime [ProbeResult]; the
// returned error is non-nil only when probing cannot start at all.
func ProbeWith(opts ...ProbeOption) (*Report, error) {
	cfg, err := newProbeConfig(opts)
	if err != nil {
		return nil, err
	}
	if len(cfg.apis) == 0 {
		WithAll()(cfg)
	}

	report := &Report{}
	if cfg.apis[APID3D11] {
		report.D3D11 = probeD3D11(cfg.runtime, cfg.logger)
	}
	if cfg.apis[APID3D12] {
		report.D3D12 = probeD3D12(cfg.runtime, cfg.adapterIndex, cfg.logger)
	}
	return report, nil
}

// Probe probes both Direct3D runtimes on the default adapter.
func Probe() (*Report, error) {
	return ProbeWith(WithAll())
}

// probeD3D11 lets D3D11CreateDevice negotiate the level from the full
// candidate list in a single call.
func probeD3D11(rt Runtime, log *zap.Logger) *ProbeResult {
	var s scope
	defer s.close()

	level, device, ctx, hr := rt.CreateD3D11Device(D3D11Candidates)
	log.Debug("D3D11CreateDevice",
		zap.Int("candidates", len(D3D11Candidates)),
		zap.Stringer("hresult", hr),
		zap.Stringer("level", level),
	)
	if hr.Failed() {
		return &ProbeResult{
			API:   APID3D11,
			Error: &StatusError{Op: OpD3D11CreateDevice, Code: hr},
		}
	}
	s.track(device)
	s.track(ctx)

	return &ProbeResult{API: APID3D11, Supported: true, Level: level}
}

// probeD3D12 creates a device at each candidate level, highest first,
// and stops at the first success. D3D12 has no built-in negotiation.
func probeD3D12(rt Runtime, adapterIndex uint32, log *zap.Logger) *ProbeResult {
	var s scope
	defer s.close()

	result := &ProbeResult{API: APID3D12}

	factory, hr := rt.CreateDXGIFactory()
	log.Debug("CreateDXGIFactory1", zap.Stringer("hresult", hr))
	if hr.Failed() {
		result.Error = &StatusError{Op: OpCreateDXGIFactory, Code: hr}
		return result
	}
	s.track(factory)

	adapter, hr := factory.EnumAdapter(adapterIndex)
	log.Debug("EnumAdapters1", zap.Uint32("index", adapterIndex), zap.Stringer("hresult", hr))
	if hr.Failed() {
		result.Error = &StatusError{Op: OpEnumAdapters, Code: hr}
		return result
	}
	s.track(adapter)

	for _, level := range D3D12Candidates {
		device, hr := rt.CreateD3D12Device(adapter, level)
		log.Debug("D3D12CreateDevice", zap.Stringer("level", level), zap.Stringer("hresult", hr))
		result.Attempts = append(result.Attempts, Attempt{Level: level, Status: hr})
		if hr.Failed() {
			result.Error = &StatusError{Op: OpD3D12CreateDevice, Code: hr}
			continue
		}
		// The device is only a capability probe.
		if device != nil {
			device.Release()
		}
		result.Supported = true
		result.Level = level
		result.Error = nil
		break
	}

	if result.Supported {
		if desc, hr := adapter.Desc(); hr.Succeeded() {
			result.Adapter = &desc
		} else {
			log.Debug("GetDesc1", zap.Stringer("hresult", hr))
		}
	}
	return result
}

// Adapters lists every adapter the DXGI factory enumerates.
func Adapters(opts ...ProbeOption) ([]AdapterDesc, error) {
	cfg, err := newProbeConfig(opts)
	if err != nil {
		return nil, err
	}

	var s scope
	defer s.close()

	factory, hr := cfg.runtime.CreateDXGIFactory()
	if hr.Failed() {
		return nil, &StatusError{Op: OpCreateDXGIFactory, Code: hr}
	}
	s.track(factory)

	var descs []AdapterDesc
	for i := uint32(0); ; i++ {
		adapter, hr := factory.EnumAdapter(i)
		if hr == DXGI_ERROR_NOT_FOUND {
			break
		}
		if hr.Failed() {
			return nil, &StatusError{Op: OpEnumAdapters, Code: hr}
		}
		desc, hr := adapter.Desc()
		adapter.Release()
		cfg.logger.Debug("adapter", zap.Uint32("index", i), zap.String("description", desc.Description), zap.Stringer("hresult", hr))
		if hr.Failed() {
			continue
		}
		descs = append(descs, desc)
	}
	return descs, nil
}
