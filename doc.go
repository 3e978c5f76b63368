// Package dxfeatures reports the Direct3D hardware feature levels a
// machine exposes.
//
// It answers "what GPU capability tier does this machine expose?" for the
// Direct3D 11 and Direct3D 12 runtimes without ad hoc test code.
//
// # Probing
//
// Direct3D 11 negotiates the level itself: the whole candidate list
// ([D3D11Candidates]) is handed to a single device creation and the runtime
// grants the first level it can satisfy.
//
// Direct3D 12 has no negotiation. The first enumerated DXGI adapter is
// opened and a device is created at each of [D3D12Candidates], highest
// first, stopping at the first success. Every attempt is recorded in
// [ProbeResult.Attempts].
//
//	report, err := dxfeatures.Probe()
//	if err != nil {
//	    log.Fatal(err) // e.g. ErrUnsupportedPlatform
//	}
//	fmt.Print(report)
//
// Platform failures never abort a probe run: each is recorded as a
// [*StatusError] carrying the raw [HRESULT] in the affected [ProbeResult].
// Every device, context, adapter and factory acquired during a probe is
// released before the probe returns.
//
// # Gating
//
// [Check] turns a probe into a pass/fail gate:
//
//	err := dxfeatures.Check([]dxfeatures.Requirement{
//	    dxfeatures.Require(dxfeatures.APID3D12, dxfeatures.FeatureLevel12_0),
//	})
//	var le *dxfeatures.LevelError
//	if errors.As(err, &le) {
//	    log.Fatalf("GPU not ready: %s", le.Reason)
//	}
//
// # Testing
//
// The platform entry points sit behind [Runtime]; [WithRuntime] replaces
// them, which keeps the probing logic testable on any operating system.
package dxfeatures
