package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/leodido/dxfeatures"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
	"go.uber.org/zap"
)

// Build metadata injected via ldflags (-X main.version=...).
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	verbose bool
	// extra is appended to every probe; tests use it to inject a runtime.
	extra []dxfeatures.ProbeOption
}

func (g *globalOptions) probeOptions(opts ...dxfeatures.ProbeOption) ([]dxfeatures.ProbeOption, error) {
	logger, err := newLogger(g.verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	opts = append(opts, dxfeatures.WithLogger(logger))
	return append(opts, g.extra...), nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newRootCmd(extra ...dxfeatures.ProbeOption) *cobra.Command {
	g := &globalOptions{extra: extra}

	root := &cobra.Command{
		Use:   "dxfeatures",
		Short: "Direct3D feature level detection",
		Long: `dxfeatures reports the highest hardware feature level the Direct3D 11 and
Direct3D 12 runtimes expose on the default graphics adapter.

Run without a subcommand to print the report for both runtimes. Use it for
support diagnostics, CI/CD gating, or fleet inventory.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			opts, err := g.probeOptions(dxfeatures.WithAll())
			if err != nil {
				return err
			}
			report, err := dxfeatures.ProbeWith(opts...)
			if err != nil {
				return err
			}
			_, err = report.WriteTo(c.OutOrStdout())
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Trace platform calls on stderr")

	root.AddCommand(probeCmd(g))
	root.AddCommand(checkCmd(g))
	root.AddCommand(adaptersCmd(g))
	root.AddCommand(levelsCmd())
	root.AddCommand(versionCmd())

	return root
}

// ProbeOptions defines flags for the probe subcommand.
type ProbeOptions struct {
	API     apiSelection `flag:"api" flagshort:"a" flagdescr:"Runtimes to probe (d3d11, d3d12); default all" flagcustom:"true"`
	Adapter int          `flag:"adapter" flagdescr:"DXGI adapter index probed for D3D12"`
	JSON    bool         `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *ProbeOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ProbeOptions) DefineAPI(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*apiSelection)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *ProbeOptions) DecodeAPI(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseAPISelection(s)
}

func probeCmd(g *globalOptions) *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe Direct3D feature levels and display results",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if opts.Adapter < 0 {
				return fmt.Errorf("invalid adapter index %d", opts.Adapter)
			}

			probeOpts, err := g.probeOptions(
				dxfeatures.WithAPIs(opts.API...),
				dxfeatures.WithAdapterIndex(uint32(opts.Adapter)),
			)
			if err != nil {
				return err
			}
			report, err := dxfeatures.ProbeWith(probeOpts...)
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(c.OutOrStdout(), jsonReportFrom(report))
			}

			_, err = report.WriteTo(c.OutOrStdout())
			return err
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	API      apiSelection      `flag:"api" flagshort:"a" flagdescr:"Runtimes that must meet the minimum level (d3d11, d3d12)" flagrequired:"true" flagcustom:"true"`
	MinLevel featureLevelValue `flag:"min-level" flagshort:"m" flagdescr:"Minimum feature level (see available levels above)" flagrequired:"true" flagcustom:"true"`
	JSON     bool              `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *CheckOptions) DefineAPI(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*apiSelection)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *CheckOptions) DecodeAPI(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseAPISelection(s)
}

func (o *CheckOptions) DefineMinLevel(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureLevelValue)
	*fieldPtr = 0
	return fieldPtr, descr
}

func (o *CheckOptions) DecodeMinLevel(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseFeatureLevel(s)
}

func checkCmd(g *globalOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that Direct3D runtimes reach a minimum feature level",
		Long:  checkLongDescription(),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if len(opts.API) == 0 {
				return fmt.Errorf("no runtimes specified")
			}
			if opts.MinLevel == 0 {
				return fmt.Errorf("no minimum feature level specified")
			}

			requirements := make([]dxfeatures.Requirement, 0, len(opts.API))
			for _, api := range opts.API {
				requirements = append(requirements, dxfeatures.Require(api, dxfeatures.FeatureLevel(opts.MinLevel)))
			}

			probeOpts, err := g.probeOptions()
			if err != nil {
				return err
			}

			err = dxfeatures.Check(requirements, probeOpts...)
			if err != nil {
				var le *dxfeatures.LevelError
				if errors.As(err, &le) {
					if opts.JSON {
						return printJSON(c.OutOrStdout(), map[string]any{
							"ok":       false,
							"api":      le.API.String(),
							"required": le.Required,
							"reason":   le.Reason,
						})
					}
					fmt.Fprintf(c.ErrOrStderr(), "FAIL: %s feature level %s: %s\n", le.API.Title(), le.Required, le.Reason)
					os.Exit(1)
				}
				return err
			}

			if opts.JSON {
				return printJSON(c.OutOrStdout(), map[string]any{"ok": true})
			}
			fmt.Fprintln(c.OutOrStdout(), "OK: all requirements satisfied")
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// AdaptersOptions defines flags for the adapters subcommand.
type AdaptersOptions struct {
	JSON bool `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *AdaptersOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func adaptersCmd(g *globalOptions) *cobra.Command {
	opts := &AdaptersOptions{}

	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List the display adapters DXGI enumerates",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			probeOpts, err := g.probeOptions()
			if err != nil {
				return err
			}
			descs, err := dxfeatures.Adapters(probeOpts...)
			if err != nil {
				return err
			}

			if opts.JSON {
				if descs == nil {
					descs = []dxfeatures.AdapterDesc{}
				}
				return printJSON(c.OutOrStdout(), descs)
			}

			writeAdapters(c.OutOrStdout(), descs)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func writeAdapters(w io.Writer, descs []dxfeatures.AdapterDesc) {
	if len(descs) == 0 {
		fmt.Fprintln(w, "No adapters found")
		return
	}
	for i, d := range descs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Adapter %d: %s\n", i, d.Description)
		fmt.Fprintf(w, "  Vendor: %s (0x%04x)\n", dxfeatures.VendorName(d.VendorID), d.VendorID)
		fmt.Fprintf(w, "  Device: 0x%04x (revision 0x%x)\n", d.DeviceID, d.Revision)
		fmt.Fprintf(w, "  Dedicated video memory: %s\n", humanize.IBytes(d.DedicatedVideoMemory))
		fmt.Fprintf(w, "  Dedicated system memory: %s\n", humanize.IBytes(d.DedicatedSystemMemory))
		fmt.Fprintf(w, "  Shared system memory: %s\n", humanize.IBytes(d.SharedSystemMemory))
		if d.Software {
			fmt.Fprintln(w, "  Software: yes")
		}
	}
}

func levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List known Direct3D feature levels",
		RunE: func(c *cobra.Command, args []string) error {
			for _, l := range dxfeatures.FeatureLevelValues() {
				fmt.Fprintf(c.OutOrStdout(), "%-5s %s\n", l, l.Hex())
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool version",
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()
			if version != "" {
				fmt.Fprintf(out, "dxfeatures %s", version)
				if commit != "" {
					fmt.Fprintf(out, " (%s)", commit)
				}
				if date != "" {
					fmt.Fprintf(out, " built %s", date)
				}
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, "dxfeatures (dev)")
			}
			return nil
		},
	}
}

type jsonResult struct {
	API       string                  `json:"api"`
	Supported bool                    `json:"supported"`
	Level     string                  `json:"level,omitempty"`
	LevelHex  string                  `json:"level_hex,omitempty"`
	Operation string                  `json:"failed_operation,omitempty"`
	HRESULT   string                  `json:"hresult,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
	Attempts  []dxfeatures.Attempt    `json:"attempts,omitempty"`
	Adapter   *dxfeatures.AdapterDesc `json:"adapter,omitempty"`
}

func jsonReportFrom(report *dxfeatures.Report) []jsonResult {
	out := []jsonResult{}
	for _, api := range dxfeatures.APIValues() {
		r := report.Result(api)
		if r == nil {
			continue
		}
		jr := jsonResult{
			API:       api.String(),
			Supported: r.Supported,
			Attempts:  r.Attempts,
			Adapter:   r.Adapter,
		}
		if r.Supported {
			jr.Level = r.Level.String()
			jr.LevelHex = r.Level.Hex()
		} else {
			var se *dxfeatures.StatusError
			if errors.As(r.Error, &se) {
				jr.Operation = se.Op.String()
			}
			jr.HRESULT = r.Status().String()
			jr.Reason = dxfeatures.Diagnose(r)
		}
		out = append(out, jr)
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkLongDescription() string {
	return fmt.Sprintf(`Check that the selected Direct3D runtimes reach a minimum feature level.
Exits with code 0 if all requirements are met, 1 if any are missing.

Available runtimes:
%s

Available levels:
%s`, formatWrappedList(dxfeatures.APINames(), "  ", 80), formatWrappedList(dxfeatures.FeatureLevelNames(), "  ", 80))
}

func formatWrappedList(items []string, indent string, maxWidth int) string {
	if len(items) == 0 {
		return indent + "(none)"
	}

	lines := make([]string, 0, len(items))
	line := indent
	for i, item := range items {
		token := item
		if i < len(items)-1 {
			token += ", "
		}

		if len(line)+len(token) > maxWidth && line != indent {
			lines = append(lines, strings.TrimRight(line, " "))
			line = indent + token
			continue
		}

		line += token
	}

	lines = append(lines, strings.TrimRight(line, " "))
	return strings.Join(lines, "\n")
}

type apiSelection []dxfeatures.API

var apiIdentifierMap = func() map[dxfeatures.API][]string {
	ids := make(map[dxfeatures.API][]string, len(dxfeatures.APIValues()))
	for _, a := range dxfeatures.APIValues() {
		ids[a] = []string{a.String()}
	}
	return ids
}()

func (s *apiSelection) String() string {
	names := make([]string, 0, len(*s))
	for _, a := range *s {
		names = append(names, a.String())
	}

	return strings.Join(names, ",")
}

func (s *apiSelection) Set(input string) error {
	apis, err := parseAPISelection(input)
	if err != nil {
		return err
	}

	*s = append(*s, apis...)
	return nil
}

func (s *apiSelection) Type() string {
	return "api"
}

func parseAPISelection(input string) (apiSelection, error) {
	if strings.TrimSpace(input) == "" {
		return apiSelection{}, nil
	}

	parts := strings.Split(input, ",")
	apis := make(apiSelection, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		var api dxfeatures.API
		enumValue := enumflag.New(&api, "dxfeatures.API", apiIdentifierMap, enumflag.EnumCaseInsensitive)
		if err := enumValue.Set(name); err != nil {
			return nil, fmt.Errorf("unknown runtime: %q (available: %s)", name, strings.Join(dxfeatures.APINames(), ", "))
		}

		apis = append(apis, api)
	}

	return apis, nil
}

type featureLevelValue dxfeatures.FeatureLevel

var levelIdentifierMap = func() map[dxfeatures.FeatureLevel][]string {
	ids := make(map[dxfeatures.FeatureLevel][]string, len(dxfeatures.FeatureLevelValues()))
	for _, l := range dxfeatures.FeatureLevelValues() {
		ids[l] = []string{l.String(), l.Hex()}
	}
	return ids
}()

func (v *featureLevelValue) String() string {
	if *v == 0 {
		return ""
	}
	return dxfeatures.FeatureLevel(*v).String()
}

func (v *featureLevelValue) Set(input string) error {
	level, err := parseFeatureLevel(input)
	if err != nil {
		return err
	}

	*v = level
	return nil
}

func (v *featureLevelValue) Type() string {
	return "level"
}

func parseFeatureLevel(input string) (featureLevelValue, error) {
	name := strings.TrimSpace(input)

	var level dxfeatures.FeatureLevel
	enumValue := enumflag.New(&level, "dxfeatures.FeatureLevel", levelIdentifierMap, enumflag.EnumCaseInsensitive)
	if err := enumValue.Set(name); err != nil {
		return 0, fmt.Errorf("unknown feature level: %q (available: %s)", name, strings.Join(dxfeatures.FeatureLevelNames(), ", "))
	}

	return featureLevelValue(level), nil
}
