package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbright/togglecalc/pkg/preset"
	"github.com/kbright/togglecalc/pkg/toggle"
)

var (
	verbose     bool
	listPresets bool
)

type opts struct {
	// display
	displayPreset string
	busWidth      int
	fpMHz         float64
	hres          int
	vres          int
	refreshHz     float64
	rho           float64
	pins          int

	// content
	contentPreset string
	a1, c1, h1    float64
	a2, c2, h2    float64
	a3, c3, h3    float64

	// preset table extension
	presetsFile string

	// outputs
	csvPath  string
	jsonPath string
	htmlPath string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "togglecalc",
		Short: "LCD/GPIO toggle activity calculator",
		Long: `togglecalc models the toggle rate of parallel LCD controller pins for a
display configuration and a content activity assumption.

Use cases:
- GPIO wear/lifetime estimation for reliability analysis
- Dynamic power estimation (power is proportional to toggle rate)
- EMI analysis (higher toggle rates mean more emissions)

Examples:
  togglecalc --preset 1080p60 --content desktop
  togglecalc --hres 800 --vres 480 --fp 33.3 --fr 60
  togglecalc --preset 4k60 --content video -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	root.Flags().StringVar(&o.displayPreset, "preset", "", "display timing preset name")
	root.Flags().IntVarP(&o.busWidth, "bus-width", "W", 24, "bus width in bits")
	root.Flags().Float64Var(&o.fpMHz, "fp", 148.5, "pixel clock in MHz")
	root.Flags().IntVar(&o.hres, "hres", 1920, "horizontal resolution")
	root.Flags().IntVar(&o.vres, "vres", 1080, "vertical resolution")
	root.Flags().Float64Var(&o.refreshHz, "fr", 60.0, "refresh rate in Hz")
	root.Flags().Float64Var(&o.rho, "rho", 0.0, "override blanking factor (0 = auto)")
	root.Flags().IntVar(&o.pins, "pins", 0, "total pins to scale aggregate rates over (0 = bus width)")

	root.Flags().StringVar(&o.contentPreset, "content", "", "content activity preset name")
	root.Flags().Float64Var(&o.a1, "a1", 0.30, "region 1 area fraction")
	root.Flags().Float64Var(&o.c1, "c1", 0.0, "region 1 change rate")
	root.Flags().Float64Var(&o.h1, "h1", 0, "region 1 bits per change")
	root.Flags().Float64Var(&o.a2, "a2", 0.50, "region 2 area fraction")
	root.Flags().Float64Var(&o.c2, "c2", 0.10, "region 2 change rate")
	root.Flags().Float64Var(&o.h2, "h2", 8, "region 2 bits per change")
	root.Flags().Float64Var(&o.a3, "a3", 0.20, "region 3 area fraction")
	root.Flags().Float64Var(&o.c3, "c3", 1.0, "region 3 change rate")
	root.Flags().Float64Var(&o.h3, "h3", 12, "region 3 bits per change")

	root.Flags().StringVar(&o.presetsFile, "presets-file", "", "YAML file with extra or overriding presets")

	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "show configuration and context sections")
	root.Flags().BoolVar(&listPresets, "list-presets", false, "list available presets and exit")

	root.Flags().StringVar(&o.csvPath, "csv", "", "write the lifetime table to a CSV file")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write the full result document to a JSON file")
	root.Flags().StringVar(&o.htmlPath, "html", "", "write an HTML report")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(o opts) error {
	table := preset.Builtin()
	if o.presetsFile != "" {
		var err error
		if table, err = preset.Load(o.presetsFile); err != nil {
			return err
		}
	}

	if listPresets {
		printPresets(os.Stdout, table)
		return nil
	}

	p, err := buildParams(o, table)
	if err != nil {
		return err
	}

	calc := toggle.New(p)
	if errs := calc.Validate(); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "configuration errors:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return fmt.Errorf("invalid configuration (%d problems)", len(errs))
	}

	res := calc.Compute()
	life := toggle.LifetimeQuadrillions(res.TogglesPerSec.PerSecond(), toggle.DefaultYears)
	years1Q := toggle.YearsToOneQuadrillion(res.TogglesPerSec.PerSecond())

	printReport(os.Stdout, calc.Params(), res, life, years1Q)

	if o.csvPath != "" {
		if err := writeCSV(o.csvPath, life); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if o.jsonPath != "" {
		if err := writeJSON(o.jsonPath, calc.Params(), res, life, years1Q); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, calc.Params(), res, life, years1Q); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}
	return nil
}

// buildParams assembles Params from presets and flags. Region fractions that
// do not sum to 1 are normalized here, explicitly, before validation; the
// core never renormalizes on its own.
func buildParams(o opts, table preset.Table) (*toggle.Params, error) {
	hres, vres := o.hres, o.vres
	fpMHz, refreshHz := o.fpMHz, o.refreshHz
	if o.displayPreset != "" {
		d, err := table.Display(o.displayPreset)
		if err != nil {
			return nil, err
		}
		hres, vres = d.HRes, d.VRes
		fpMHz, refreshHz = d.PixelClockMHz, d.RefreshHz
	}

	var regions []toggle.Region
	if o.contentPreset != "" {
		var err error
		if regions, err = table.Content(o.contentPreset, o.busWidth); err != nil {
			return nil, err
		}
	} else {
		regions = []toggle.Region{
			{AreaFrac: o.a1, ChangeFrac: o.c1, AvgFlips: o.h1},
			{AreaFrac: o.a2, ChangeFrac: o.c2, AvgFlips: o.h2},
			{AreaFrac: o.a3, ChangeFrac: o.c3, AvgFlips: o.h3},
		}
	}

	var alphaSum float64
	for _, r := range regions {
		alphaSum += r.AreaFrac
	}
	if alphaSum <= 0 {
		return nil, fmt.Errorf("region area fractions must sum to > 0, got %g", alphaSum)
	}
	if math.Abs(alphaSum-1.0) > 0.001 {
		slog.Warn("normalizing region area fractions", "sum", alphaSum)
		var err error
		if regions, err = toggle.Normalize(regions); err != nil {
			return nil, err
		}
	}

	return &toggle.Params{
		BusWidth:     o.busWidth,
		PixelClockHz: fpMHz * 1e6, // MHz at the flag boundary, Hz inside
		HRes:         hres,
		VRes:         vres,
		RefreshHz:    refreshHz,
		Regions:      regions,
		RhoOverride:  o.rho,
		PinCount:     o.pins,
	}, nil
}

func printPresets(w io.Writer, table preset.Table) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "display presets:")
	for _, name := range table.DisplayNames() {
		d := table.Displays[name]
		fmt.Fprintf(tw, "  %s\t%dx%d @ %gHz\t%g MHz pixel clock\n",
			name, d.HRes, d.VRes, d.RefreshHz, d.PixelClockMHz)
	}

	fmt.Fprintln(tw, "\ncontent presets:")
	for _, name := range table.ContentNames() {
		var desc string
		for _, r := range table.Contents[name] {
			if r.AreaFrac <= 0 {
				continue
			}
			if desc != "" {
				desc += ", "
			}
			desc += fmt.Sprintf("%.0f%%@c=%.1f", r.AreaFrac*100, r.ChangeFrac)
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, desc)
	}
	tw.Flush()
}

func printReport(w io.Writer, p *toggle.Params, res toggle.Result, life map[int]float64, years1Q float64) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "LCD/GPIO Toggle Activity Analysis")
	fmt.Fprintln(w, "=================================")

	if verbose {
		fmt.Fprintln(w, "\n--- Configuration ---")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "bus width:\t%d bits\n", p.BusWidth)
		fmt.Fprintf(tw, "resolution:\t%d x %d\n", p.HRes, p.VRes)
		fmt.Fprintf(tw, "pixel clock:\t%g MHz\n", p.PixelClockHz/1e6)
		fmt.Fprintf(tw, "refresh rate:\t%g Hz\n", p.RefreshHz)
		fmt.Fprintf(tw, "pins:\t%d\n", p.PinCount)
		tw.Flush()

		fmt.Fprintln(w, "\ncontent regions:")
		for i, r := range p.Regions {
			if r.AreaFrac <= 0 {
				continue
			}
			fmt.Fprintf(w, "  region %d: %.0f%% area, %.0f%% pixels change, %.1f bits/change\n",
				i+1, r.AreaFrac*100, r.ChangeFrac*100, r.AvgFlips)
		}
	}

	fmt.Fprintln(w, "\n--- Activity Metrics ---")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "H_avg (bit flips/pixel/frame):\t%.4f\n", res.HAvg)
	fmt.Fprintf(tw, "blanking factor (rho):\t%.4f\n", res.Rho)
	fmt.Fprintf(tw, "activity factor (AF):\t%.6f\n", res.AF)
	tw.Flush()

	fmt.Fprintln(w, "\n--- Toggle Rates ---")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "bus toggles/sec:\t%s toggles/s\n", res.TogglesPerSec.Engineering())
	fmt.Fprintf(tw, "per-pin toggles/sec:\t%s toggles/s\n", res.PerPin.Engineering())
	fmt.Fprintf(tw, "all %d pins toggles/sec:\t%s toggles/s\n", p.PinCount, res.TotalPins.Engineering())
	tw.Flush()

	fmt.Fprintln(w, "\n--- Lifetime Projections (quadrillions of toggles) ---")
	for _, y := range toggle.DefaultYears {
		fmt.Fprintf(w, "  %3d years: %12.2f Q\n", y, life[y])
	}

	if math.IsInf(years1Q, 1) {
		fmt.Fprintln(w, "\ntime to 1 quadrillion: never (static bus)")
	} else {
		fmt.Fprintf(w, "\ntime to 1 quadrillion: %.4f years\n", years1Q)
	}

	if verbose {
		fmt.Fprintln(w, "\n--- Context ---")
		fmt.Fprintln(w, "typical CMOS GPIO toggle endurance: 1e12 - 1e15+ cycles")
		fmt.Fprintln(w, "(consult your silicon vendor's reliability data)")
	}
}

func writeCSV(path string, life map[int]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"years", "quadrillion_toggles"}); err != nil {
		return err
	}
	for _, y := range toggle.DefaultYears {
		if err := cw.Write([]string{
			strconv.Itoa(y),
			strconv.FormatFloat(life[y], 'f', 6, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// document is the JSON report shape. YearsToOneQ is a pointer so an
// infinite endurance serializes as null instead of breaking Marshal.
type document struct {
	BusWidth      int             `json:"bus_width"`
	HRes          int             `json:"hres"`
	VRes          int             `json:"vres"`
	PixelClockHz  float64         `json:"pixel_clock_hz"`
	RefreshHz     float64         `json:"refresh_hz"`
	PinCount      int             `json:"pin_count"`
	Regions       []toggle.Region `json:"regions"`
	HAvg          float64         `json:"h_avg"`
	ActiveRate    float64         `json:"active_rate"`
	Rho           float64         `json:"rho"`
	AF            float64         `json:"activity_factor"`
	TogglesPerSec float64         `json:"toggles_per_sec"`
	PerPin        float64         `json:"per_pin_toggles_per_sec"`
	TotalPins     float64         `json:"total_pins_toggles_per_sec"`
	LifetimeQ     map[int]float64 `json:"lifetime_quadrillions"`
	YearsToOneQ   *float64        `json:"years_to_one_quadrillion"`
}

func newDocument(p *toggle.Params, res toggle.Result, life map[int]float64, years1Q float64) document {
	doc := document{
		BusWidth:      p.BusWidth,
		HRes:          p.HRes,
		VRes:          p.VRes,
		PixelClockHz:  res.PixelClockHz,
		RefreshHz:     p.RefreshHz,
		PinCount:      p.PinCount,
		Regions:       p.Regions,
		HAvg:          res.HAvg,
		ActiveRate:    res.ActiveRate.PerSecond(),
		Rho:           res.Rho,
		AF:            res.AF,
		TogglesPerSec: res.TogglesPerSec.PerSecond(),
		PerPin:        res.PerPin.PerSecond(),
		TotalPins:     res.TotalPins.PerSecond(),
		LifetimeQ:     life,
	}
	if !math.IsInf(years1Q, 1) {
		doc.YearsToOneQ = &years1Q
	}
	return doc
}

func writeJSON(path string, p *toggle.Params, res toggle.Result, life map[int]float64, years1Q float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(newDocument(p, res, life, years1Q), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func writeHTML(path string, p *toggle.Params, res toggle.Result, life map[int]float64, years1Q float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	type lifeRow struct {
		Years int
		Q     float64
	}
	rows := make([]lifeRow, 0, len(toggle.DefaultYears))
	for _, y := range toggle.DefaultYears {
		rows = append(rows, lifeRow{Years: y, Q: life[y]})
	}

	years1QText := "never (static bus)"
	if !math.IsInf(years1Q, 1) {
		years1QText = fmt.Sprintf("%.4f years", years1Q)
	}

	data := struct {
		Doc      document
		Lifetime []lifeRow
		BusRate  string
		PinRate  string
		Years1Q  string
	}{
		Doc:      newDocument(p, res, life, years1Q),
		Lifetime: rows,
		BusRate:  res.TogglesPerSec.Engineering(),
		PinRate:  res.PerPin.Engineering(),
		Years1Q:  years1QText,
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	return err
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Toggle Activity Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
</style>

<h1>LCD/GPIO Toggle Activity Report</h1>

<p class="small">
{{.Doc.BusWidth}}-bit bus &nbsp;|&nbsp;
{{.Doc.HRes}}x{{.Doc.VRes}} @ {{.Doc.RefreshHz}} Hz &nbsp;|&nbsp;
AF: {{printf "%.6f" .Doc.AF}}
</p>

<h2>Activity</h2>
<ul>
<li>H_avg: {{printf "%.4f" .Doc.HAvg}} bit flips/pixel/frame</li>
<li>Blanking factor (rho): {{printf "%.4f" .Doc.Rho}}</li>
<li>Bus toggles/sec: {{.BusRate}} toggles/s</li>
<li>Per-pin toggles/sec: {{.PinRate}} toggles/s</li>
<li>Time to 1 quadrillion: {{.Years1Q}}</li>
</ul>

<h2>Lifetime projections</h2>
<table>
<thead><tr><th>years</th><th>quadrillions of toggles</th></tr></thead>
<tbody>
{{range .Lifetime}}
<tr><td>{{.Years}}</td><td>{{printf "%.2f" .Q}}</td></tr>
{{end}}
</tbody>
</table>
</html>`))
