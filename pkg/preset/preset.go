// Package preset carries the built-in display-timing and content-activity
// tables and optional user-supplied extensions loaded from a YAML file.
// Tables are read-only once built; loading produces a new merged Table
// rather than mutating the built-ins.
package preset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kbright/togglecalc/pkg/toggle"
)

// Display is one display-timing preset. The pixel clock stays in MHz here,
// the unit timings are quoted in; conversion to Hz happens when Params are
// built.
type Display struct {
	HRes          int     `yaml:"hres"`
	VRes          int     `yaml:"vres"`
	PixelClockMHz float64 `yaml:"pixel_clock_mhz"`
	RefreshHz     float64 `yaml:"refresh_hz"`
}

// Table maps preset names to display timings and content region lists.
type Table struct {
	Displays map[string]Display
	Contents map[string][]toggle.Region
}

var _displays = map[string]Display{
	"720p60":  {HRes: 1280, VRes: 720, PixelClockMHz: 74.25, RefreshHz: 60.0},
	"1080p60": {HRes: 1920, VRes: 1080, PixelClockMHz: 148.5, RefreshHz: 60.0},
	"1080p30": {HRes: 1920, VRes: 1080, PixelClockMHz: 74.25, RefreshHz: 30.0},
	"4k30":    {HRes: 3840, VRes: 2160, PixelClockMHz: 297.0, RefreshHz: 30.0},
	"4k60":    {HRes: 3840, VRes: 2160, PixelClockMHz: 594.0, RefreshHz: 60.0},
	"wvga":    {HRes: 800, VRes: 480, PixelClockMHz: 33.3, RefreshHz: 60.0},
	"xga":     {HRes: 1024, VRes: 768, PixelClockMHz: 65.0, RefreshHz: 60.0},
	"wxga":    {HRes: 1280, VRes: 800, PixelClockMHz: 71.0, RefreshHz: 60.0},
}

var _contents = map[string][]toggle.Region{
	"static": { // dashboard / HMI idle
		{AreaFrac: 0.95, ChangeFrac: 0.0, AvgFlips: 0},
		{AreaFrac: 0.05, ChangeFrac: 0.10, AvgFlips: 4},
		{AreaFrac: 0.0, ChangeFrac: 0.0, AvgFlips: 0},
	},
	"desktop": { // mixed static/dynamic
		{AreaFrac: 0.30, ChangeFrac: 0.0, AvgFlips: 0},
		{AreaFrac: 0.50, ChangeFrac: 0.10, AvgFlips: 8},
		{AreaFrac: 0.20, ChangeFrac: 1.0, AvgFlips: 12},
	},
	"video": { // full-screen playback
		{AreaFrac: 0.0, ChangeFrac: 0.0, AvgFlips: 0},
		{AreaFrac: 0.10, ChangeFrac: 0.5, AvgFlips: 6},
		{AreaFrac: 0.90, ChangeFrac: 1.0, AvgFlips: 12},
	},
	"worst": { // every pixel changes maximally; flips follow the bus width
		{AreaFrac: 0.0, ChangeFrac: 0.0, AvgFlips: 0},
		{AreaFrac: 0.0, ChangeFrac: 0.0, AvgFlips: 0},
		{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 24},
	},
}

// Builtin returns a Table holding copies of the built-in preset maps.
func Builtin() Table {
	t := Table{
		Displays: make(map[string]Display, len(_displays)),
		Contents: make(map[string][]toggle.Region, len(_contents)),
	}
	for name, d := range _displays {
		t.Displays[name] = d
	}
	for name, regions := range _contents {
		t.Contents[name] = append([]toggle.Region(nil), regions...)
	}
	return t
}

// file is the YAML shape of a user preset file.
type file struct {
	Displays map[string]Display  `yaml:"displays"`
	Contents map[string][]region `yaml:"contents"`
}

type region struct {
	Area   float64 `yaml:"area"`
	Change float64 `yaml:"change"`
	Flips  float64 `yaml:"flips"`
}

// Load reads a YAML preset file and returns the built-in table with the
// file's entries merged over it. Same-named entries from the file win.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read presets: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Table{}, fmt.Errorf("parse presets %s: %w", path, err)
	}

	t := Builtin()
	for name, d := range f.Displays {
		t.Displays[name] = d
	}
	for name, regions := range f.Contents {
		rs := make([]toggle.Region, len(regions))
		for i, r := range regions {
			rs[i] = toggle.Region{AreaFrac: r.Area, ChangeFrac: r.Change, AvgFlips: r.Flips}
		}
		t.Contents[name] = rs
	}
	return t, nil
}

// Display looks up a display-timing preset by name.
func (t Table) Display(name string) (Display, error) {
	d, ok := t.Displays[name]
	if !ok {
		return Display{}, fmt.Errorf("unknown display preset %q (have: %v)", name, t.DisplayNames())
	}
	return d, nil
}

// Content looks up a content preset, returning a fresh region slice. The
// "worst" preset models every bit of the bus flipping, so its flip count is
// rewritten to the actual bus width.
func (t Table) Content(name string, busWidth int) ([]toggle.Region, error) {
	regions, ok := t.Contents[name]
	if !ok {
		return nil, fmt.Errorf("unknown content preset %q (have: %v)", name, t.ContentNames())
	}

	out := append([]toggle.Region(nil), regions...)
	if name == "worst" {
		out[len(out)-1].AvgFlips = float64(busWidth)
	}
	return out, nil
}

// DisplayNames returns the display preset names, sorted.
func (t Table) DisplayNames() []string {
	names := make([]string, 0, len(t.Displays))
	for name := range t.Displays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContentNames returns the content preset names, sorted.
func (t Table) ContentNames() []string {
	names := make([]string, 0, len(t.Contents))
	for name := range t.Contents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
