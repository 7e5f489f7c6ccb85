package toggle

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expect recomputes the activity picture straight from the formulas, so the
// tests cross-check Compute against independent math.
func expect(p *Params) (hAvg, activeRate, rho, af, toggles, perPin float64) {
	for _, r := range p.Regions {
		hAvg += r.AreaFrac * r.ChangeFrac * r.AvgFlips
	}
	activeRate = float64(p.HRes) * float64(p.VRes) * p.RefreshHz
	if p.RhoOverride > 0 {
		rho = p.RhoOverride
	} else {
		rho = p.PixelClockHz / activeRate
	}
	af = hAvg / float64(p.BusWidth)
	toggles = activeRate * hAvg
	perPin = toggles / float64(p.BusWidth)
	return
}

func TestCompute_1080pFullActivity(t *testing.T) {
	p := &Params{
		BusWidth:     24,
		PixelClockHz: 148_500_000,
		HRes:         1920,
		VRes:         1080,
		RefreshHz:    60,
		Regions:      []Region{{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 12}},
	}
	calc := New(p)
	require.Empty(t, calc.Validate())

	res := calc.Compute()

	require.InDelta(t, 12.0, res.HAvg, 1e-12)
	require.InDelta(t, 124_416_000, res.ActiveRate.PerSecond(), 1e-6)
	require.InDelta(t, 0.5, res.AF, 1e-12)
	require.InDelta(t, 1_492_992_000, res.TogglesPerSec.PerSecond(), 1e-3)
	require.InDelta(t, 62_208_000, res.PerPin.PerSecond(), 1e-6)
	// pin count defaulted to bus width
	require.InDelta(t, 1_492_992_000, res.TotalPins.PerSecond(), 1e-3)
	require.InDelta(t, 148_500_000.0/124_416_000.0, res.Rho, 1e-12)

	t.Logf("H_avg=%.4f AF=%.6f rho=%.4f toggles=%.0f/s per-pin=%.0f/s",
		res.HAvg, res.AF, res.Rho, res.TogglesPerSec.PerSecond(), res.PerPin.PerSecond())
}

func TestCompute_MatchesFormulas_AcrossConfigs(t *testing.T) {
	cases := []*Params{
		{BusWidth: 24, PixelClockHz: 148.5e6, HRes: 1920, VRes: 1080, RefreshHz: 60,
			Regions: []Region{
				{AreaFrac: 0.30, ChangeFrac: 0.0, AvgFlips: 0},
				{AreaFrac: 0.50, ChangeFrac: 0.10, AvgFlips: 8},
				{AreaFrac: 0.20, ChangeFrac: 1.0, AvgFlips: 12},
			}},
		{BusWidth: 16, PixelClockHz: 33.3e6, HRes: 800, VRes: 480, RefreshHz: 60,
			Regions: []Region{
				{AreaFrac: 0.95, ChangeFrac: 0.0, AvgFlips: 0},
				{AreaFrac: 0.05, ChangeFrac: 0.10, AvgFlips: 4},
			}},
		{BusWidth: 18, PixelClockHz: 594e6, HRes: 3840, VRes: 2160, RefreshHz: 60,
			RhoOverride: 1.25,
			Regions: []Region{
				{AreaFrac: 0.10, ChangeFrac: 0.5, AvgFlips: 6},
				{AreaFrac: 0.90, ChangeFrac: 1.0, AvgFlips: 12},
			}},
	}

	t.Logf("# case |      H_avg       AF        rho |   toggles/s     per-pin/s")
	for i, p := range cases {
		calc := New(p)
		require.Empty(t, calc.Validate(), "case %d should be valid", i)

		res := calc.Compute()
		hAvg, activeRate, rho, af, toggles, perPin := expect(calc.Params())

		require.InDelta(t, hAvg, res.HAvg, 1e-9, "H_avg (case %d)", i)
		require.InDelta(t, activeRate, res.ActiveRate.PerSecond(), 1e-6, "active rate (case %d)", i)
		require.InDelta(t, rho, res.Rho, 1e-9, "rho (case %d)", i)
		require.InDelta(t, af, res.AF, 1e-9, "AF (case %d)", i)
		require.InDelta(t, toggles, res.TogglesPerSec.PerSecond(), 1e-3, "toggles (case %d)", i)
		require.InDelta(t, perPin, res.PerPin.PerSecond(), 1e-3, "per-pin (case %d)", i)

		t.Logf("%6d | %10.4f %8.6f %10.4f | %12.0f %12.0f",
			i+1, res.HAvg, res.AF, res.Rho, res.TogglesPerSec.PerSecond(), res.PerPin.PerSecond())
	}
}

func TestCompute_Deterministic(t *testing.T) {
	calc := New(nil)
	a := calc.Compute()
	b := calc.Compute()
	// pure arithmetic, so exact equality, no tolerance
	assert.Equal(t, a, b)
	assert.Equal(t, a, New(nil).Compute())
}

func TestCompute_RhoIsInformationalOnly(t *testing.T) {
	p := &Params{
		BusWidth:     24,
		PixelClockHz: 148.5e6,
		HRes:         1920,
		VRes:         1080,
		RefreshHz:    60,
		Regions:      []Region{{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 12}},
	}
	base := New(p).Compute()

	over := *p
	over.RhoOverride = 3.0
	res := New(&over).Compute()

	assert.InDelta(t, 3.0, res.Rho, 1e-12)
	// toggle rates only count active transfers; blanking never scales them
	assert.Equal(t, base.TogglesPerSec, res.TogglesPerSec)
	assert.Equal(t, base.PerPin, res.PerPin)
	assert.Equal(t, base.AF, res.AF)
}

func TestNew_MergesDefaults(t *testing.T) {
	calc := New(nil)
	p := calc.Params()
	assert.Equal(t, 24, p.BusWidth)
	assert.Equal(t, 24, p.PinCount)
	assert.Len(t, p.Regions, 3)
	assert.Empty(t, calc.Validate())

	// zero PinCount follows BusWidth
	calc = New(&Params{
		BusWidth: 18, PixelClockHz: 74.25e6, HRes: 1280, VRes: 720, RefreshHz: 60,
		Regions: []Region{{AreaFrac: 1, ChangeFrac: 1, AvgFlips: 9}},
	})
	assert.Equal(t, 18, calc.Params().PinCount)

	// explicit PinCount wins
	calc = New(&Params{
		BusWidth: 18, PixelClockHz: 74.25e6, HRes: 1280, VRes: 720, RefreshHz: 60,
		PinCount: 40,
		Regions:  []Region{{AreaFrac: 1, ChangeFrac: 1, AvgFlips: 9}},
	})
	assert.Equal(t, 40, calc.Params().PinCount)
	res := calc.Compute()
	assert.InDelta(t, res.PerPin.PerSecond()*40, res.TotalPins.PerSecond(), 1e-3)

	// the caller's struct is not touched by the merge
	orig := Params{BusWidth: 24, PixelClockHz: 148.5e6, HRes: 1920, VRes: 1080, RefreshHz: 60}
	_ = New(&orig)
	assert.Zero(t, orig.PinCount)
	assert.Nil(t, orig.Regions)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	calc := New(&Params{
		BusWidth:     -1,
		PixelClockHz: 0,
		HRes:         0,
		VRes:         -5,
		RefreshHz:    0,
		RhoOverride:  -0.5,
		PinCount:     -2,
		Regions:      []Region{},
	})
	errs := calc.Validate()
	require.NotEmpty(t, errs)

	joined := strings.Join(errs, "\n")
	for _, want := range []string{
		"bus width", "pixel clock", "H resolution", "V resolution",
		"refresh rate", "rho override", "pin count", "at least one region",
	} {
		assert.Contains(t, joined, want)
	}
	// one entry per violation, nothing short-circuited
	assert.GreaterOrEqual(t, len(errs), 8)

	for _, e := range errs {
		t.Logf("  - %s", e)
	}
}

func TestValidate_RegionRanges(t *testing.T) {
	calc := New(&Params{
		BusWidth: 24, PixelClockHz: 148.5e6, HRes: 1920, VRes: 1080, RefreshHz: 60,
		Regions: []Region{
			{AreaFrac: 1.2, ChangeFrac: -0.1, AvgFlips: 25},
			{AreaFrac: -0.2, ChangeFrac: 0.5, AvgFlips: 8},
		},
	})
	errs := calc.Validate()
	joined := strings.Join(errs, "\n")
	assert.Contains(t, joined, "region 1: area fraction")
	assert.Contains(t, joined, "region 1: change fraction")
	assert.Contains(t, joined, "region 1: avg flips")
	assert.Contains(t, joined, "region 2: area fraction")
}

func TestValidate_AvgFlipsBusWidthBoundary(t *testing.T) {
	mk := func(flips float64) *Calculator {
		return New(&Params{
			BusWidth: 24, PixelClockHz: 148.5e6, HRes: 1920, VRes: 1080, RefreshHz: 60,
			Regions: []Region{{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: flips}},
		})
	}
	// every bit flipping is legal (inclusive bound)
	assert.Empty(t, mk(24).Validate())

	errs := mk(25).Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "\n"), "avg flips")
}

func TestValidate_ClockMustSustainActiveRate(t *testing.T) {
	calc := New(&Params{
		// 1920*1080*60 px/s needs ~124.4 MHz; 100 MHz cannot keep up
		BusWidth: 24, PixelClockHz: 100e6, HRes: 1920, VRes: 1080, RefreshHz: 60,
		Regions: []Region{{AreaFrac: 1, ChangeFrac: 1, AvgFlips: 12}},
	})
	errs := calc.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "\n"), "impossible configuration")
}

func TestValidate_AreaSumFlagged_NeverRenormalized(t *testing.T) {
	p := &Params{
		BusWidth: 24, PixelClockHz: 148.5e6, HRes: 1920, VRes: 1080, RefreshHz: 60,
		Regions: []Region{
			{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 6},
			{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 6},
		},
	}
	calc := New(p)

	errs := calc.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "\n"), "sum to 2")

	// Compute on the raw fractions reflects the raw sum; nothing rescales.
	res := calc.Compute()
	assert.InDelta(t, 12.0, res.HAvg, 1e-12)
	assert.Equal(t, 1.0, calc.Params().Regions[0].AreaFrac)
}

func TestNormalize(t *testing.T) {
	regions := []Region{
		{AreaFrac: 1.0, ChangeFrac: 1.0, AvgFlips: 6},
		{AreaFrac: 1.0, ChangeFrac: 0.5, AvgFlips: 8},
	}
	out, err := Normalize(regions)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0].AreaFrac, 1e-12)
	assert.InDelta(t, 0.5, out[1].AreaFrac, 1e-12)
	// change/flips carried over untouched
	assert.Equal(t, 0.5, out[1].ChangeFrac)
	assert.Equal(t, 8.0, out[1].AvgFlips)
	// a new slice; the input keeps its fractions
	assert.Equal(t, 1.0, regions[0].AreaFrac)

	_, err = Normalize([]Region{{AreaFrac: 0}, {AreaFrac: -1}})
	require.Error(t, err)
}

func TestLifetimeQuadrillions(t *testing.T) {
	const rate = 1_492_992_000.0
	life := LifetimeQuadrillions(rate, DefaultYears)
	require.Len(t, life, len(DefaultYears))

	for _, y := range DefaultYears {
		want := rate * SecondsPerYear * float64(y) / 1e15
		require.InDelta(t, want, life[y], 1e-9, "year %d", y)
		t.Logf("%3d years: %12.2f Q", y, life[y])
	}

	// linear in years
	assert.InDelta(t, 10*life[1], life[10], 1e-9)
	assert.InDelta(t, 100*life[1], life[100], 1e-9)
}

func TestYearsToOneQuadrillion(t *testing.T) {
	const rate = 1_492_992_000.0
	got := YearsToOneQuadrillion(rate)
	assert.InDelta(t, 1e15/rate/SecondsPerYear, got, 1e-9)

	// a static bus never wears out under this model
	assert.True(t, math.IsInf(YearsToOneQuadrillion(0), 1))
	assert.True(t, math.IsInf(YearsToOneQuadrillion(-1), 1))
}

func ExampleCalculator_Compute() {
	calc := New(&Params{
		BusWidth:     24,
		PixelClockHz: 148.5e6,
		HRes:         1920,
		VRes:         1080,
		RefreshHz:    60,
		Regions:      []Region{{AreaFrac: 1, ChangeFrac: 1, AvgFlips: 12}},
	})
	if errs := calc.Validate(); len(errs) > 0 {
		fmt.Println(errs)
		return
	}
	res := calc.Compute()
	fmt.Printf("AF=%.2f per-pin=%.0f toggles/s\n", res.AF, res.PerPin.PerSecond())
	// Output: AF=0.50 per-pin=62208000 toggles/s
}
