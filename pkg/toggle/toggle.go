package toggle

import (
	"fmt"
	"math"

	"github.com/kbright/togglecalc/pkg/types"
)

// SecondsPerYear deliberately ignores leap years; lifetime figures stay
// comparable with earlier estimates made with the same constant.
const SecondsPerYear = 60 * 60 * 24 * 365

// DefaultYears are the projection horizons used when the caller has no
// preference.
var DefaultYears = []int{1, 5, 10, 25, 50, 75, 100}

// Calculator computes bus toggle activity and lifetime estimates for one
// validated Params. It holds no state across calls.
type Calculator struct {
	p *Params
}

// New creates a calculator for p, filling unset fields with defaults.
// Notes:
//   - nil p: full defaults (24-bit 1080p60, desktop content mix).
//   - nil Regions: the default desktop mix.
//   - PinCount == 0: defaults to BusWidth.
//
// No validation happens here; call Validate before Compute.
func New(p *Params) *Calculator {
	if p == nil {
		return &Calculator{p: _defaultParams()}
	}

	merged := *p
	if merged.Regions == nil {
		merged.Regions = _defaultParams().Regions
	}
	if merged.PinCount == 0 {
		merged.PinCount = merged.BusWidth
	}
	return &Calculator{p: &merged}
}

// Params returns the merged parameters the calculator operates on.
func (c *Calculator) Params() *Params { return c.p }

// Validate checks every range and consistency constraint and returns the
// full list of problems, empty when the configuration is valid. Violations
// are data for the caller to surface, not errors; nothing short-circuits.
func (c *Calculator) Validate() []string {
	p := c.p
	var errs []string

	if p.BusWidth <= 0 {
		errs = append(errs, fmt.Sprintf("bus width W=%d must be positive", p.BusWidth))
	}
	if p.PixelClockHz <= 0 {
		errs = append(errs, fmt.Sprintf("pixel clock f_p=%g Hz must be positive", p.PixelClockHz))
	}
	if p.HRes <= 0 {
		errs = append(errs, fmt.Sprintf("H resolution=%d must be positive", p.HRes))
	}
	if p.VRes <= 0 {
		errs = append(errs, fmt.Sprintf("V resolution=%d must be positive", p.VRes))
	}
	if p.RefreshHz <= 0 {
		errs = append(errs, fmt.Sprintf("refresh rate=%g Hz must be positive", p.RefreshHz))
	}
	if p.RhoOverride < 0 {
		errs = append(errs, fmt.Sprintf("rho override=%g cannot be negative", p.RhoOverride))
	}
	if p.PinCount <= 0 {
		errs = append(errs, fmt.Sprintf("pin count=%d must be positive", p.PinCount))
	}

	if len(p.Regions) == 0 {
		errs = append(errs, "at least one region must be defined")
	} else {
		var alphaSum float64
		for _, r := range p.Regions {
			alphaSum += r.AreaFrac
		}
		if math.Abs(alphaSum-1.0) > 0.001 {
			errs = append(errs, fmt.Sprintf("region area fractions sum to %g, should be 1.0", alphaSum))
		}
		for i, r := range p.Regions {
			for _, e := range r.validate(p.BusWidth) {
				errs = append(errs, fmt.Sprintf("region %d: %s", i+1, e))
			}
		}
	}

	// The clock must be able to sustain the active pixel stream.
	activeRate := float64(p.HRes) * float64(p.VRes) * p.RefreshHz
	if p.PixelClockHz < activeRate {
		errs = append(errs, fmt.Sprintf(
			"pixel clock (%.0f Hz) < active rate (%.0f px/s) - impossible configuration",
			p.PixelClockHz, activeRate))
	}

	return errs
}

func (r Region) validate(busWidth int) []string {
	var errs []string
	if r.AreaFrac < 0 || r.AreaFrac > 1 {
		errs = append(errs, fmt.Sprintf("area fraction=%g must be in [0, 1]", r.AreaFrac))
	}
	if r.ChangeFrac < 0 || r.ChangeFrac > 1 {
		errs = append(errs, fmt.Sprintf("change fraction=%g must be in [0, 1]", r.ChangeFrac))
	}
	if r.AvgFlips < 0 || r.AvgFlips > float64(busWidth) {
		errs = append(errs, fmt.Sprintf("avg flips=%g must be in [0, %d]", r.AvgFlips, busWidth))
	}
	return errs
}

// Compute derives the full activity picture. It assumes Validate returned
// no problems; behavior on an invalid Params is unspecified.
func (c *Calculator) Compute() Result {
	p := c.p

	// Weighted average Hamming distance per pixel per frame.
	var hAvg float64
	for _, r := range p.Regions {
		hAvg += r.AreaFrac * r.ChangeFrac * r.AvgFlips
	}

	activeRate := float64(p.HRes) * float64(p.VRes) * p.RefreshHz

	// Blanking factor: total pixel clocks per active pixel. Informational
	// only; active-only toggle counting already excludes blanking.
	rho := p.RhoOverride
	if rho <= 0 {
		rho = p.PixelClockHz / activeRate
	}

	af := hAvg / float64(p.BusWidth)

	togglesPerSec := activeRate * hAvg
	perPin := togglesPerSec / float64(p.BusWidth)
	totalPins := perPin * float64(p.PinCount)

	return Result{
		HAvg:          hAvg,
		ActiveRate:    types.Rate(activeRate),
		PixelClockHz:  p.PixelClockHz,
		Rho:           rho,
		AF:            af,
		TogglesPerSec: types.Rate(togglesPerSec),
		PerPin:        types.Rate(perPin),
		TotalPins:     types.Rate(totalPins),
	}
}

// Normalize rescales region area fractions so they sum to 1, returning a new
// slice. Validate never does this; renormalizing is an explicit caller
// decision. Errors when the fractions sum to zero or less.
func Normalize(regions []Region) ([]Region, error) {
	var sum float64
	for _, r := range regions {
		sum += r.AreaFrac
	}
	if sum <= 0 {
		return nil, fmt.Errorf("region area fractions sum to %g, must be > 0", sum)
	}

	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{AreaFrac: r.AreaFrac / sum, ChangeFrac: r.ChangeFrac, AvgFlips: r.AvgFlips}
	}
	return out, nil
}

// LifetimeQuadrillions projects cumulative toggles, in units of 1e15, for
// each year count.
func LifetimeQuadrillions(togglesPerSec float64, years []int) map[int]float64 {
	out := make(map[int]float64, len(years))
	for _, y := range years {
		out[y] = togglesPerSec * SecondsPerYear * float64(y) / 1e15
	}
	return out
}

// YearsToOneQuadrillion returns the years needed to accumulate 1e15 toggles.
// A non-positive rate means a static bus, which never gets there: +Inf, not
// an error.
func YearsToOneQuadrillion(togglesPerSec float64) float64 {
	if togglesPerSec <= 0 {
		return math.Inf(1)
	}
	return 1e15 / togglesPerSec / SecondsPerYear
}
