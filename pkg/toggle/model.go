package toggle

import "github.com/kbright/togglecalc/pkg/types"

// Region describes one portion of the frame area with uniform activity.
// Units:
//   - AreaFrac: fraction of total frame pixels [0..1]
//   - ChangeFrac: fraction of the region's pixels changing per frame [0..1]
//   - AvgFlips: average bus-bit flips per changed pixel [0..BusWidth]
type Region struct {
	AreaFrac   float64
	ChangeFrac float64
	AvgFlips   float64
}

// Params holds display and content parameters for one calculation.
// Units:
//   - BusWidth: parallel data bits (16/18/24 for typical RGB interfaces)
//   - PixelClockHz: Hz (MHz inputs are converted at the flag/preset boundary)
//   - HRes/VRes: active pixels
//   - RefreshHz: frames per second
//   - RhoOverride: manual blanking factor, 0 means auto
//   - PinCount: pins to scale aggregate rates over, 0 means BusWidth
type Params struct {
	BusWidth     int
	PixelClockHz float64
	HRes         int
	VRes         int
	RefreshHz    float64
	Regions      []Region
	RhoOverride  float64
	PinCount     int
}

// _defaultParams returns Params pre-filled for a 24-bit 1080p60 bus showing
// mixed desktop content.
func _defaultParams() *Params {
	return &Params{
		BusWidth:     24,
		PixelClockHz: 148.5e6,
		HRes:         1920,
		VRes:         1080,
		RefreshHz:    60.0,
		Regions: []Region{
			{AreaFrac: 0.30, ChangeFrac: 0.0, AvgFlips: 0},  // static
			{AreaFrac: 0.50, ChangeFrac: 0.10, AvgFlips: 8}, // moderate activity
			{AreaFrac: 0.20, ChangeFrac: 1.0, AvgFlips: 12}, // video/animation
		},
		RhoOverride: 0,
	}
}

// Result is the derived activity picture for one Params. Rho reflects
// blanking overhead only; it does not scale the toggle rates (the bus is
// modeled as idle during blanking).
type Result struct {
	HAvg          float64    // avg bit flips per pixel per frame
	ActiveRate    types.Rate // active pixel transfers per second
	PixelClockHz  float64    // Hz
	Rho           float64    // blanking factor, informational
	AF            float64    // fraction of bus bits flipping per transfer
	TogglesPerSec types.Rate // whole bus, active transfers only
	PerPin        types.Rate // TogglesPerSec / BusWidth
	TotalPins     types.Rate // PerPin * PinCount
}
