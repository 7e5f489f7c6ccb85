package types

import "fmt"

// Rate is a float64 wrapper representing events per second (toggles/s here).
type Rate float64

// Engineering returns the rate with an SI prefix (P, T, G, M, k, m, µ) and
// three decimals, e.g. "1.493 G". Zero formats as "0".
func (r Rate) Engineering() string {
	v := float64(r)
	if v == 0 {
		return "0"
	}

	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e15:
		return fmt.Sprintf("%.3f P", v/1e15)
	case abs >= 1e12:
		return fmt.Sprintf("%.3f T", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.3f G", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.3f M", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.3f k", v/1e3)
	case abs >= 1:
		return fmt.Sprintf("%.3f", v)
	case abs >= 1e-3:
		return fmt.Sprintf("%.3f m", v*1e3)
	case abs >= 1e-6:
		return fmt.Sprintf("%.3f µ", v*1e6)
	default:
		return fmt.Sprintf("%.3e", v)
	}
}

// PerSecond returns the plain float value.
func (r Rate) PerSecond() float64 { return float64(r) }
