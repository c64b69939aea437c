package angle

import "math"

// Pi is π as a float32; headings live in (-Pi, Pi].
const Pi = float32(math.Pi)

const (
	upper = float64(Pi)
	turn  = 2 * math.Pi
)

// Normalize converts a heading in radians of any magnitude to the range
// (-Pi, Pi] by calculating rads mod 2π and shifting into range.
func Normalize(rads float32) float32 {
	d := math.Mod(float64(rads), turn)
	if d <= -upper {
		d += turn
	} else if d > upper {
		d -= turn
	}
	return float32(d)
}

// Diff returns a-b folded into (-Pi, Pi].
func Diff(a, b float32) float32 {
	return Normalize(a - b)
}

// Degrees is for log output only.
func Degrees(rads float32) float64 {
	return float64(rads) * 180 / math.Pi
}
