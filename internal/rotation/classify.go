package rotation

import "math"

// squareTolerance is how far the width/height ratio may stray from 1.0 and
// still classify as square. Inclusive at the boundary.
const squareTolerance = 0.08

// Classify maps a width/height pair to an Orientation. Zero or negative
// dimensions classify as square, the safe bucket for unknown media. The same
// function classifies the screen's own dimensions to select the active bucket.
func Classify(w, h int) Orientation {
	if w <= 0 || h <= 0 {
		return Square
	}
	// |w/h - 1| <= tolerance, cross-multiplied so the boundary stays
	// inclusive under float rounding.
	if math.Abs(float64(w-h)) <= squareTolerance*float64(h) {
		return Square
	}
	if w > h {
		return Landscape
	}
	return Portrait
}
