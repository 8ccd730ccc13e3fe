package fontutil

import (
	"golang.org/x/image/math/fixed"
)

func Float64ToFixed266(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
