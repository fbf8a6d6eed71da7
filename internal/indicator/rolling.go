package indicator

import (
	"math"

	"github.com/gammazero/deque"
)

// rollingMean computes the trailing-window mean at each position. A position
// is undefined until the window is full and whenever the window contains an
// undefined value.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	undefined := 0

	for i, v := range values {
		if math.IsNaN(v) {
			undefined++
		} else {
			sum += v
		}
		if i >= window {
			if old := values[i-window]; math.IsNaN(old) {
				undefined--
			} else {
				sum -= old
			}
		}
		if i < window-1 || undefined > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}

	return out
}

// rollingStd computes the trailing-window sample standard deviation (ddof=1).
// Undefined under the same conditions as rollingMean; window 1 yields 0.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	sumSq := 0.0
	undefined := 0

	for i, v := range values {
		if math.IsNaN(v) {
			undefined++
		} else {
			sum += v
			sumSq += v * v
		}
		if i >= window {
			if old := values[i-window]; math.IsNaN(old) {
				undefined--
			} else {
				sum -= old
				sumSq -= old * old
			}
		}
		if i < window-1 || undefined > 0 {
			out[i] = math.NaN()
			continue
		}
		if window == 1 {
			out[i] = 0
			continue
		}
		n := float64(window)
		variance := (sumSq - sum*sum/n) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}

	return out
}

// rollingExtremum computes the trailing-window min or max in O(n) with a
// monotonic index deque.
func rollingExtremum(values []float64, window int, max bool) []float64 {
	out := make([]float64, len(values))
	var idx deque.Deque[int]
	undefined := 0

	better := func(candidate, incumbent float64) bool {
		if max {
			return candidate >= incumbent
		}
		return candidate <= incumbent
	}

	for i, v := range values {
		if math.IsNaN(v) {
			undefined++
		}
		if i >= window && math.IsNaN(values[i-window]) {
			undefined--
		}

		for idx.Len() > 0 && idx.Front() <= i-window {
			idx.PopFront()
		}
		if !math.IsNaN(v) {
			for idx.Len() > 0 && better(v, values[idx.Back()]) {
				idx.PopBack()
			}
			idx.PushBack(i)
		}

		if i < window-1 || undefined > 0 || idx.Len() == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[idx.Front()]
	}

	return out
}

func rollingMax(values []float64, window int) []float64 {
	return rollingExtremum(values, window, true)
}

func rollingMin(values []float64, window int) []float64 {
	return rollingExtremum(values, window, false)
}
