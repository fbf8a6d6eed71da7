// Package indicator implements the technical indicators of the engine as pure
// functions over series. Every function returns a series aligned 1:1 with its
// input, with undefined positions (warm-up windows, undefined deltas) marked
// NaN. No function fills undefined positions, logs, or touches I/O.
//
// Windows count positions. A window longer than the series is not an error;
// it yields an all-undefined result. Each computation runs in a single O(n)
// pass (rolling extrema use monotonic deques).
package indicator

import (
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Kind identifies an indicator group exposed by the service. The set is
// closed: selection goes through ParseKind and an exhaustive switch, never a
// dynamic registry.
type Kind string

const (
	KindMA         Kind = "ma"
	KindBollinger  Kind = "bollinger"
	KindRSI        Kind = "rsi"
	KindMACD       Kind = "macd"
	KindStochastic Kind = "stochastic"
	KindATR        Kind = "atr"
	KindVolume     Kind = "volume"
)

// AllKinds returns every indicator group in presentation order.
func AllKinds() []Kind {
	return []Kind{KindMA, KindBollinger, KindRSI, KindMACD, KindStochastic, KindATR, KindVolume}
}

// ParseKind resolves a group name. Unknown names are a client error.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindMA, KindBollinger, KindRSI, KindMACD, KindStochastic, KindATR, KindVolume:
		return Kind(name), nil
	default:
		return "", errors.Newf(errors.ErrCodeUnknownIndicator, "unknown indicator %q", name)
	}
}

func validateWindow(name string, window int) error {
	if window < 1 {
		return errors.Newf(errors.ErrCodeInvalidWindow, "%s window must be at least 1, got %d", name, window)
	}

	return nil
}

func validateInput(name string, length int) error {
	if length == 0 {
		return errors.Newf(errors.ErrCodeInvalidSeries, "%s requires a non-empty series", name)
	}

	return nil
}
