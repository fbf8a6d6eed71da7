package backtest

import (
	"fmt"

	"github.com/quantdesk-lab/quantdesk/internal/indicator"
	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// StrategyType identifies a signal rule. The set is closed; selection goes
// through ParseStrategyType and an exhaustive switch.
type StrategyType string

const (
	StrategyMovingAverage StrategyType = "moving_average"
	StrategyRSI           StrategyType = "rsi"
	StrategyBuyAndHold    StrategyType = "buy_and_hold"
)

// ParseStrategyType resolves a strategy name. Unknown names are a client
// error.
func ParseStrategyType(name string) (StrategyType, error) {
	switch StrategyType(name) {
	case StrategyMovingAverage, StrategyRSI, StrategyBuyAndHold:
		return StrategyType(name), nil
	default:
		return "", errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy %q", name)
	}
}

// StrategySpec configures one backtest run.
type StrategySpec struct {
	Type StrategyType

	// Moving average crossover windows.
	ShortWindow int
	LongWindow  int

	// RSI threshold rule.
	RSIWindow  int
	Oversold   float64
	Overbought float64
}

// DefaultSpec returns the conventional parameters for a strategy type:
// MA(5,20) and RSI(14,30,70).
func DefaultSpec(t StrategyType) StrategySpec {
	return StrategySpec{
		Type:        t,
		ShortWindow: 5,
		LongWindow:  20,
		RSIWindow:   14,
		Oversold:    30,
		Overbought:  70,
	}
}

// Name returns the display name of the configured strategy, e.g. "MA(5,20)".
func (s StrategySpec) Name() string {
	switch s.Type {
	case StrategyMovingAverage:
		return fmt.Sprintf("MA(%d,%d)", s.ShortWindow, s.LongWindow)
	case StrategyRSI:
		return fmt.Sprintf("RSI(%d,%v,%v)", s.RSIWindow, s.Oversold, s.Overbought)
	case StrategyBuyAndHold:
		return "Buy and Hold"
	default:
		return string(s.Type)
	}
}

func (s StrategySpec) validate() error {
	switch s.Type {
	case StrategyMovingAverage:
		if s.ShortWindow < 1 || s.LongWindow < 1 {
			return errors.Newf(errors.ErrCodeInvalidWindow,
				"crossover windows must be at least 1, got %d and %d", s.ShortWindow, s.LongWindow)
		}
		if s.ShortWindow >= s.LongWindow {
			return errors.Newf(errors.ErrCodeInvalidWindow,
				"short window %d must be shorter than long window %d", s.ShortWindow, s.LongWindow)
		}
	case StrategyRSI:
		if s.RSIWindow < 1 {
			return errors.Newf(errors.ErrCodeInvalidWindow, "rsi window must be at least 1, got %d", s.RSIWindow)
		}
		if s.Oversold >= s.Overbought {
			return errors.Newf(errors.ErrCodeInvalidArgument,
				"oversold threshold %v must be below overbought threshold %v", s.Oversold, s.Overbought)
		}
	case StrategyBuyAndHold:
	default:
		return errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy %q", s.Type)
	}

	return nil
}

// signal produces the strategy's 0/1 position series. Every position is
// defined; bars where the rule has no opinion hold the prior position (RSI)
// or stay flat (crossover warm-up).
func (s StrategySpec) signal(prices *series.PriceSeries) (*series.Series, error) {
	switch s.Type {
	case StrategyMovingAverage:
		return crossoverSignal(prices, s.ShortWindow, s.LongWindow)
	case StrategyRSI:
		return rsiSignal(prices, s.RSIWindow, s.Oversold, s.Overbought)
	case StrategyBuyAndHold:
		out := make([]float64, prices.Len())
		for i := range out {
			out[i] = 1
		}
		return series.New(out), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy %q", s.Type)
	}
}

// crossoverSignal is long exactly when both averages are defined and the
// short one is strictly above the long one. Positions before shortWindow are
// flat regardless.
func crossoverSignal(prices *series.PriceSeries, shortWindow, longWindow int) (*series.Series, error) {
	closes := prices.Closes()

	shortMA, err := indicator.SMA(closes, shortWindow)
	if err != nil {
		return nil, err
	}
	longMA, err := indicator.SMA(closes, longWindow)
	if err != nil {
		return nil, err
	}

	out := make([]float64, prices.Len())
	for i := range out {
		if i < shortWindow {
			continue
		}
		if shortMA.IsDefined(i) && longMA.IsDefined(i) && shortMA.At(i) > longMA.At(i) {
			out[i] = 1
		}
	}

	return series.New(out), nil
}

// rsiSignal enters below the oversold threshold, exits above the overbought
// threshold, and otherwise carries the previous position forward. Before the
// first defined RSI the position is flat.
func rsiSignal(prices *series.PriceSeries, window int, oversold, overbought float64) (*series.Series, error) {
	rsi, err := indicator.RSI(prices.Closes(), window)
	if err != nil {
		return nil, err
	}

	out := make([]float64, prices.Len())
	position := 0.0
	for i := range out {
		if rsi.IsDefined(i) {
			switch {
			case rsi.At(i) < oversold:
				position = 1
			case rsi.At(i) > overbought:
				position = 0
			}
		}
		out[i] = position
	}

	return series.New(out), nil
}
