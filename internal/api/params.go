package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// maxDays caps the history window a request may ask for.
const maxDays = 10000

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "parameter %s must be an integer, got %q", name, raw)
	}

	return v, nil
}

// floatParam parses an optional float query parameter.
func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "parameter %s must be a number, got %q", name, raw)
	}

	return v, nil
}

// daysParam parses the days window with the endpoint's default, bounded to
// [1, maxDays].
func daysParam(r *http.Request, def int) (int, error) {
	days, err := intParam(r, "days", def)
	if err != nil {
		return 0, err
	}

	if days < 1 || days > maxDays {
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "parameter days must be between 1 and %d, got %d", maxDays, days)
	}

	return days, nil
}

// windowsParam parses a comma-separated list of positive window lengths, used
// by the chart overlays.
func windowsParam(r *http.Request, name string, def []int) ([]int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	parts := strings.Split(raw, ",")
	windows := make([]int, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		w, err := strconv.Atoi(part)
		if err != nil || w < 1 {
			return nil, errors.Newf(errors.ErrCodeInvalidArgument, "parameter %s must be a comma-separated list of positive integers, got %q", name, raw)
		}

		windows = append(windows, w)
	}

	return windows, nil
}
