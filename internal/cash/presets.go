// Package cash holds the pure money math for the cash payment path: suggested
// tender denominations and change computation. No state, no collaborators.
package cash

import "errors"

// ErrInvalidAmount signals that the tendered amount does not cover the total.
// Callers must not display or act on a negative change value.
var ErrInvalidAmount = errors.New("tendered amount is less than the total")

// denominations is the fixed ascending domain of quick-tender notes.
var denominations = []float64{5, 10, 20, 50, 100, 200, 500}

// maxPresets caps how many quick-tender buttons the terminal offers.
const maxPresets = 4

// Presets returns up to four denominations covering total, ascending. An
// empty result means no note in the domain covers the total and the operator
// falls back to manual entry.
func Presets(total float64) []float64 {
	presets := make([]float64, 0, maxPresets)
	for _, d := range denominations {
		if d < total {
			continue
		}
		presets = append(presets, d)
		if len(presets) == maxPresets {
			break
		}
	}
	return presets
}

// Change returns tendered - total, or ErrInvalidAmount when that would be
// negative.
func Change(tendered, total float64) (float64, error) {
	change := tendered - total
	if change < 0 {
		return 0, ErrInvalidAmount
	}
	return change, nil
}
