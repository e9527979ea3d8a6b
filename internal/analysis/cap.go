// SPDX-License-Identifier: MIT
package analysis

// FrequencyCap is the clipping guard applied to every analyzed chunk: when
// the highest per-channel dominant frequency exceeds the cap, the whole chunk
// is replaced with zeros.
type FrequencyCap float64

// Apply zeroes freqs in place when any value exceeds the cap and reports
// whether it did. A cap of zero or less disables the guard.
func (c FrequencyCap) Apply(freqs []float64) bool {
	if c <= 0 {
		return false
	}
	capped := false
	for _, f := range freqs {
		if f > float64(c) {
			capped = true
			break
		}
	}
	if !capped {
		return false
	}
	for i := range freqs {
		freqs[i] = 0
	}
	return true
}
