/*
Package bitint provides the power-of-2 checks used for FFT and chunk sizing.

	// Verify FFT window size is valid
	isValid := bitint.IsPowerOfTwo(windowSize)
*/
package bitint

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of 2, or -1 when n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	exp := 0
	for n > 1 {
		n >>= 1
		exp++
	}
	return exp
}
