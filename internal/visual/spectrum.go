// ABOUTME: Spectrum analysis for the visualizer
// ABOUTME: Reduces tapped samples to logarithmic band levels with an FFT
package visual

import (
	"math"
	"math/bits"
)

// Spectrum reduces the most recent power-of-two window of samples to
// bands levels in [0, 1], log-spaced from the lowest bin to Nyquist.
// Fewer than 4 samples yields all zeros.
func Spectrum(samples []float64, bands int) []float64 {
	if bands <= 0 {
		return nil
	}
	levels := make([]float64, bands)
	if len(samples) < 4 {
		return levels
	}

	n := 1 << (bits.Len(uint(len(samples))) - 1)
	window := samples[len(samples)-n:]

	buf := make([]complex128, n)
	for i, s := range window {
		hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		buf[i] = complex(s*hann, 0)
	}
	fft(buf)

	half := n / 2
	// A full-scale sine under a Hann window peaks at n/4
	scale := float64(n) / 4
	octaves := math.Log2(float64(half))

	b0 := 1
	for x := range bands {
		b1 := half - 1
		if bands > 1 {
			b1 = int(math.Pow(2, float64(x)*octaves/float64(bands-1)))
		}
		b1 = min(b1, half-1)
		if b1 < b0 {
			b1 = b0
		}

		var peak float64
		for b := b0; b <= b1 && b < half; b++ {
			mag := math.Hypot(real(buf[b]), imag(buf[b])) / scale
			peak = max(peak, mag)
		}

		levels[x] = min(math.Sqrt(peak), 1)
		b0 = b1 + 1
	}
	return levels
}

// fft is an in-place iterative radix-2 transform; len(a) must be a power of two.
func fft(a []complex128) {
	n := len(a)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		sin, cos := math.Sincos(-2 * math.Pi / float64(size))
		wn := complex(cos, sin)
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := range size / 2 {
				u := a[start+k]
				v := w * a[start+k+size/2]
				a[start+k] = u + v
				a[start+k+size/2] = u - v
				w *= wn
			}
		}
	}
}
