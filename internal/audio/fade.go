package audio

import "math"

// FadeKind selects the direction of a fade curve.
type FadeKind int

const (
	FadeOut FadeKind = iota
	FadeIn
)

// minFadeFloorDB is the gain floor substituted for a fade_bottom at or
// below 0.001, avoiding log10(0).
const minFadeFloorDB = -60.0

// FadeCurve constructs a logarithmic (dB-linear) gain ramp of
// n_samples values. A fade_bottom >= 1.0 returns an all-ones curve; a
// fade_bottom <= 0.001 clamps the floor at -60 dB. n_samples <= 0
// returns an empty curve, never an error.
func FadeCurve(kind FadeKind, nSamples int, fadeBottom float64) []float32 {
	if nSamples <= 0 {
		return []float32{}
	}
	if fadeBottom >= 1.0 {
		out := make([]float32, nSamples)
		for i := range out {
			out[i] = 1.0
		}
		return out
	}

	minDB := minFadeFloorDB
	if fadeBottom > 0.001 {
		minDB = 20 * math.Log10(fadeBottom)
	}

	out := make([]float32, nSamples)
	for i := 0; i < nSamples; i++ {
		var t float64
		if nSamples > 1 {
			t = float64(i) / float64(nSamples-1)
		}
		var db float64
		switch kind {
		case FadeOut:
			db = t * minDB // 0 -> minDB
		case FadeIn:
			db = minDB + t*(0-minDB) // minDB -> 0
		}
		out[i] = float32(math.Pow(10, db/20))
	}
	return out
}

// EqualPowerFadeCurve constructs an equal-power curve over n samples:
// sqrt(1-t) for Out, sqrt(t) for In, t running linearly from 0 to 1.
// The sum of squared magnitudes of the paired Out/In curves is 1 at
// every point, preserving perceived loudness through a crossfade of
// uncorrelated material.
func EqualPowerFadeCurve(kind FadeKind, nSamples int) []float32 {
	if nSamples <= 0 {
		return []float32{}
	}
	out := make([]float32, nSamples)
	for i := 0; i < nSamples; i++ {
		var t float64
		if nSamples > 1 {
			t = float64(i) / float64(nSamples-1)
		} else {
			t = 0
		}
		switch kind {
		case FadeOut:
			out[i] = float32(math.Sqrt(1 - t))
		case FadeIn:
			out[i] = float32(math.Sqrt(t))
		}
	}
	return out
}

// ApplyFade multiplies the first or last min(nSamples, len(buffer))
// samples of b by the curve produced by kind/fadeBottom, broadcasting
// across both channels. The rest of the buffer is untouched.
func ApplyFade(b *Buffer, kind FadeKind, nSamples int, atStart bool, fadeBottom float64) {
	applyCurve(b, FadeCurve(kind, nSamples, fadeBottom), atStart)
}

// ApplyEqualPowerFade is ApplyFade's equal-power counterpart, used by
// the crossfade transition.
func ApplyEqualPowerFade(b *Buffer, kind FadeKind, nSamples int, atStart bool) {
	applyCurve(b, EqualPowerFadeCurve(kind, nSamples), atStart)
}

func applyCurve(b *Buffer, curve []float32, atStart bool) {
	n := len(curve)
	if n > b.Len() {
		n = b.Len()
		curve = curve[:n]
	}
	if n == 0 {
		return
	}
	var offset int
	if !atStart {
		offset = b.Len() - n
	}
	for i := 0; i < n; i++ {
		b.Left[offset+i] *= curve[i]
		b.Right[offset+i] *= curve[i]
	}
}
