package audio

// LinearFadeCurve constructs a plain linear amplitude ramp (not the
// dB-linear fade_curve of §4.1): 1.0 -> 0.0 for Out, 0.0 -> 1.0 for
// In, over n samples. Used only where the data model has no
// fade_bottom to anchor a logarithmic floor (the Overlap transition's
// asymmetric linear fade on Song A, §4.5).
func LinearFadeCurve(kind FadeKind, nSamples int) []float32 {
	if nSamples <= 0 {
		return []float32{}
	}
	out := make([]float32, nSamples)
	for i := 0; i < nSamples; i++ {
		var t float64
		if nSamples > 1 {
			t = float64(i) / float64(nSamples-1)
		}
		switch kind {
		case FadeOut:
			out[i] = float32(1 - t)
		case FadeIn:
			out[i] = float32(t)
		}
	}
	return out
}

// ApplyLinearFade is LinearFadeCurve's in-place counterpart to
// ApplyFade/ApplyEqualPowerFade.
func ApplyLinearFade(b *Buffer, kind FadeKind, nSamples int, atStart bool) {
	applyCurve(b, LinearFadeCurve(kind, nSamples), atStart)
}
