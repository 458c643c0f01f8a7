package audio

// Resample converts b to targetRate via linear interpolation. A
// no-op (returns b unchanged) when the rates already match, which is
// the common case once the stem store and source files agree on a
// project sample rate.
func Resample(b *Buffer, targetRate int) *Buffer {
	if b.SampleRate == targetRate || b.Len() == 0 {
		return b
	}
	ratio := float64(targetRate) / float64(b.SampleRate)
	outLen := int(float64(b.Len()) * ratio)
	out := NewBuffer(targetRate, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		i1 := i0 + 1
		frac := float32(srcPos - float64(i0))
		if i1 >= b.Len() {
			i1 = b.Len() - 1
		}
		if i0 >= b.Len() {
			i0 = b.Len() - 1
		}
		out.Left[i] = b.Left[i0] + (b.Left[i1]-b.Left[i0])*frac
		out.Right[i] = b.Right[i0] + (b.Right[i1]-b.Right[i0])*frac
	}
	return out
}
