// Package audio implements the stereo float32 buffer type and the
// sample-level primitives (fades, mixing, concatenation) the
// transition synthesis engine builds on.
package audio

import (
	"math"

	"github.com/streamsplice/junction/internal/xerrors"
)

// Buffer is a stereo PCM buffer: two equal-length channels of 32-bit
// float samples plus the sample rate they were captured or rendered
// at. Samples are unconstrained in range until Clip is called.
type Buffer struct {
	Left       []float32
	Right      []float32
	SampleRate int
}

// NewBuffer allocates a zeroed stereo buffer of n samples per channel.
func NewBuffer(sampleRate, n int) *Buffer {
	return &Buffer{
		Left:       make([]float32, n),
		Right:      make([]float32, n),
		SampleRate: sampleRate,
	}
}

// Silence returns a stereo buffer of n zero samples.
func Silence(sampleRate, n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return NewBuffer(sampleRate, n)
}

// Len returns the number of samples per channel.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Left)
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Left:       make([]float32, len(b.Left)),
		Right:      make([]float32, len(b.Right)),
		SampleRate: b.SampleRate,
	}
	copy(out.Left, b.Left)
	copy(out.Right, b.Right)
	return out
}

// Slice returns a new buffer covering [start, end) samples. end is
// clamped to the buffer length; start is clamped to 0.
func (b *Buffer) Slice(start, end int) *Buffer {
	if start < 0 {
		start = 0
	}
	if end > b.Len() {
		end = b.Len()
	}
	if end < start {
		end = start
	}
	out := &Buffer{SampleRate: b.SampleRate}
	out.Left = append(out.Left, b.Left[start:end]...)
	out.Right = append(out.Right, b.Right[start:end]...)
	return out
}

// Clip hard-limits every sample to [-1.0, 1.0] in place.
func (b *Buffer) Clip() {
	for i, v := range b.Left {
		b.Left[i] = clip32(v)
	}
	for i, v := range b.Right {
		b.Right[i] = clip32(v)
	}
}

func clip32(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// Mix sums the given buffers sample-by-sample. The output length is
// the maximum input length; shorter inputs are treated as zero-padded
// at the tail. A final clip to [-1.0, 1.0] is applied once, to the
// output only, so intermediate sums are never individually clipped.
func Mix(buffers ...*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return NewBuffer(44100, 0), nil
	}
	rate := buffers[0].SampleRate
	maxLen := 0
	for _, buf := range buffers {
		if buf.SampleRate != rate {
			return nil, &xerrors.SampleRateMismatchError{Expected: rate, Got: buf.SampleRate}
		}
		if buf.Len() > maxLen {
			maxLen = buf.Len()
		}
	}
	out := NewBuffer(rate, maxLen)
	for _, buf := range buffers {
		for i := 0; i < buf.Len(); i++ {
			out.Left[i] += buf.Left[i]
			out.Right[i] += buf.Right[i]
		}
	}
	out.Clip()
	return out, nil
}

// Concat joins buffers end-to-end, sample exact. All inputs must
// share a sample rate.
func Concat(buffers ...*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return NewBuffer(44100, 0), nil
	}
	rate := buffers[0].SampleRate
	total := 0
	for _, buf := range buffers {
		if buf.SampleRate != rate {
			return nil, &xerrors.SampleRateMismatchError{Expected: rate, Got: buf.SampleRate}
		}
		total += buf.Len()
	}
	out := &Buffer{
		Left:       make([]float32, 0, total),
		Right:      make([]float32, 0, total),
		SampleRate: rate,
	}
	for _, buf := range buffers {
		out.Left = append(out.Left, buf.Left...)
		out.Right = append(out.Right, buf.Right...)
	}
	return out, nil
}

// RMS returns the root-mean-square amplitude across both channels.
func (b *Buffer) RMS() float64 {
	if b.Len() == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < b.Len(); i++ {
		l := float64(b.Left[i])
		r := float64(b.Right[i])
		sum += l*l + r*r
	}
	n := float64(2 * b.Len())
	return math.Sqrt(sum / n)
}
