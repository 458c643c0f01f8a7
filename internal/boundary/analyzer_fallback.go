package boundary

import (
	"context"
	"log/slog"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/streamsplice/junction/internal/audioio"
)

// CPUAnalyzer is the local fallback AnalyzerDriver used when no
// dedicated analysis service is configured. Unlike a constant-
// placeholder stub it runs real, if lower-fidelity, signal processing:
// spectral-flux onset detection feeding an autocorrelation tempo
// estimate, and chroma-profile correlation (Krumhardt/Krumhansl key
// profiles) for key detection.
type CPUAnalyzer struct {
	logger *slog.Logger
}

// NewCPUAnalyzer constructs a CPUAnalyzer.
func NewCPUAnalyzer(logger *slog.Logger) *CPUAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CPUAnalyzer{logger: logger}
}

const (
	onsetFrameSize = 2048
	onsetHopSize   = 512
	keyFrameSize   = 4096
	keyHopSize     = 2048
)

// Analyze decodes path and runs the CPU fallback pipeline over it. It
// never produces stems: source separation is an external ML
// collaborator this system only defines the interface for, so
// wantStems is accepted but always yields an empty stemsDir here.
func (a *CPUAnalyzer) Analyze(ctx context.Context, path string, wantStems bool) (*AnalysisRecord, string, error) {
	buf, err := audioio.DecodeFile(path)
	if err != nil {
		return nil, "", err
	}
	a.logger.Warn("using CPU fallback analyzer, results are lower fidelity than a dedicated analysis service", "path", path)

	mono := make([]float32, buf.Len())
	for i := range mono {
		mono[i] = (buf.Left[i] + buf.Right[i]) / 2
	}
	sr := buf.SampleRate
	duration := float64(buf.Len()) / float64(sr)

	onset := onsetEnvelope(mono, sr, onsetFrameSize, onsetHopSize)
	bpm := estimateBPM(onset, sr, onsetHopSize)
	beats := estimateBeatTimes(onset, sr, duration, bpm, onsetHopSize)
	downbeats := everyNthBeat(beats, 4)

	keyName, mode, confidence := detectKey(mono, sr)
	loudness := integratedLoudnessDB(mono)

	sections := estimateSections(duration)

	return &AnalysisRecord{
		DurationSeconds: duration,
		TempoBPM:        bpm,
		MusicalKey:      keyName,
		MusicalMode:     mode,
		KeyConfidence:   confidence,
		LoudnessDB:      loudness,
		Beats:           beats,
		Downbeats:       downbeats,
		Sections:        sections,
	}, "", nil
}

func everyNthBeat(beats []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	var out []float64
	for i := 0; i < len(beats); i += n {
		out = append(out, beats[i])
	}
	return out
}

// estimateSections splits the track into a coarse intro/body/outro
// shape; the CPU fallback has no phrase-boundary detector, so this is
// a deliberately simple heuristic rather than a claim of musical
// accuracy.
func estimateSections(duration float64) []RecordSection {
	if duration <= 0 {
		return nil
	}
	introEnd := math.Min(duration*0.1, 20)
	outroStart := math.Max(duration*0.9, duration-20)
	if outroStart <= introEnd {
		return []RecordSection{{Label: "body", Start: 0, End: duration}}
	}
	return []RecordSection{
		{Label: "intro", Start: 0, End: introEnd},
		{Label: "body", Start: introEnd, End: outroStart},
		{Label: "outro", Start: outroStart, End: duration},
	}
}

func nextPow2(n int) int {
	v := 1
	for v < n {
		v <<= 1
	}
	return v
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// onsetEnvelope computes spectral flux per frame: the positive part of
// the frame-to-frame magnitude-spectrum difference, a standard onset
// strength signal.
func onsetEnvelope(samples []float32, sr, frameSize, hopSize int) []float64 {
	n := len(samples)
	numFrames := (n - frameSize) / hopSize
	if numFrames <= 0 {
		return nil
	}
	fftSize := nextPow2(frameSize)
	window := hannWindow(frameSize)
	fft := fourier.NewFFT(fftSize)

	onset := make([]float64, numFrames)
	prevMag := make([]float64, fftSize/2+1)
	frame := make([]float64, fftSize)

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		for k := range frame {
			frame[k] = 0
		}
		for j := 0; j < frameSize && start+j < n; j++ {
			frame[j] = float64(samples[start+j]) * window[j]
		}
		spec := fft.Coefficients(nil, frame)

		flux := 0.0
		for j, c := range spec {
			mag := cmplx.Abs(c)
			if d := mag - prevMag[j]; d > 0 {
				flux += d
			}
			prevMag[j] = mag
		}
		onset[i] = flux
	}
	return onset
}

// estimateBPM autocorrelates the onset envelope over the 60-200 BPM
// lag range, biasing toward the 120-130 BPM band to suppress octave
// errors (half/double-tempo confusion).
func estimateBPM(onset []float64, sr, hopSize int) float64 {
	if len(onset) < 100 {
		return 120.0
	}

	minLag := sr * 60 / (200 * hopSize)
	maxLag := sr * 60 / (60 * hopSize)
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	bestLag := minLag
	bestScore := -1.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		count := 0
		for i := 0; i+lag < len(onset); i++ {
			corr += onset[i] * onset[i+lag]
			count++
		}
		if count > 0 {
			corr /= float64(count)
		}

		bpmApprox := 60.0 / (float64(lag) * float64(hopSize) / float64(sr))
		weight := math.Exp(-0.5 * math.Pow((bpmApprox-125.0)/40.0, 2))
		score := corr * (0.8 + 0.2*weight)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	period := float64(bestLag) * float64(hopSize) / float64(sr)
	if period <= 0 {
		return 120.0
	}
	bpm := 60.0 / period
	for bpm > 200 {
		bpm /= 2
	}
	for bpm < 60 {
		bpm *= 2
	}
	return math.Round(bpm*10) / 10
}

// estimateBeatTimes anchors on the strongest onset in the first five
// seconds and tiles beatPeriod forward and backward from there.
func estimateBeatTimes(onset []float64, sr int, duration, bpm float64, hopSize int) []float64 {
	if bpm <= 0 {
		bpm = 120
	}
	period := 60.0 / bpm

	anchor := 0.0
	if len(onset) > 0 {
		searchFrames := int(5.0 * float64(sr) / float64(hopSize))
		if searchFrames > len(onset) {
			searchFrames = len(onset)
		}
		bestIdx, bestVal := 0, 0.0
		for i := 0; i < searchFrames; i++ {
			if onset[i] > bestVal {
				bestVal = onset[i]
				bestIdx = i
			}
		}
		anchor = float64(bestIdx) * float64(hopSize) / float64(sr)
	}

	var beats []float64
	for t := anchor; t >= 0; t -= period {
		beats = append(beats, math.Round(t*1000)/1000)
	}
	for t := anchor + period; t < duration; t += period {
		beats = append(beats, math.Round(t*1000)/1000)
	}
	sort.Float64s(beats)
	return beats
}

var (
	pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// detectKey builds a chroma vector from FFT bin energies folded into
// 12 pitch classes, then correlates every rotation against the
// Krumhansl major/minor key profiles, returning the best match and the
// winning correlation as a confidence proxy.
func detectKey(samples []float32, sr int) (pitchClass, mode string, confidence float64) {
	n := len(samples)
	numFrames := (n - keyFrameSize) / keyHopSize
	if numFrames <= 0 {
		return "C", "major", 0
	}

	fftSize := nextPow2(keyFrameSize)
	window := hannWindow(keyFrameSize)
	fft := fourier.NewFFT(fftSize)
	chroma := make([]float64, 12)
	frame := make([]float64, fftSize)

	for i := 0; i < numFrames; i++ {
		start := i * keyHopSize
		for k := range frame {
			frame[k] = 0
		}
		for j := 0; j < keyFrameSize && start+j < n; j++ {
			frame[j] = float64(samples[start+j]) * window[j]
		}
		spec := fft.Coefficients(nil, frame)
		for bin := 1; bin < len(spec); bin++ {
			freq := float64(bin) * float64(sr) / float64(fftSize)
			if freq < 65 || freq > 4000 {
				continue
			}
			semitones := 12 * math.Log2(freq/261.63)
			pc := ((int(math.Round(semitones)) % 12) + 12) % 12
			chroma[pc] += cmplx.Abs(spec[bin])
		}
	}

	bestCorr := -2.0
	bestPC, bestMode := "C", "major"
	for rot := 0; rot < 12; rot++ {
		rolled := make([]float64, 12)
		for j := 0; j < 12; j++ {
			rolled[j] = chroma[(j+rot)%12]
		}
		if c := pearson(rolled, majorProfile); c > bestCorr {
			bestCorr, bestPC, bestMode = c, pitchClasses[rot], "major"
		}
		if c := pearson(rolled, minorProfile); c > bestCorr {
			bestCorr, bestPC, bestMode = c, pitchClasses[rot], "minor"
		}
	}

	confidence = math.Max(0, math.Min(1, (bestCorr+1)/2))
	return bestPC, bestMode, confidence
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}
	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}
	num := float64(n)*sumAB - sumA*sumB
	den := math.Sqrt((float64(n)*sumA2 - sumA*sumA) * (float64(n)*sumB2 - sumB*sumB))
	if den < 1e-12 {
		return 0
	}
	return num / den
}

// integratedLoudnessDB is a simple RMS-to-dB estimate, not a full ITU-R
// BS.1770 integrated loudness measurement (that would require K-
// weighting and gated windows, out of scope for the CPU fallback).
func integratedLoudnessDB(samples []float32) float64 {
	if len(samples) == 0 {
		return -70.0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	return 20 * math.Log10(rms+1e-9)
}
