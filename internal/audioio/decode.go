// Package audioio bridges the engine's audio.Buffer type to on-disk
// formats: WAV and MP3 input decode via go-audio/wav and go-mp3, FLAC
// input decode via pchchv/flac, WAV output encode via go-audio/wav,
// and FLAC output encode by shelling out to a reference flac encoder
// binary (see encode_flac.go for why this step avoids a pure-Go API).
package audioio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pchchv/flac"

	junctionaudio "github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/xerrors"
)

// DecodeFile reads a WAV, MP3, or FLAC file into a stereo Buffer,
// dispatching on the file extension. Mono input is duplicated to
// stereo, matching §6's input contract.
func DecodeFile(path string) (*junctionaudio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &xerrors.SourceMissingError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".flac":
		return decodeFLAC(f)
	default:
		return nil, fmt.Errorf("unsupported input extension %q for %s", filepath.Ext(path), path)
	}
}

func decodeWAV(r io.ReadSeeker) (*junctionaudio.Buffer, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if !d.WasPCMAccessed() {
		// ReadInfo only reads the header; PCMBuffer triggers the rest.
	}
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	buf := &audio.IntBuffer{Format: &audio.Format{SampleRate: int(d.SampleRate), NumChannels: int(d.NumChans)}}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	buf = pcm
	return intBufferToStereo(buf)
}

func decodeMP3(r io.Reader) (*junctionaudio.Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	// go-mp3 always produces 16-bit little-endian stereo PCM.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 stream: %w", err)
	}
	return pcm16StereoToBuffer(raw, dec.SampleRate())
}

func decodeFLAC(r io.Reader) (*junctionaudio.Buffer, error) {
	stream, err := flac.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decode flac: %w", err)
	}
	rate := int(stream.Info.SampleRate)
	channels := int(stream.Info.NChannels)
	bps := int(stream.Info.BitsPerSample)

	left := make([]float32, 0, stream.Info.NSamples)
	right := make([]float32, 0, stream.Info.NSamples)
	scale := float32(int64(1) << uint(bps-1))

	for {
		frame, ferr := stream.ParseNext()
		if ferr == io.EOF {
			break
		}
		if ferr != nil {
			return nil, fmt.Errorf("decode flac frame: %w", ferr)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			l := float32(frame.Subframes[0].Samples[i]) / scale
			var rr float32
			if channels > 1 {
				rr = float32(frame.Subframes[1].Samples[i]) / scale
			} else {
				rr = l
			}
			left = append(left, l)
			right = append(right, rr)
		}
	}
	return &junctionaudio.Buffer{Left: left, Right: right, SampleRate: rate}, nil
}

// intBufferToStereo converts a go-audio IntBuffer (any bit depth,
// mono or stereo) to a float32 stereo Buffer, duplicating mono to
// stereo.
func intBufferToStereo(buf *audio.IntBuffer) (*junctionaudio.Buffer, error) {
	channels := buf.Format.NumChannels
	if channels == 0 {
		channels = 1
	}
	maxVal := float32(int(1) << uint(buf.SourceBitDepth-1))
	if buf.SourceBitDepth == 0 {
		maxVal = float32(1 << 15)
	}
	n := len(buf.Data) / channels
	out := junctionaudio.NewBuffer(buf.Format.SampleRate, n)
	for i := 0; i < n; i++ {
		l := float32(buf.Data[i*channels]) / maxVal
		var r float32
		if channels > 1 {
			r = float32(buf.Data[i*channels+1]) / maxVal
		} else {
			r = l
		}
		out.Left[i] = l
		out.Right[i] = r
	}
	return out, nil
}

// pcm16StereoToBuffer converts raw little-endian 16-bit stereo PCM
// (go-mp3's native output format) to a float32 stereo Buffer.
func pcm16StereoToBuffer(raw []byte, sampleRate int) (*junctionaudio.Buffer, error) {
	const bytesPerFrame = 4 // 2 channels * 2 bytes
	n := len(raw) / bytesPerFrame
	out := junctionaudio.NewBuffer(sampleRate, n)
	for i := 0; i < n; i++ {
		lBits := int16(raw[i*4]) | int16(raw[i*4+1])<<8
		rBits := int16(raw[i*4+2]) | int16(raw[i*4+3])<<8
		out.Left[i] = float32(lBits) / 32768.0
		out.Right[i] = float32(rBits) / 32768.0
	}
	return out, nil
}
