package audioio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	junctionaudio "github.com/streamsplice/junction/internal/audio"
)

// WriteWAV encodes b as 16-bit PCM stereo WAV at path.
func WriteWAV(path string, b *junctionaudio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, b.SampleRate, 16, 2, 1)
	intData := make([]int, b.Len()*2)
	for i := 0; i < b.Len(); i++ {
		intData[i*2] = int(clampInt16(b.Left[i]))
		intData[i*2+1] = int(clampInt16(b.Right[i]))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: b.SampleRate, NumChannels: 2},
		Data:           intData,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav %s: %w", path, err)
	}
	return enc.Close()
}

func clampInt16(v float32) int16 {
	scaled := v * 32767.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
