package audioio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	junctionaudio "github.com/streamsplice/junction/internal/audio"
)

// FlacEncoder shells out to a reference `flac` encoder binary rather
// than a pure-Go FLAC encoder: no FLAC-encode library in the retrieval
// pack has enough source exposed to ground its API, so this mirrors
// the exec.Command(ffmpegPath, ...) pattern used elsewhere in the pack
// for audio rendering, substituting the canonical flac CLI.
type FlacEncoder struct {
	// BinaryPath is the flac executable to invoke. Defaults to "flac"
	// (resolved via PATH) when empty.
	BinaryPath string
}

// Encode writes b to outputPath as FLAC, PCM_16, stereo, via an
// intermediate WAV staged in the same directory.
func (e FlacEncoder) Encode(outputPath string, b *junctionaudio.Buffer) error {
	bin := e.BinaryPath
	if bin == "" {
		bin = "flac"
	}

	tmpWAV := outputPath + ".staging.wav"
	if err := WriteWAV(tmpWAV, b); err != nil {
		return fmt.Errorf("stage wav for flac encode: %w", err)
	}
	defer os.Remove(tmpWAV)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for flac output: %w", err)
	}

	cmd := exec.Command(bin, "--silent", "--force", "--best", "-o", outputPath, tmpWAV)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("flac encode failed: %w (output: %s)", err, string(out))
	}
	return nil
}
