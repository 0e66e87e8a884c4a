package translator

import (
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/voice"
)

// Mode selects how the caller consumes translated audio.
type Mode string

const (
	// ModeSingleShot blocks until the fully assembled result is ready.
	ModeSingleShot Mode = "single_shot"
	// ModeStreaming delivers translated audio incrementally as
	// fragments arrive.
	ModeStreaming Mode = "streaming"
)

// Request describes one translation. SourceLang may be voice.AutoDetect.
// Mode, when set, must match the invoked operation: ModeSingleShot for
// Translate, ModeStreaming for TranslateStream; a mismatch is rejected
// as a configuration error.
type Request struct {
	Audio      []byte
	Format     audio.Format
	SourceLang string
	TargetLang string
	Profile    voice.Profile
	Mode       Mode
}

// Result is the assembled output of a single-shot translation. Complete
// is false when the translation was canceled or failed partway.
type Result struct {
	Chunks   []audio.Chunk
	Complete bool
}

// PCM concatenates the assembled chunks in sequence order. The bytes
// are exactly those received from the transport.
func (r Result) PCM() []byte {
	var out []byte
	for _, c := range r.Chunks {
		out = append(out, c.RawPayload()...)
	}
	return out
}

// WAV wraps the assembled audio in a WAV container at the canonical
// sample rate.
func (r Result) WAV() ([]byte, error) {
	return audio.EncodeWAVFromPCM(r.PCM(), audio.SampleRate)
}
