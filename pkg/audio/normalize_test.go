package audio

import (
	"bytes"
	"math"
	"testing"

	"github.com/voxlate/voxlate/pkg/errorsx"
)

func sineWave(rate, samples int) []int16 {
	out := make([]int16, samples)
	for i := range out {
		out[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	return out
}

func TestNormalizeCanonicalWAVIsIdempotent(t *testing.T) {
	samples := sineWave(SampleRate, SampleRate/2)
	wav, err := EncodeWAV(samples, SampleRate)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}

	first, err := Normalize(wav, FormatWAV)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !bytes.Equal(first, pcmBytes(samples)) {
		t.Fatalf("canonical input must pass through unchanged")
	}

	// Normalizing the normalized output again yields an identical stream.
	again, err := Normalize(mustWAV(t, first), FormatWAV)
	if err != nil {
		t.Fatalf("normalize twice: %v", err)
	}
	if !bytes.Equal(first, again) {
		t.Fatalf("normalize is not idempotent")
	}
}

func mustWAV(t *testing.T, pcm []byte) []byte {
	t.Helper()
	wav, err := EncodeWAV(pcmSamples(pcm), SampleRate)
	if err != nil {
		t.Fatalf("re-encode wav: %v", err)
	}
	return wav
}

func TestNormalizeResamplesPreservingDuration(t *testing.T) {
	// One second at 48 kHz must become one second at 24 kHz, within a
	// single sample period.
	src := sineWave(48000, 48000)
	wav, err := EncodeWAV(src, 48000)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	out, err := Normalize(wav, FormatWAV)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	gotSamples := len(out) / BytesPerSample
	if diff := gotSamples - SampleRate; diff < -1 || diff > 1 {
		t.Fatalf("expected ~%d samples, got %d", SampleRate, gotSamples)
	}
}

func TestNormalizeDownmixesStereo(t *testing.T) {
	// Interleave two constant channels; the mono result is their average.
	stereo := make([]int16, 2000)
	for i := 0; i < len(stereo); i += 2 {
		stereo[i] = 1000
		stereo[i+1] = 3000
	}
	wav := encodeStereoWAV(t, stereo, SampleRate)
	out, err := Normalize(wav, FormatWAV)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	mono := pcmSamples(out)
	if len(mono) != 1000 {
		t.Fatalf("expected 1000 mono samples, got %d", len(mono))
	}
	for i, s := range mono {
		if s != 2000 {
			t.Fatalf("sample %d = %d, want 2000", i, s)
		}
	}
}

// encodeStereoWAV writes a minimal 2-channel WAV for downmix tests.
func encodeStereoWAV(t *testing.T, samples []int16, rate int) []byte {
	t.Helper()
	mono, err := EncodeWAV(samples, rate)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Patch channel count and derived header fields in place.
	mono[22] = 2                       // NumChannels
	byteRate := uint32(rate) * 2 * 2   // rate * channels * bytes/sample
	mono[28] = byte(byteRate)
	mono[29] = byte(byteRate >> 8)
	mono[30] = byte(byteRate >> 16)
	mono[31] = byte(byteRate >> 24)
	mono[32] = 4 // BlockAlign
	return mono
}

func TestNormalizeRejectsUnknownFormat(t *testing.T) {
	_, err := Normalize([]byte("not audio"), Format("aiff"))
	if err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if !errorsx.HasReason(err, errorsx.ReasonUnsupportedFormat) {
		t.Fatalf("expected unsupported_format reason, got %s", errorsx.Reason(err))
	}
}

func TestNormalizeRejectsGarbagePayload(t *testing.T) {
	for _, format := range []Format{FormatWAV, FormatMP3, FormatOGG, FormatFLAC} {
		if _, err := Normalize([]byte{0x00, 0x01, 0x02}, format); err == nil {
			t.Fatalf("format %s accepted garbage", format)
		}
	}
}
