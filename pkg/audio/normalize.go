package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/voxlate/voxlate/pkg/errorsx"
)

// Format names a supported input audio container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"
)

func (f Format) Valid() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatOGG, FormatFLAC:
		return true
	}
	return false
}

// Normalize decodes input audio of the declared format and converts it
// to the canonical representation (16-bit PCM, mono, 24 kHz). The
// result's total duration matches the input within one sample period.
// Unrecognized formats and undecodable payloads fail with an
// unsupported-format error before any network activity happens.
func Normalize(data []byte, format Format) ([]byte, error) {
	samples, rate, channels, err := decode(data, format)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonUnsupportedFormat)
	}
	mono := downmix(samples, channels)
	mono = resample(mono, rate, SampleRate)
	return pcmBytes(mono), nil
}

func decode(data []byte, format Format) ([]int16, int, int, error) {
	switch format {
	case FormatWAV:
		return DecodeWAV(data)
	case FormatMP3:
		return decodeMP3(data)
	case FormatOGG:
		return decodeOGG(data)
	case FormatFLAC:
		return decodeFLAC(data)
	default:
		return nil, 0, 0, fmt.Errorf("unrecognized audio format %q", format)
	}
}

func decodeMP3(data []byte) ([]int16, int, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode mp3 stream: %w", err)
	}
	// go-mp3 always emits 16-bit stereo.
	return pcmSamples(raw), dec.SampleRate(), 2, nil
}

func decodeOGG(data []byte) ([]int16, int, int, error) {
	floats, meta, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode ogg: %w", err)
	}
	samples := make([]int16, len(floats))
	for i, f := range floats {
		v := f * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
	return samples, meta.SampleRate, meta.Channels, nil
}

func decodeFLAC(data []byte) ([]int16, int, int, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode flac: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bps := int(stream.Info.BitsPerSample)
	var samples []int16
	for {
		f, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, 0, fmt.Errorf("decode flac frame: %w", err)
		}
		if len(f.Subframes) == 0 {
			continue
		}
		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels && ch < len(f.Subframes); ch++ {
				samples = append(samples, scaleTo16(f.Subframes[ch].Samples[i], bps))
			}
		}
	}
	if len(samples) == 0 {
		return nil, 0, 0, fmt.Errorf("decode flac: no audio data")
	}
	return samples, int(stream.Info.SampleRate), channels, nil
}

func scaleTo16(s int32, bps int) int16 {
	switch {
	case bps > 16:
		return int16(s >> (bps - 16))
	case bps < 16:
		return int16(s << (16 - bps))
	default:
		return int16(s)
	}
}
