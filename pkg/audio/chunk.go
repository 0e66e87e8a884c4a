package audio

import "time"

// Canonical internal format: 16-bit little-endian PCM, mono, 24 kHz.
// Every byte slice crossing package boundaries after Normalize is in
// this format.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2
)

// DurationOf returns the play duration of canonical PCM bytes.
func DurationOf(n int) time.Duration {
	samples := n / BytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}

// Chunk is an immutable slice of canonical audio carrying a sequence
// index scoped to one session.
type Chunk struct {
	seq  int
	data []byte
}

// NewChunk copies data into a new chunk.
func NewChunk(seq int, data []byte) Chunk {
	return Chunk{seq: seq, data: append([]byte(nil), data...)}
}

func (c Chunk) Seq() int { return c.seq }

// Data returns a defensive copy of the payload.
func (c Chunk) Data() []byte { return append([]byte(nil), c.data...) }

// RawPayload returns the underlying buffer without copying.
func (c Chunk) RawPayload() []byte { return c.data }

func (c Chunk) Len() int { return len(c.data) }

func (c Chunk) Duration() time.Duration { return DurationOf(len(c.data)) }
