package audio

import (
	"fmt"
	"time"
)

// Chunker slices a canonical PCM stream into bounded-duration chunks
// for streaming. It is a finite, non-restartable iterator: sequence
// indices start at 0 and increase by 1, every chunk except possibly the
// last has duration exactly maxChunkDuration.
type Chunker struct {
	data      []byte
	chunkSize int
	offset    int
	seq       int
}

// NewChunker builds a chunker over canonical PCM bytes. pcm must be
// sample aligned (even length).
func NewChunker(pcm []byte, maxChunkDuration time.Duration) (*Chunker, error) {
	if maxChunkDuration <= 0 {
		return nil, fmt.Errorf("max chunk duration must be positive, got %v", maxChunkDuration)
	}
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("pcm stream not sample aligned: %d bytes", len(pcm))
	}
	samples := int(int64(maxChunkDuration) * SampleRate / int64(time.Second))
	if samples == 0 {
		samples = 1
	}
	return &Chunker{
		data:      pcm,
		chunkSize: samples * BytesPerSample,
	}, nil
}

// Next returns the next chunk, or ok=false when the stream is exhausted.
func (c *Chunker) Next() (Chunk, bool) {
	if c.offset >= len(c.data) {
		return Chunk{}, false
	}
	end := c.offset + c.chunkSize
	if end > len(c.data) {
		end = len(c.data)
	}
	chunk := NewChunk(c.seq, c.data[c.offset:end])
	c.offset = end
	c.seq++
	return chunk, true
}

// Remaining returns how many chunks are still to be produced.
func (c *Chunker) Remaining() int {
	left := len(c.data) - c.offset
	if left <= 0 {
		return 0
	}
	return (left + c.chunkSize - 1) / c.chunkSize
}
