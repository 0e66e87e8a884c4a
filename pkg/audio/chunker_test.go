package audio

import (
	"testing"
	"time"
)

func TestChunkerFiveSecondsAt200ms(t *testing.T) {
	pcm := make([]byte, 5*SampleRate*BytesPerSample) // 5 s of silence
	chunker, err := NewChunker(pcm, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	var chunks []Chunk
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 25 {
		t.Fatalf("expected 25 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Seq() != i {
			t.Fatalf("chunk %d carries sequence %d", i, chunk.Seq())
		}
		if chunk.Duration() != 200*time.Millisecond {
			t.Fatalf("chunk %d duration %v, want 200ms", i, chunk.Duration())
		}
	}
}

func TestChunkerDurationAccounting(t *testing.T) {
	// 1.25 s stream with 500 ms chunks: two full chunks plus a short tail.
	total := SampleRate * BytesPerSample * 5 / 4
	chunker, err := NewChunker(make([]byte, total), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}

	var sum time.Duration
	var last Chunk
	count := 0
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		if count > 0 && last.Duration() != 500*time.Millisecond {
			t.Fatalf("non-final chunk %d has duration %v", count-1, last.Duration())
		}
		sum += chunk.Duration()
		last = chunk
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 chunks, got %d", count)
	}
	if want := DurationOf(total); sum != want {
		t.Fatalf("chunk durations sum to %v, stream is %v", sum, want)
	}
	if last.Duration() != 250*time.Millisecond {
		t.Fatalf("final chunk duration %v, want 250ms", last.Duration())
	}
}

func TestChunkerExhaustedStaysExhausted(t *testing.T) {
	chunker, err := NewChunker(make([]byte, BytesPerSample*10), time.Second)
	if err != nil {
		t.Fatalf("new chunker: %v", err)
	}
	if _, ok := chunker.Next(); !ok {
		t.Fatalf("expected one chunk")
	}
	if _, ok := chunker.Next(); ok {
		t.Fatalf("iterator must not restart")
	}
	if chunker.Remaining() != 0 {
		t.Fatalf("remaining should be 0 after exhaustion")
	}
}

func TestChunkerRejectsUnalignedStream(t *testing.T) {
	if _, err := NewChunker(make([]byte, 3), time.Second); err == nil {
		t.Fatalf("expected error for unaligned pcm")
	}
	if _, err := NewChunker(nil, 0); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}
