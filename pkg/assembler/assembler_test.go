package assembler

import (
	"bytes"
	"testing"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/errorsx"
)

func chunk(seq int, payload byte) audio.Chunk {
	return audio.NewChunk(seq, []byte{payload, payload})
}

func collect(t *testing.T, a *Assembler) []audio.Chunk {
	t.Helper()
	var out []audio.Chunk
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-a.Drain():
			if !ok {
				return out
			}
			out = append(out, c)
		case <-timeout:
			t.Fatalf("drain did not close")
		}
	}
}

func TestOutOfOrderDeltasAssembleInOrder(t *testing.T) {
	a := New(4)
	for _, seq := range []int{0, 2, 1, 3} {
		if err := a.Accept(chunk(seq, byte(seq))); err != nil {
			t.Fatalf("accept %d: %v", seq, err)
		}
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	chunks := collect(t, a)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	var assembled []byte
	for i, c := range chunks {
		if c.Seq() != i {
			t.Fatalf("position %d holds sequence %d", i, c.Seq())
		}
		assembled = append(assembled, c.RawPayload()...)
	}
	want := []byte{0, 0, 1, 1, 2, 2, 3, 3}
	if !bytes.Equal(assembled, want) {
		t.Fatalf("assembled %v, want %v", assembled, want)
	}
	if !a.Complete() {
		t.Fatalf("assembler should be complete")
	}
}

func TestContiguousRangeNoGaps(t *testing.T) {
	a := New(8)
	// Deliberately scrambled arrival order.
	for _, seq := range []int{1, 0, 4, 2, 3, 6, 5, 7} {
		if err := a.Accept(chunk(seq, byte(seq))); err != nil {
			t.Fatalf("accept %d: %v", seq, err)
		}
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	chunks := collect(t, a)
	for i, c := range chunks {
		if c.Seq() != i {
			t.Fatalf("gap: position %d holds sequence %d", i, c.Seq())
		}
	}
	if len(chunks) != 8 {
		t.Fatalf("expected contiguous range 0..7, got %d chunks", len(chunks))
	}
}

func TestIndexOutsideWindowRejected(t *testing.T) {
	a := New(4)
	err := a.Accept(chunk(4, 0))
	if err == nil {
		t.Fatalf("expected reorder window error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonReorderWindow) {
		t.Fatalf("expected reorder_window reason, got %s", errorsx.Reason(err))
	}

	// Growing the window makes the same index acceptable.
	a.Grow(8)
	if err := a.Accept(chunk(4, 0)); err != nil {
		t.Fatalf("accept after grow: %v", err)
	}
	a.Abort(nil)
}

func TestDuplicateAndStaleFragmentsDropped(t *testing.T) {
	a := New(4)
	if err := a.Accept(chunk(0, 9)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := a.Accept(chunk(0, 1)); err != nil {
		t.Fatalf("stale duplicate must be dropped silently: %v", err)
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	chunks := collect(t, a)
	if len(chunks) != 1 || chunks[0].RawPayload()[0] != 9 {
		t.Fatalf("first arrival must win")
	}
}

func TestFinalizeWithGapFails(t *testing.T) {
	a := New(4)
	if err := a.Accept(chunk(1, 1)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	err := a.Finalize()
	if err == nil {
		t.Fatalf("expected gap error")
	}
	if a.Complete() {
		t.Fatalf("gapped stream must not be complete")
	}
	collect(t, a)
}

func TestAbortDiscardsAndCloses(t *testing.T) {
	a := New(4)
	if err := a.Accept(chunk(0, 0)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	a.Abort(errorsx.New("canceled", errorsx.ReasonCanceled))
	// Drain closes; buffered fragments may already be in flight but no
	// completion is reported.
	collect(t, a)
	if a.Complete() {
		t.Fatalf("aborted assembler must not be complete")
	}
	if !errorsx.HasReason(a.Err(), errorsx.ReasonCanceled) {
		t.Fatalf("expected canceled reason, got %v", a.Err())
	}
}

func TestAcceptAfterFinalizeIsStateError(t *testing.T) {
	a := New(4)
	if err := a.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	err := a.Accept(chunk(0, 0))
	if !errorsx.HasReason(err, errorsx.ReasonState) {
		t.Fatalf("expected state error, got %v", err)
	}
	collect(t, a)
}
