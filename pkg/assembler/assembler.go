package assembler

import (
	"fmt"
	"sync"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/errorsx"
)

// Assembler orders inbound audio fragments into a contiguous stream.
// Fragments arrive keyed by sequence index and are held in a bounded
// reorder window; contiguous runs are flushed to the drain channel in
// order. The assembler never re-encodes: drained bytes are exactly the
// bytes accepted.
type Assembler struct {
	mu   sync.Mutex
	cond *sync.Cond

	window  int
	next    int
	pending map[int]audio.Chunk
	ready   []audio.Chunk

	closed   bool
	complete bool
	err      error

	out      chan audio.Chunk
	quit     chan struct{}
	quitOnce sync.Once
}

// DefaultWindow bounds out-of-order tolerance when the caller does not
// configure one.
const DefaultWindow = 16

// New creates an assembler with the given reorder window size.
func New(window int) *Assembler {
	if window <= 0 {
		window = DefaultWindow
	}
	a := &Assembler{
		window:  window,
		pending: make(map[int]audio.Chunk),
		out:     make(chan audio.Chunk, 64),
		quit:    make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.pump()
	return a
}

// Accept inserts one fragment. Duplicate indices below the flush point
// are dropped. An index beyond the reorder window is rejected with a
// recoverable reorder_window error; the caller may drop the fragment or
// grow the window and retry.
func (a *Assembler) Accept(chunk audio.Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errorsx.New("accept after finalize", errorsx.ReasonState)
	}
	seq := chunk.Seq()
	if seq < a.next {
		return nil
	}
	if seq >= a.next+a.window {
		return errorsx.Wrap(
			fmt.Errorf("sequence %d outside reorder window [%d,%d)", seq, a.next, a.next+a.window),
			errorsx.ReasonReorderWindow,
		)
	}
	if _, dup := a.pending[seq]; dup {
		return nil
	}
	a.pending[seq] = chunk
	for {
		c, ok := a.pending[a.next]
		if !ok {
			break
		}
		delete(a.pending, a.next)
		a.ready = append(a.ready, c)
		a.next++
	}
	a.cond.Signal()
	return nil
}

// Grow widens the reorder window. Used by callers that absorb
// reorder_window errors instead of dropping fragments.
func (a *Assembler) Grow(window int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if window > a.window {
		a.window = window
	}
}

// Finalize marks the stream complete. Fragments already flushed remain
// deliverable through Drain; the drain channel closes once they are
// consumed. A gap at finalize time means fragments were lost and is an
// error.
func (a *Assembler) Finalize() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errorsx.New("finalize called twice", errorsx.ReasonState)
	}
	if len(a.pending) > 0 {
		a.closed = true
		a.err = errorsx.Wrap(
			fmt.Errorf("finalize with %d fragments missing before sequence gap at %d", len(a.pending), a.next),
			errorsx.ReasonReorderWindow,
		)
		a.cond.Signal()
		return a.err
	}
	a.closed = true
	a.complete = true
	a.cond.Signal()
	return nil
}

// Abort discards buffered fragments and closes the drain channel
// without marking completion. Used on cancellation and session failure.
func (a *Assembler) Abort(err error) {
	a.mu.Lock()
	a.pending = make(map[int]audio.Chunk)
	a.ready = nil
	a.closed = true
	if a.err == nil {
		a.err = err
	}
	a.cond.Signal()
	a.mu.Unlock()
	a.quitOnce.Do(func() { close(a.quit) })
}

// Drain returns the ordered output channel. It closes when the stream
// completes or aborts; it is consumed exactly once.
func (a *Assembler) Drain() <-chan audio.Chunk { return a.out }

// Complete reports whether Finalize succeeded.
func (a *Assembler) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.complete
}

// Err returns the terminal error, if any.
func (a *Assembler) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Assembler) pump() {
	for {
		a.mu.Lock()
		for len(a.ready) == 0 && !a.closed {
			a.cond.Wait()
		}
		if len(a.ready) == 0 {
			a.mu.Unlock()
			close(a.out)
			return
		}
		c := a.ready[0]
		a.ready = a.ready[1:]
		a.mu.Unlock()
		select {
		case a.out <- c:
		case <-a.quit:
			close(a.out)
			return
		}
	}
}
