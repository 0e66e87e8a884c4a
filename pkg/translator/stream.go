package translator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxlate/voxlate/pkg/assembler"
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/errorsx"
	"github.com/voxlate/voxlate/pkg/session"
)

// Stream is a live streaming translation. Chunks delivers translated
// audio in sequence order as it arrives; the channel closes at
// completion, failure, or cancellation. Err and Complete are valid
// after the channel closes.
type Stream struct {
	out  chan audio.Chunk
	sess *session.Session
	asm  *assembler.Assembler

	cancel     context.CancelFunc
	cancelOnce sync.Once

	mu       sync.Mutex
	err      error
	complete bool
}

// Chunks returns the ordered output channel. It is consumed exactly once.
func (s *Stream) Chunks() <-chan audio.Chunk { return s.out }

// Err returns the terminal error, if any, once Chunks has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Complete reports whether the stream finished normally.
func (s *Stream) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Cancel stops sending, stops draining, and closes the session. Best
// effort: no chunk is delivered after Cancel returns.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(func() {
		s.fail(errorsx.New("translation canceled", errorsx.ReasonCanceled))
		s.cancel()
		s.asm.Abort(s.Err())
		_ = s.sess.Close()
	})
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = true
}

// TranslateStream starts a streaming translation: ingest chunks are
// sent paced at real time while translated fragments are drained
// concurrently on the same session. Turn boundaries are decided by the
// endpoint's own voice-activity detection; a single commit is issued
// after the final ingest chunk to flush the tail of the input.
func (o *Orchestrator) TranslateStream(ctx context.Context, req Request) (*Stream, error) {
	if req.Mode != "" && req.Mode != ModeStreaming {
		return nil, errorsx.New(fmt.Sprintf("request mode %q requires a single-shot translation", req.Mode), errorsx.ReasonConfiguration)
	}
	pcm, err := o.prepare(req)
	if err != nil {
		return nil, err
	}

	var sess *session.Session
	err = o.retry.Do(ctx, errorsx.Retryable, func() error {
		var connErr error
		sess, connErr = o.ctrl.Connect(ctx)
		if connErr != nil {
			return connErr
		}
		if cfgErr := sess.Configure(ctx, o.params(req)); cfgErr != nil {
			_ = sess.Close()
			return cfgErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	st := &Stream{
		out:    make(chan audio.Chunk, 64),
		sess:   sess,
		asm:    assembler.New(o.cfg.ReorderWindow),
		cancel: cancel,
	}

	chunker, err := audio.NewChunker(pcm, o.cfg.ChunkDuration)
	if err != nil {
		cancel()
		_ = sess.Close()
		return nil, errorsx.Wrap(err, errorsx.ReasonState)
	}

	var sendsDone atomic.Bool
	go o.streamSend(streamCtx, st, chunker, &sendsDone)
	go o.streamRecv(streamCtx, st, &sendsDone)
	go st.forward(streamCtx)
	return st, nil
}

// streamSend paces ingest chunks at their play rate so the endpoint's
// voice-activity detection sees a natural timeline.
func (o *Orchestrator) streamSend(ctx context.Context, st *Stream, chunker *audio.Chunker, sendsDone *atomic.Bool) {
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := st.sess.SendAudio(chunk); err != nil {
			st.fail(err)
			st.asm.Abort(err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(chunk.Duration()):
		}
	}
	sendsDone.Store(true)
	// Flush whatever the server-side VAD has not yet claimed. A state
	// error here means the endpoint already committed the final turn.
	if err := st.sess.Commit(); err != nil && !errorsx.HasReason(err, errorsx.ReasonState) {
		st.fail(err)
		st.asm.Abort(err)
	}
}

// streamRecv renumbers per-turn fragment sequences into one contiguous
// request-wide range and feeds the assembler until the last turn
// completes.
func (o *Orchestrator) streamRecv(ctx context.Context, st *Stream, sendsDone *atomic.Bool) {
	base := 0
	turnCount := 0
	for {
		select {
		case <-ctx.Done():
			err := errorsx.Wrap(fmt.Errorf("stream receive: %w", ctx.Err()), errorsx.ReasonCanceled)
			st.fail(err)
			st.asm.Abort(err)
			return

		case evt, ok := <-st.sess.Events():
			if !ok {
				err := errorsx.New("session closed before completion", errorsx.ReasonConnection)
				st.fail(err)
				st.asm.Abort(err)
				return
			}
			switch evt.Kind {
			case session.EventDelta:
				renumbered := audio.NewChunk(base+evt.Chunk.Seq(), evt.Chunk.RawPayload())
				if err := o.acceptDelta(st.asm, renumbered); err != nil {
					st.fail(err)
					st.asm.Abort(err)
					return
				}
				turnCount++
			case session.EventDone:
				base += turnCount
				turnCount = 0
				if sendsDone.Load() {
					if err := st.asm.Finalize(); err != nil {
						st.fail(err)
						return
					}
					st.finish()
					o.logger.Debug("stream complete",
						slog.String("session_id", st.sess.ID()),
						slog.Int("chunks_delivered", base))
					return
				}
			case session.EventError:
				st.fail(evt.Err)
				st.asm.Abort(evt.Err)
				return
			}
		}
	}
}

func (st *Stream) forward(ctx context.Context) {
	defer close(st.out)
	defer st.sess.Close()
	for c := range st.asm.Drain() {
		select {
		case st.out <- c:
		case <-ctx.Done():
			return
		}
	}
}
