package translator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxlate/voxlate/pkg/assembler"
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/errorsx"
	"github.com/voxlate/voxlate/pkg/logging"
	"github.com/voxlate/voxlate/pkg/resilience"
	"github.com/voxlate/voxlate/pkg/session"
)

// Config tunes the orchestrator. Zero values select defaults.
type Config struct {
	ChunkDuration time.Duration
	ReorderWindow int

	// MaxRetries bounds additional connect attempts after the first;
	// RetryBackoff is the initial delay, doubling per retry. Only
	// connection-kind failures are retried.
	MaxRetries   int
	RetryBackoff time.Duration

	// GrowOnOverflow absorbs reorder-window overflows by widening the
	// window instead of failing the translation.
	GrowOnOverflow bool
}

func (c Config) withDefaults() Config {
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = 100 * time.Millisecond
	}
	if c.ReorderWindow <= 0 {
		c.ReorderWindow = assembler.DefaultWindow
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	return c
}

// Orchestrator composes ingest, session, and assembly into the two
// caller-facing translation operations. Each request gets its own
// session with an exclusively owned connection; nothing is shared
// across concurrent requests.
type Orchestrator struct {
	ctrl   *session.Controller
	cfg    Config
	retry  resilience.RetryPolicy
	logger *slog.Logger
}

func New(ctrl *session.Controller, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		ctrl:   ctrl,
		cfg:    cfg,
		retry:  resilience.NewRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff),
		logger: logging.NewComponentLogger(slog.Default(), "translator"),
	}
}

// SetLogger replaces the base logger.
func (o *Orchestrator) SetLogger(l *slog.Logger) {
	o.logger = logging.NewComponentLogger(l, "translator")
}

// Translate runs a single-shot translation: connect, configure, send
// every ingest chunk, commit, and block until the response is fully
// assembled. Only connection failures are retried; every other error
// kind propagates immediately.
func (o *Orchestrator) Translate(ctx context.Context, req Request) (Result, error) {
	if req.Mode != "" && req.Mode != ModeSingleShot {
		return Result{}, errorsx.New(fmt.Sprintf("request mode %q requires a streaming translation", req.Mode), errorsx.ReasonConfiguration)
	}
	pcm, err := o.prepare(req)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = o.retry.Do(ctx, errorsx.Retryable, func() error {
		var attemptErr error
		result, attemptErr = o.attempt(ctx, req, pcm)
		return attemptErr
	})
	return result, err
}

func (o *Orchestrator) prepare(req Request) ([]byte, error) {
	if err := req.Profile.Validate(); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfiguration)
	}
	// Format failures surface here, before any network activity.
	return audio.Normalize(req.Audio, req.Format)
}

func (o *Orchestrator) attempt(ctx context.Context, req Request, pcm []byte) (Result, error) {
	sess, err := o.ctrl.Connect(ctx)
	if err != nil {
		return Result{}, err
	}
	defer sess.Close()

	if err := sess.Configure(ctx, o.params(req)); err != nil {
		return Result{}, err
	}

	asm := assembler.New(o.cfg.ReorderWindow)
	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- o.consume(ctx, sess, asm)
	}()

	chunker, err := audio.NewChunker(pcm, o.cfg.ChunkDuration)
	if err != nil {
		asm.Abort(err)
		return Result{}, errorsx.Wrap(err, errorsx.ReasonState)
	}
	sent := 0
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		select {
		case <-ctx.Done():
			cancelErr := errorsx.Wrap(fmt.Errorf("translate: %w", ctx.Err()), errorsx.ReasonCanceled)
			asm.Abort(cancelErr)
			return Result{Complete: false}, cancelErr
		default:
		}
		if err := sess.SendAudio(chunk); err != nil {
			asm.Abort(err)
			return Result{Complete: false}, err
		}
		sent++
	}
	if err := sess.Commit(); err != nil {
		asm.Abort(err)
		return Result{Complete: false}, err
	}
	o.logger.Debug("input committed",
		slog.String("session_id", sess.ID()),
		slog.Int("chunks_sent", sent))

	var chunks []audio.Chunk
	for c := range asm.Drain() {
		chunks = append(chunks, c)
	}
	if err := <-consumeErr; err != nil {
		return Result{Complete: false}, err
	}
	return Result{Chunks: chunks, Complete: asm.Complete()}, nil
}

// consume is the event-side half of a translation turn: it feeds the
// assembler until completion, error, or cancellation.
func (o *Orchestrator) consume(ctx context.Context, sess *session.Session, asm *assembler.Assembler) error {
	for {
		select {
		case <-ctx.Done():
			err := errorsx.Wrap(fmt.Errorf("receive: %w", ctx.Err()), errorsx.ReasonCanceled)
			asm.Abort(err)
			return err

		case evt, ok := <-sess.Events():
			if !ok {
				err := errorsx.New("session closed before completion", errorsx.ReasonConnection)
				asm.Abort(err)
				return err
			}
			switch evt.Kind {
			case session.EventDelta:
				if err := o.acceptDelta(asm, evt.Chunk); err != nil {
					asm.Abort(err)
					return err
				}
			case session.EventDone:
				return asm.Finalize()
			case session.EventError:
				asm.Abort(evt.Err)
				return evt.Err
			}
		}
	}
}

func (o *Orchestrator) acceptDelta(asm *assembler.Assembler, chunk audio.Chunk) error {
	err := asm.Accept(chunk)
	if err != nil && o.cfg.GrowOnOverflow && errorsx.HasReason(err, errorsx.ReasonReorderWindow) {
		asm.Grow(chunk.Seq() + 1)
		err = asm.Accept(chunk)
	}
	return err
}

func (o *Orchestrator) params(req Request) session.Params {
	return session.Params{
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Voice:      req.Profile.Voice,
		Mode:       req.Profile.Mode,
	}
}
