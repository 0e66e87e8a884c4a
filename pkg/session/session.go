package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/errorsx"
	"github.com/voxlate/voxlate/pkg/protocol"
	"github.com/voxlate/voxlate/pkg/voice"
)

// EventKind classifies inbound session events.
type EventKind int

const (
	EventDelta EventKind = iota
	EventDone
	EventError
)

// Event is one inbound event surfaced to the orchestrator. Delta events
// carry an audio chunk; error events carry the terminal error.
type Event struct {
	Kind  EventKind
	Chunk audio.Chunk
	Err   error
}

// Params is the negotiated translation configuration for one session.
type Params struct {
	SourceLang string
	TargetLang string
	Voice      voice.ID
	Mode       voice.PreservationMode
}

// Session is one persistent connection plus its protocol state, scoped
// to a single translation request. All inbound traffic is consumed by
// one event loop feeding a bounded event channel; there is exactly one
// designated consumer per session.
type Session struct {
	id     string
	ctrl   *Controller
	conn   Conn
	fsm    *stateMachine
	logger *slog.Logger

	events  chan Event
	raw     chan []byte
	readErr chan error
	kick    chan time.Duration

	configAck chan error

	writeMu   sync.Mutex
	audioSent bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	arrival int // event loop only
}

// Connect establishes the transport and starts the session's read and
// event loops. The returned session is in the connecting state until
// Configure succeeds.
func (c *Controller) Connect(ctx context.Context) (*Session, error) {
	s := &Session{
		id:        uuid.NewString(),
		ctrl:      c,
		fsm:       newStateMachine(),
		logger:    c.logger,
		events:    make(chan Event, c.cfg.EventBuffer),
		raw:       make(chan []byte, c.cfg.EventBuffer),
		readErr:   make(chan error, 1),
		kick:      make(chan time.Duration, 1),
		configAck: make(chan error, 1),
	}
	if err := s.fsm.Transition(StateConnecting); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonState)
	}

	conn, err := c.dialer.Dial(ctx, c.cfg.Endpoint, c.cfg.Credential)
	if err != nil {
		s.fsm.Force(StateError)
		return nil, err
	}
	s.conn = conn
	s.ctx, s.cancel = context.WithCancel(ctx)

	c.logger.Info("session connected",
		slog.String("session_id", s.id),
		slog.String("endpoint", c.cfg.Endpoint))

	go s.readPump()
	go s.eventLoop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.fsm.State() }

// Configure sends the session configuration and blocks until the remote
// acknowledges it or the context expires.
func (s *Session) Configure(ctx context.Context, params Params) error {
	if !s.fsm.In(StateConnecting) {
		return errorsx.New(fmt.Sprintf("configure in state %s", s.State()), errorsx.ReasonState)
	}
	cfg := protocol.SessionConfig{
		Type:             "realtime",
		Model:            s.ctrl.cfg.Model,
		OutputModalities: []string{"audio"},
		Audio: protocol.AudioConfig{
			Input: protocol.AudioInput{
				Format:        "pcm16",
				TurnDetection: &protocol.TurnDetection{Type: "semantic_vad", CreateResponse: true},
			},
			Output: protocol.AudioOutput{
				Format: "pcm16",
				Voice:  string(params.Voice),
				Speed:  1.0,
			},
		},
		Transcription:   &protocol.Transcription{Model: "whisper-1"},
		Instructions:    voice.Instructions(params.Mode, params.SourceLang, params.TargetLang),
		Temperature:     0.6,
		MaxOutputTokens: 4096,
	}
	data, err := protocol.EncodeSessionUpdate(cfg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConfiguration)
	}
	if err := s.write(data); err != nil {
		return err
	}

	select {
	case err := <-s.configAck:
		if err != nil {
			s.fsm.Force(StateError)
			return errorsx.Wrap(err, errorsx.ReasonConfiguration)
		}
	case <-ctx.Done():
		s.fsm.Force(StateError)
		return errorsx.Wrap(fmt.Errorf("configure: %w", ctx.Err()), errorsx.ReasonTimeout)
	case <-s.ctx.Done():
		return errorsx.New("session closed during configure", errorsx.ReasonCanceled)
	}

	if err := s.fsm.Transition(StateConfigured); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonState)
	}
	s.logger.Info("session configured",
		slog.String("session_id", s.id),
		slog.String("voice", string(params.Voice)),
		slog.String("mode", string(params.Mode)),
		slog.String("target_lang", params.TargetLang))
	return nil
}

// SendAudio appends one chunk to the remote input buffer. Valid only in
// the configured or streaming states.
func (s *Session) SendAudio(chunk audio.Chunk) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.fsm.In(StateConfigured) {
		if err := s.fsm.Transition(StateStreaming); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonState)
		}
	} else if !s.fsm.In(StateStreaming) {
		return errorsx.New(fmt.Sprintf("send audio in state %s", s.State()), errorsx.ReasonState)
	}
	data, err := protocol.EncodeAudioAppend(chunk.RawPayload())
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonState)
	}
	if err := s.writeLocked(data); err != nil {
		return err
	}
	s.audioSent = true
	return nil
}

// Commit signals end of input for the current turn and arms the
// first-fragment idle timeout.
func (s *Session) Commit() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.audioSent {
		return errorsx.New("commit without audio since last commit", errorsx.ReasonState)
	}
	if err := s.fsm.Transition(StateCommitting); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonState)
	}
	data, err := protocol.EncodeAudioCommit()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonState)
	}
	if err := s.writeLocked(data); err != nil {
		return err
	}
	if err := s.fsm.Transition(StateResponseInFlight); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonState)
	}
	s.audioSent = false
	select {
	case s.kick <- s.ctrl.cfg.IdleTimeout:
	default:
	}
	return nil
}

// Events returns the inbound event channel. It closes when the session
// terminates; delta events are delivered in transport arrival order.
func (s *Session) Events() <-chan Event { return s.events }

// Close releases the transport. Safe to call from any state and on
// every exit path; subsequent calls are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.fsm.Force(StateClosed)
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.logger.Info("session closed", slog.String("session_id", s.id))
	})
	return nil
}

func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(data)
}

func (s *Session) writeLocked(data []byte) error {
	if err := s.conn.WriteMessage(data); err != nil {
		s.fsm.Force(StateError)
		return errorsx.Wrap(fmt.Errorf("transport write: %w", err), errorsx.ReasonConnection)
	}
	return nil
}

func (s *Session) readPump() {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.readErr <- err:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case s.raw <- data:
		case <-s.ctx.Done():
			return
		}
	}
}

// eventLoop is the session's single inbound consumer. It decodes wire
// messages, applies the idle and per-fragment timeouts, and feeds the
// bounded event channel.
func (s *Session) eventLoop() {
	defer func() {
		s.cancel()
		close(s.events)
	}()

	watchdog := time.NewTimer(time.Hour)
	if !watchdog.Stop() {
		<-watchdog.C
	}
	defer watchdog.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case d := <-s.kick:
			resetTimer(watchdog, d)

		case err := <-s.readErr:
			if s.fsm.State().Terminal() {
				return
			}
			s.fsm.Force(StateError)
			s.emit(Event{Kind: EventError, Err: errorsx.Wrap(fmt.Errorf("transport read: %w", err), errorsx.ReasonConnection)})
			return

		case <-watchdog.C:
			err := errorsx.New("timed out waiting for response fragment", errorsx.ReasonTimeout)
			s.fsm.Force(StateError)
			s.emit(Event{Kind: EventError, Err: err})
			_ = s.conn.Close()
			return

		case data := <-s.raw:
			evt, err := protocol.DecodeServerEvent(data)
			if err != nil {
				s.logger.Warn("undecodable server event",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()))
				continue
			}
			if done := s.handleServerEvent(evt, watchdog); done {
				return
			}
		}
	}
}

func (s *Session) handleServerEvent(evt protocol.ServerEvent, watchdog *time.Timer) bool {
	switch evt.Type {
	case protocol.TypeSessionUpdated:
		select {
		case s.configAck <- nil:
		default:
		}

	case protocol.TypeAudioDelta:
		// Endpoints that omit sequence numbers get arrival order. A
		// present index is authoritative even when it is zero.
		seq := s.arrival
		if evt.Sequence != nil {
			seq = *evt.Sequence
		}
		s.arrival++
		s.emit(Event{Kind: EventDelta, Chunk: audio.NewChunk(seq, evt.Audio)})
		resetTimer(watchdog, s.ctrl.cfg.FragmentTimeout)

	case protocol.TypeAudioDone:
		if !watchdog.Stop() {
			select {
			case <-watchdog.C:
			default:
			}
		}
		s.arrival = 0
		_ = s.fsm.Transition(StateConfigured)
		s.emit(Event{Kind: EventDone})

	case protocol.TypeError:
		reason := errorsx.ReasonProvider
		if protocol.TransientErrorCode(evt.Code) {
			reason = errorsx.ReasonConnection
		}
		err := errorsx.Wrap(fmt.Errorf("provider error %s: %s", evt.Code, evt.Message), reason)
		select {
		case s.configAck <- err:
		default:
		}
		s.fsm.Force(StateError)
		s.emit(Event{Kind: EventError, Err: err})
		_ = s.conn.Close()
		return true
	}
	return false
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	case <-s.ctx.Done():
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
