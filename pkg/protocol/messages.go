package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Client event types sent to the realtime endpoint.
const (
	TypeSessionUpdate = "session.update"
	TypeAudioAppend   = "input_audio_buffer.append"
	TypeAudioCommit   = "input_audio_buffer.commit"
)

// Server event types received from the realtime endpoint.
const (
	TypeSessionUpdated = "session.updated"
	TypeAudioDelta     = "response.audio.delta"
	TypeAudioDone      = "response.audio.done"
	TypeError          = "error"
)

// SessionConfig is the negotiated session payload carried by a
// session.update event. Input and output audio are pcm16; turn
// boundaries are detected server side via semantic VAD.
type SessionConfig struct {
	Type             string           `json:"type"`
	Model            string           `json:"model"`
	OutputModalities []string         `json:"output_modalities"`
	Audio            AudioConfig      `json:"audio"`
	Transcription    *Transcription   `json:"input_audio_transcription,omitempty"`
	Instructions     string           `json:"instructions,omitempty"`
	Temperature      float64          `json:"temperature,omitempty"`
	MaxOutputTokens  int              `json:"max_response_output_tokens,omitempty"`
}

type AudioConfig struct {
	Input  AudioInput  `json:"input"`
	Output AudioOutput `json:"output"`
}

type AudioInput struct {
	Format        string         `json:"format"`
	TurnDetection *TurnDetection `json:"turn_detection,omitempty"`
}

type AudioOutput struct {
	Format string  `json:"format"`
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed,omitempty"`
}

type TurnDetection struct {
	Type           string `json:"type"`
	CreateResponse bool   `json:"create_response"`
}

type Transcription struct {
	Model string `json:"model"`
}

type clientEvent struct {
	Type    string         `json:"type"`
	Session *SessionConfig `json:"session,omitempty"`
	Audio   string         `json:"audio,omitempty"`
}

// EncodeSessionUpdate builds the wire bytes for a session.update event.
func EncodeSessionUpdate(cfg SessionConfig) ([]byte, error) {
	return json.Marshal(clientEvent{Type: TypeSessionUpdate, Session: &cfg})
}

// EncodeAudioAppend builds the wire bytes for an input_audio_buffer.append
// event carrying base64-encoded pcm16 audio.
func EncodeAudioAppend(pcm []byte) ([]byte, error) {
	return json.Marshal(clientEvent{
		Type:  TypeAudioAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// EncodeAudioCommit builds the wire bytes for an input_audio_buffer.commit
// event, ending the current input turn.
func EncodeAudioCommit() ([]byte, error) {
	return json.Marshal(clientEvent{Type: TypeAudioCommit})
}

// ServerEvent is one decoded inbound message. Sequence is nil when the
// endpoint omitted the field; a present zero is a real index.
type ServerEvent struct {
	Type     string
	Audio    []byte
	Sequence *int
	Code     string
	Message  string
}

type rawServerEvent struct {
	Type     string `json:"type"`
	Delta    string `json:"delta,omitempty"`
	Sequence *int   `json:"sequence,omitempty"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DecodeServerEvent parses one inbound wire message. Audio deltas are
// base64 decoded; the payload bytes are passed through otherwise untouched.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var raw rawServerEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return ServerEvent{}, fmt.Errorf("decode server event: %w", err)
	}
	evt := ServerEvent{Type: raw.Type, Sequence: raw.Sequence}
	switch raw.Type {
	case TypeAudioDelta:
		audio, err := base64.StdEncoding.DecodeString(raw.Delta)
		if err != nil {
			return ServerEvent{}, fmt.Errorf("decode audio delta: %w", err)
		}
		evt.Audio = audio
	case TypeError:
		if raw.Error != nil {
			evt.Code = raw.Error.Code
			evt.Message = raw.Error.Message
		}
	}
	return evt, nil
}

// TransientErrorCode reports whether a provider error code marks a
// condition worth retrying at the orchestrator level.
func TransientErrorCode(code string) bool {
	switch code {
	case "rate_limit_exceeded", "server_error", "session_expired":
		return true
	}
	return false
}
