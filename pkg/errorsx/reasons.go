package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// ReasonConnection marks transient transport failures. The only
	// reason the orchestrator retries.
	ReasonConnection ReasonCode = "connection"

	// ReasonAuth marks credential rejection during the handshake.
	ReasonAuth ReasonCode = "auth"

	// ReasonConfiguration marks a rejected session configuration.
	ReasonConfiguration ReasonCode = "configuration"

	// ReasonUnsupportedFormat marks input audio the ingest pipeline
	// cannot decode.
	ReasonUnsupportedFormat ReasonCode = "unsupported_format"

	// ReasonState marks an operation issued in a session state that does
	// not permit it. A sequencing bug, never retried.
	ReasonState ReasonCode = "state"

	// ReasonReorderWindow marks a fragment whose sequence index falls
	// outside the assembler's reorder window.
	ReasonReorderWindow ReasonCode = "reorder_window"

	// ReasonTimeout marks an expired idle or per-fragment deadline.
	ReasonTimeout ReasonCode = "timeout"

	// ReasonProvider marks an error event reported by the remote endpoint.
	ReasonProvider ReasonCode = "provider"

	// ReasonCanceled marks cooperative cancellation observed at a
	// suspension point.
	ReasonCanceled ReasonCode = "canceled"
)
