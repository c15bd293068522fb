package webcodecs

// messageKind tags a ControlMessage.
type messageKind uint8

const (
	msgConfigure messageKind = iota + 1
	msgProcess
	msgFlush
	msgReset
	msgClose
)

func (k messageKind) String() string {
	switch k {
	case msgConfigure:
		return "configure"
	case msgProcess:
		return "process"
	case msgFlush:
		return "flush"
	case msgReset:
		return "reset"
	case msgClose:
		return "close"
	default:
		return "unknown"
	}
}

// ControlMessage is one unit of work submitted to an Engine. Messages are
// immutable once enqueued: the queue owns them until the worker dequeues
// one, then the worker owns it for the duration of handling.
type ControlMessage struct {
	kind         messageKind
	params       CodecParams // configure
	input        *Sample     // process
	forceKey     bool        // process: force a keyframe
	completionID uint64      // flush
}

// NewConfigureMessage builds a Configure control message. The first
// successful Configure starts the engine's worker and allocates the
// codec resource.
func NewConfigureMessage(params CodecParams) *ControlMessage {
	return &ControlMessage{kind: msgConfigure, params: params}
}

// NewProcessMessage builds a Process control message. Ownership of the
// sample transfers to the engine on a successful Submit.
func NewProcessMessage(in *Sample, forceKeyframe bool) *ControlMessage {
	return &ControlMessage{kind: msgProcess, input: in, forceKey: forceKeyframe}
}

func newFlushMessage(completionID uint64) *ControlMessage {
	return &ControlMessage{kind: msgFlush, completionID: completionID}
}

func newResetMessage() *ControlMessage { return &ControlMessage{kind: msgReset} }
func newCloseMessage() *ControlMessage { return &ControlMessage{kind: msgClose} }

// discard releases any pooled resources the message still owns. Used when
// a message is dropped instead of processed (reset, shutdown, fatal
// drain).
func (m *ControlMessage) discard() {
	if m.input != nil {
		m.input.release()
		m.input = nil
	}
}
