package engineports

import "time"

// Transcript roles as tagged by the voice runtime.
const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// ConversationTurn is one transcribed exchange supplied by the voice runtime.
type ConversationTurn struct {
	Role      string    // "caller" | "agent" | "system"
	Text      string    // transcribed utterance text
	CreatedAt time.Time // runtime-side timestamp
}

// TurnRequest is one handler invocation from the voice runtime: the call
// identity, the ordered transcript so far, the telephony line identifier,
// and the opaque metadata blob carrying session state from the previous
// turn. The transcript is append-only and never mutated by the engine.
type TurnRequest struct {
	CallID     string
	Turns      []ConversationTurn
	CallerLine string // caller id in E.164 when the carrier supplies it
	Metadata   []byte // session blob: read at entry, overwritten at exit
}

// TurnResponse is the engine's answer for one turn: the reply to speak and
// the rewritten metadata blob the runtime must hand back next invocation.
type TurnResponse struct {
	Reply    string
	State    string // workflow position, for runtime-side logging only
	Metadata []byte
}
