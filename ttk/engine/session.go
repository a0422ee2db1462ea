package engine

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalkhq/tabletalk/ttk/reconcile"
)

// Session is the per-call engine state that rides the voice runtime's opaque
// metadata blob: decoded at the top of every turn, rewritten at the bottom.
// The runtime owns transport and expiry of the blob; the engine only trusts
// what it wrote there on the previous turn.
type Session struct {
	Draft     *reconcile.Draft `json:"draft,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// decodeSession parses the previous turn's blob. Empty and unreadable blobs
// both start a fresh session so one corrupt write never wedges the call.
func decodeSession(blob []byte, logger zerolog.Logger) *Session {
	sess := &Session{}
	if len(blob) == 0 {
		return sess
	}
	if err := json.Unmarshal(blob, sess); err != nil {
		logger.Warn().Err(err).Int("bytes", len(blob)).Msg("session blob unreadable, starting fresh")
		return &Session{}
	}
	return sess
}

// encode serializes the session for the runtime to hand back next turn.
func (s *Session) encode(logger zerolog.Logger) []byte {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		logger.Error().Err(err).Msg("session blob encode failed")
		return nil
	}
	return data
}
