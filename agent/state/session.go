package state

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tablewise/concierge/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNilSession     = errors.New("session is nil")
)

// Session is the persistent per-conversation state. It is owned by the
// orchestrator: agents read it through AgentRequest and never write it back
// themselves. Callers must serialize turns per session id.
type Session struct {
	SessionID    string `json:"session_id"`
	RestaurantID string `json:"restaurant_id"`

	ActiveAgent  contractx.AgentType `json:"active_agent,omitempty"`
	Slots        contractx.Slots     `json:"collected_slots"`
	History      []contractx.Turn    `json:"history,omitempty"`
	LastQuestion string              `json:"last_question_asked,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(sessionID, restaurantID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		RestaurantID: restaurantID,
		UpdatedAt:    now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn records one message. History is append-only.
func (s *Session) AppendTurn(sender, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.History = append(s.History, contractx.Turn{Sender: sender, Text: text})
}

// Window returns the last n turns, most recent last. The full history stays
// on the session; only the window is replayed to the model and extractor.
func (s *Session) Window(n int) []contractx.Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.RestaurantID) == "" {
		return errors.New("restaurant id is empty")
	}
	return nil
}

// Clone returns a deep copy. The orchestrator mutates a copy during the turn
// so a failed turn leaves the stored session untouched.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]contractx.Turn(nil), s.History...)
	out.Slots.ShownTableTypes = append([]string(nil), s.Slots.ShownTableTypes...)
	return &out
}
