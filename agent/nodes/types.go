package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tablewise/concierge/agent/contract"
	statex "github.com/tablewise/concierge/agent/state"
)

var (
	ErrInvalidMessage    = errors.New("message is empty")
	ErrInvalidSession    = errors.New("session id is empty")
	ErrInvalidRestaurant = errors.New("restaurant id is empty")
)

type GraphInput struct {
	SessionID    string
	RestaurantID string
	Text         string
}

// GraphState carries one turn through the pipeline. The session inside is a
// working copy; the stored session is only replaced by the persist node after
// the whole turn succeeded.
type GraphState struct {
	SessionID    string
	RestaurantID string
	Text         string
	Now          time.Time

	Session    *statex.Session
	Restaurant contractx.Restaurant
	Location   *time.Location

	Response   contractx.AgentResponse
	FinalAgent contractx.AgentType
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	restaurantID := strings.TrimSpace(in.RestaurantID)
	if restaurantID == "" {
		return nil, ErrInvalidRestaurant
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID:    sessionID,
		RestaurantID: restaurantID,
		Text:         text,
		Now:          nowFn().UTC(),
		Location:     time.UTC,
	}, nil
}
