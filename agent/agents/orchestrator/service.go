package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tablewise/concierge/agent/contract"
	nodex "github.com/tablewise/concierge/agent/nodes"
	statex "github.com/tablewise/concierge/agent/state"
)

var (
	ErrInvalidMessage    = nodex.ErrInvalidMessage
	ErrInvalidSession    = nodex.ErrInvalidSession
	ErrInvalidRestaurant = nodex.ErrInvalidRestaurant
)

const apologyReply = "I'm sorry — I'm having a little trouble right now. Could you try that again in a moment?"

// Orchestrator runs one conversation turn end to end: load session, extract
// slots, dispatch to an agent (following bounded handoffs), persist, reply.
// Callers must serialize turns per session id.
type Orchestrator struct {
	sessions statex.Store
	registry contractx.Registry
	data     contractx.DataStore

	graphRunner compose.Runnable[nodex.GraphInput, contractx.TurnResult]

	now func() time.Time
}

func New(
	sessions statex.Store,
	registry contractx.Registry,
	data contractx.DataStore,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if data == nil {
		return nil, errors.New("data store is required")
	}

	o := &Orchestrator{
		sessions: sessions,
		registry: registry,
		data:     data,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message. Malformed input is the caller's
// error; upstream failures (model, stores) degrade to an apology and leave
// the session exactly as it was before the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, restaurantID, message string) (contractx.TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:    sessionID,
		RestaurantID: restaurantID,
		Text:         message,
	})
	if err == nil {
		return out, nil
	}

	if isCallerError(err) {
		return contractx.TurnResult{}, err
	}

	log.Error().
		Err(err).
		Str("session_id", sessionID).
		Str("restaurant_id", restaurantID).
		Msg("turn failed, degrading to apology")

	return contractx.TurnResult{
		Type: contractx.ResponseMessage,
		Text: apologyReply,
	}, nil
}

func isCallerError(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrInvalidRestaurant)
}
