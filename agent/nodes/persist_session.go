package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
	statex "github.com/tablewise/concierge/agent/state"
)

// PersistSession commits the turn: slots, history, active agent and the
// pending question are updated together, then saved. It runs only after the
// agent produced a response, so upstream failures never dirty the session.
func PersistSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Response.Text) == "" {
		return nil, fmt.Errorf("%w: agent returned empty reply", contractx.ErrValidation)
	}

	session := in.Session
	session.Slots = in.Response.Slots
	session.ActiveAgent = in.FinalAgent
	session.LastQuestion = in.Response.NextQuestion

	session.AppendTurn(contractx.SenderUser, in.Text)
	if in.Response.PreText != "" {
		session.AppendTurn(contractx.SenderAgent, in.Response.PreText)
	}
	session.AppendTurn(contractx.SenderAgent, in.Response.Text)

	// A confirmed reservation ends the flow; the next message starts fresh
	// rather than re-entering the completed booking.
	if in.Response.ReservationID != "" {
		session.Slots = contractx.Slots{}
		session.ActiveAgent = ""
		session.LastQuestion = ""
	}

	session.Touch(in.Now)
	if err := store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", in.SessionID, err)
	}
	return in, nil
}
