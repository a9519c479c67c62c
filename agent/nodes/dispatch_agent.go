package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tablewise/concierge/agent/contract"
	intentx "github.com/tablewise/concierge/agent/intent"
	slotsx "github.com/tablewise/concierge/agent/slots"
)

// MaxHandoffDepth bounds agent-to-agent transfers within one turn. A turn
// that still wants to hand off past the bound asks the guest to clarify
// instead of looping.
const MaxHandoffDepth = 3

const clarificationReply = "I want to make sure I point you the right way. Could you tell me a bit more about what you need?"

// historyWindow caps the turns replayed to agents. The full history stays on
// the session; agents only ever see the recent window.
const historyWindow = 12

// DispatchAgent routes the turn to an agent and follows handoffs up to
// MaxHandoffDepth. A direct answer to a pending question stays with the
// active agent; anything else is re-routed by intent.
func DispatchAgent(ctx context.Context, in *GraphState, registry contractx.Registry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	kind := slotsx.Classify(in.Text, in.Session.LastQuestion)

	if kind == slotsx.KindGreeting && len(in.Session.History) == 0 {
		in.Response = contractx.AgentResponse{
			Type:  contractx.ResponseMessage,
			Text:  fmt.Sprintf("Hello! Welcome to %s. How can I help you today?", in.Restaurant.Name),
			Slots: in.Session.Slots,
		}
		// Greeting doesn't claim the conversation for any agent.
		in.FinalAgent = in.Session.ActiveAgent
		return in, nil
	}

	target := in.Session.ActiveAgent
	sticky := kind == slotsx.KindDirectAnswer || kind == slotsx.KindCorrection || kind == slotsx.KindLocationData
	if target == "" || !sticky {
		target = intentx.Route(in.Text)
	}

	req := contractx.AgentRequest{
		RestaurantID: in.RestaurantID,
		Message:      in.Text,
		History:      in.Session.Window(historyWindow),
		Slots:        in.Session.Slots,
		LastQuestion: in.Session.LastQuestion,
		Now:          in.Now.In(in.Location),
	}

	for depth := 0; ; depth++ {
		agent, err := contractx.AgentFor(registry, target)
		if err != nil {
			return nil, err
		}

		resp, err := agent.ProcessMessage(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Handoff == nil {
			in.Response = resp
			in.FinalAgent = target
			return in, nil
		}

		if err := resp.Handoff.Validate(); err != nil {
			return nil, err
		}
		if depth+1 >= MaxHandoffDepth {
			log.Warn().
				Str("session_id", in.SessionID).
				Str("from", string(target)).
				Str("to", string(resp.Handoff.Target)).
				Msg("handoff depth exhausted, asking for clarification")
			in.Response = contractx.AgentResponse{
				Type:  contractx.ResponseMessage,
				Text:  clarificationReply,
				Slots: req.Slots,
			}
			in.FinalAgent = in.Session.ActiveAgent
			if in.FinalAgent == "" {
				in.FinalAgent = contractx.AgentInfo
			}
			return in, nil
		}

		target = resp.Handoff.Target
		req.Slots = req.Slots.Merge(resp.Handoff.Context)
		req.Message = resp.Handoff.Message
	}
}
