package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
	intentx "github.com/tablewise/concierge/agent/intent"
	slotsx "github.com/tablewise/concierge/agent/slots"
)

// contextBuilder assembles the grounding facts one domain agent may answer
// from. Agents never answer beyond what the builder returns.
type contextBuilder func(ctx context.Context, store contractx.DataStore, restaurantID string, slots contractx.Slots) (string, error)

// Specialist is a single-shot domain agent: it grounds the model with
// restaurant data and answers in one call. It holds no flow state of its own;
// multi-step flows belong to the reservation agent.
type Specialist struct {
	agentType    contractx.AgentType
	store        contractx.DataStore
	gateway      contractx.LLMGateway
	prompt       string
	buildContext contextBuilder
}

func newSpecialist(
	agentType contractx.AgentType,
	store contractx.DataStore,
	gateway contractx.LLMGateway,
	systemPrompt string,
	buildContext contextBuilder,
) (*Specialist, error) {
	if store == nil {
		return nil, errors.New("data store is required")
	}
	if gateway == nil {
		return nil, errors.New("llm gateway is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	if buildContext == nil {
		return nil, errors.New("context builder is required")
	}
	return &Specialist{
		agentType:    agentType,
		store:        store,
		gateway:      gateway,
		prompt:       systemPrompt,
		buildContext: buildContext,
	}, nil
}

func (s *Specialist) Type() contractx.AgentType {
	return s.agentType
}

func (s *Specialist) ProcessMessage(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	// Delegate unless the message answers this agent's own pending question.
	kind := slotsx.Classify(req.Message, req.LastQuestion)
	answersPending := req.LastQuestion != "" && (kind == slotsx.KindDirectAnswer || kind == slotsx.KindCorrection)
	if !answersPending {
		if target, ok := intentx.StrongerElsewhere(req.Message, s.agentType); ok {
			return contractx.AgentResponse{
				Slots: req.Slots,
				Handoff: &contractx.HandoffRequest{
					Target:       target,
					Message:      req.Message,
					Context:      req.Slots,
					RestaurantID: req.RestaurantID,
				},
			}, nil
		}
	}

	venue, err := s.store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("fetch restaurant: %w", err)
	}
	facts, err := s.buildContext(ctx, s.store, req.RestaurantID, req.Slots)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("build %s context: %w", s.agentType, err)
	}

	system := strings.ReplaceAll(s.prompt, "{restaurant_name}", venue.Name)
	if facts != "" {
		system += "\n\nContext:\n" + facts
	}

	reply, err := s.gateway.Generate(ctx, system, req.History, req.Message)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	return contractx.AgentResponse{
		Type:  contractx.ResponseMessage,
		Text:  strings.TrimSpace(reply),
		Slots: req.Slots,
	}, nil
}
