package specialist

import (
	"context"
	"errors"
	"fmt"

	reservationx "github.com/tablewise/concierge/agent/agents/reservation"
	availabilityx "github.com/tablewise/concierge/agent/availability"
	contractx "github.com/tablewise/concierge/agent/contract"
	llmx "github.com/tablewise/concierge/agent/llm"
	promptx "github.com/tablewise/concierge/agent/prompt"
)

type registryImpl struct {
	reservation  contractx.Agent
	availability contractx.Agent
	menu         contractx.Agent
	celebration  contractx.Agent
	location     contractx.Agent
	support      contractx.Agent
	info         contractx.Agent
}

func (r *registryImpl) Reservation() contractx.Agent  { return r.reservation }
func (r *registryImpl) Availability() contractx.Agent { return r.availability }
func (r *registryImpl) Menu() contractx.Agent         { return r.menu }
func (r *registryImpl) Celebration() contractx.Agent  { return r.celebration }
func (r *registryImpl) Location() contractx.Agent     { return r.location }
func (r *registryImpl) Support() contractx.Agent      { return r.support }
func (r *registryImpl) Info() contractx.Agent         { return r.info }

// NewRegistry builds every agent. The reservation flow may run its own model;
// all single-shot domain agents share the specialist model and gateway.
func NewRegistry(ctx context.Context, cfg llmx.Config, store contractx.DataStore) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("data store is required")
	}

	prompts := promptx.LoadPromptSet()

	checker, err := availabilityx.New(store)
	if err != nil {
		return nil, err
	}

	reservationModelCfg := cfg.OpenRouterFor(contractx.AgentReservation)
	reservationModel, err := reservationModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create reservation model: %v", contractx.ErrModelInvoke, err)
	}
	reservationGateway, err := llmx.NewGateway(reservationModel,
		llmx.WithCallTimeout(cfg.Timeout),
		llmx.WithHistoryWindow(cfg.HistoryWindow),
	)
	if err != nil {
		return nil, err
	}

	specialistModelCfg := cfg.OpenRouterFor(contractx.AgentInfo)
	specialistModel, err := specialistModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create specialist model: %v", contractx.ErrModelInvoke, err)
	}
	specialistGateway, err := llmx.NewGateway(specialistModel,
		llmx.WithCallTimeout(cfg.Timeout),
		llmx.WithHistoryWindow(cfg.HistoryWindow),
	)
	if err != nil {
		return nil, err
	}

	reservation, err := reservationx.New(store, checker, reservationGateway, prompts.Reservation)
	if err != nil {
		return nil, err
	}
	availability, err := newAvailabilityAgent(checker)
	if err != nil {
		return nil, err
	}
	menu, err := newSpecialist(contractx.AgentMenu, store, specialistGateway, prompts.Menu, menuContext)
	if err != nil {
		return nil, err
	}
	celebration, err := newSpecialist(contractx.AgentCelebration, store, specialistGateway, prompts.Celebration, celebrationContext)
	if err != nil {
		return nil, err
	}
	location, err := newSpecialist(contractx.AgentLocation, store, specialistGateway, prompts.Location, locationContext)
	if err != nil {
		return nil, err
	}
	support, err := newSpecialist(contractx.AgentSupport, store, specialistGateway, prompts.Support, supportContext)
	if err != nil {
		return nil, err
	}
	info, err := newSpecialist(contractx.AgentInfo, store, specialistGateway, prompts.Info, infoContext)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		reservation:  reservation,
		availability: availability,
		menu:         menu,
		celebration:  celebration,
		location:     location,
		support:      support,
		info:         info,
	}, nil
}
