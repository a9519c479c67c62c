package contract

import (
	"context"
	"fmt"
)

// Agent is one specialized dialogue agent. ProcessMessage runs a single turn
// and never blocks past the configured model timeout.
type Agent interface {
	Type() AgentType
	ProcessMessage(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// Registry exposes every configured agent. One method per agent keeps the
// orchestrator's routing table exhaustive and statically checkable.
type Registry interface {
	Reservation() Agent
	Availability() Agent
	Menu() Agent
	Celebration() Agent
	Location() Agent
	Support() Agent
	Info() Agent
}

// AgentFor resolves an agent type against the registry.
func AgentFor(r Registry, t AgentType) (Agent, error) {
	switch t {
	case AgentReservation:
		return r.Reservation(), nil
	case AgentAvailability:
		return r.Availability(), nil
	case AgentMenu:
		return r.Menu(), nil
	case AgentCelebration:
		return r.Celebration(), nil
	case AgentLocation:
		return r.Location(), nil
	case AgentSupport:
		return r.Support(), nil
	case AgentInfo:
		return r.Info(), nil
	default:
		return nil, fmt.Errorf("%w: unknown agent type=%q", ErrValidation, t)
	}
}

// DataStore is the restaurant data collaborator. CreateReservation must be an
// atomic check-then-insert at the store layer and fail with ErrSlotConflict
// when the slot filled concurrently, as opposed to a generic error.
type DataStore interface {
	GetRestaurant(ctx context.Context, restaurantID string) (Restaurant, error)
	GetMenuItems(ctx context.Context, restaurantID string) ([]MenuItem, error)
	GetTableTypes(ctx context.Context, restaurantID string) ([]TableOption, error)
	GetTableInventory(ctx context.Context, restaurantID string) (map[string]int, error)
	GetRestaurantHours(ctx context.Context, restaurantID string) ([]DayHours, error)
	GetFullyBookedDates(ctx context.Context, restaurantID string) ([]string, error)
	CountReservations(ctx context.Context, restaurantID, tableType, date, timeOfDay string) (int, error)
	CreateReservation(ctx context.Context, payload ReservationPayload) (string, error)
}

// LLMGateway is the generative text collaborator. Implementations bound the
// call with a timeout and window the history they forward.
type LLMGateway interface {
	Generate(ctx context.Context, systemPrompt string, history []Turn, userMessage string) (string, error)
}
