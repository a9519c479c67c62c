package orchestratornode

import (
	"fmt"

	contractx "github.com/tablewise/concierge/agent/contract"
	slotsx "github.com/tablewise/concierge/agent/slots"
)

// ExtractSlots runs deterministic entity extraction before any agent logic,
// so whichever agent handles the turn sees the same slot state.
func ExtractSlots(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	in.Session.Slots = slotsx.Extract(
		in.Text,
		in.Session.LastQuestion,
		in.Session.Slots,
		in.Now.In(in.Location),
		in.Location,
	)
	return in, nil
}
