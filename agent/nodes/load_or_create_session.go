package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tablewise/concierge/agent/contract"
	statex "github.com/tablewise/concierge/agent/state"
)

func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	session, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if !errors.Is(err, statex.ErrSessionNotFound) {
			return nil, err
		}
		session = statex.NewSession(in.SessionID, in.RestaurantID, in.Now)
	}

	// Work on a copy so a failed turn leaves the stored session untouched.
	in.Session = session.Clone()
	return in, nil
}
