package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tablewise/concierge/agent/contract"
)

// FetchRestaurant loads the venue and resolves its timezone, which anchors
// relative dates like "tomorrow" to the restaurant's clock, not the server's.
func FetchRestaurant(ctx context.Context, in *GraphState, store contractx.DataStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	venue, err := store.GetRestaurant(ctx, in.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("fetch restaurant %s: %w", in.RestaurantID, err)
	}
	in.Restaurant = venue

	in.Location = time.UTC
	if venue.Timezone != "" {
		loc, err := time.LoadLocation(venue.Timezone)
		if err != nil {
			log.Warn().Str("restaurant_id", in.RestaurantID).Str("timezone", venue.Timezone).Msg("unknown timezone, using UTC")
		} else {
			in.Location = loc
		}
	}
	return in, nil
}
