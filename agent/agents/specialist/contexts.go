package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
)

// Context builders render the data-store facts each domain agent is allowed
// to answer from. Prices and hours always come from the store, never from the
// model's own guesses.

func menuContext(ctx context.Context, store contractx.DataStore, restaurantID string, _ contractx.Slots) (string, error) {
	items, err := store.GetMenuItems(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "The menu is currently unavailable.", nil
	}
	var b strings.Builder
	b.WriteString("Menu:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %s (%.2f)", item.Name, item.Description, item.Price)
		if len(item.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(item.Tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func celebrationContext(ctx context.Context, store contractx.DataStore, restaurantID string, slots contractx.Slots) (string, error) {
	venue, err := store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Celebration add-ons:\n- Cake: %.2f\n- Flowers: %.2f\n", venue.CakePrice, venue.FlowersPrice)
	if slots.CelebrationType != "" {
		fmt.Fprintf(&b, "The guest mentioned a %s.\n", slots.CelebrationType)
	}
	return strings.TrimSpace(b.String()), nil
}

func locationContext(ctx context.Context, store contractx.DataStore, restaurantID string, slots contractx.Slots) (string, error) {
	venue, err := store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %s\n", venue.Address)
	if slots.HotelName != "" {
		fmt.Fprintf(&b, "The guest is staying at: %s\n", slots.HotelName)
	}
	return strings.TrimSpace(b.String()), nil
}

func infoContext(ctx context.Context, store contractx.DataStore, restaurantID string, _ contractx.Slots) (string, error) {
	venue, err := store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	hours, err := store.GetRestaurantHours(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %s\n", venue.Address)
	if len(hours) > 0 {
		b.WriteString("Opening hours:\n")
		for _, h := range hours {
			fmt.Fprintf(&b, "- %s: %s-%s\n", h.Weekday, h.Open, h.Close)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func supportContext(ctx context.Context, store contractx.DataStore, restaurantID string, _ contractx.Slots) (string, error) {
	venue, err := store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Venue: %s\nAddress: %s", venue.Name, venue.Address), nil
}
