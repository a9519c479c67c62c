package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tablewise/concierge/agent/contract"
)

// probeOffsets are the alternative-time offsets tried, in minutes, when the
// requested time has no table. Order does not matter; results are sorted by
// proximity to the request.
var probeOffsets = []int{-30, 30, -60, 60, -90, 90, 120}

const maxAlternatives = 3

// Checker answers availability questions against the restaurant data store.
type Checker struct {
	store contractx.DataStore
}

func New(store contractx.DataStore) (*Checker, error) {
	if store == nil {
		return nil, errors.New("data store is required")
	}
	return &Checker{store: store}, nil
}

// Check computes the availability verdict for a booking tuple. When the
// requested table type is taken but others fit, the verdict is available with
// only the substitutes listed, so the caller must surface the substitution.
// When nothing fits at the exact time, up to three alternative times inside
// the weekday's opening window are returned, nearest first. A party too large
// for every configured type is reported unavailable with no alternatives.
func (c *Checker) Check(
	ctx context.Context,
	restaurantID string,
	date string,
	timeOfDay string,
	partySize int,
	tableType string,
) (contractx.AvailabilityResult, error) {
	if partySize <= 0 {
		return contractx.AvailabilityResult{}, fmt.Errorf("%w: party size must be positive", contractx.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return contractx.AvailabilityResult{}, fmt.Errorf("%w: invalid date %q", contractx.ErrValidation, date)
	}
	requestedMinutes, err := clockMinutes(timeOfDay)
	if err != nil {
		return contractx.AvailabilityResult{}, fmt.Errorf("%w: invalid time %q", contractx.ErrValidation, timeOfDay)
	}

	types, err := c.store.GetTableTypes(ctx, restaurantID)
	if err != nil {
		return contractx.AvailabilityResult{}, fmt.Errorf("fetch table types: %w", err)
	}

	fitting := make([]contractx.TableOption, 0, len(types))
	for _, t := range types {
		if t.Capacity >= partySize {
			fitting = append(fitting, t)
		}
	}
	if len(fitting) == 0 {
		// Capacity ceiling: no point probing other times.
		return contractx.AvailabilityResult{
			Available: false,
			Message:   fmt.Sprintf("no table at this venue seats a party of %d", partySize),
		}, nil
	}

	fullyBooked, err := c.store.GetFullyBookedDates(ctx, restaurantID)
	if err != nil {
		return contractx.AvailabilityResult{}, fmt.Errorf("fetch fully booked dates: %w", err)
	}
	for _, d := range fullyBooked {
		if d == date {
			return contractx.AvailabilityResult{
				Available: false,
				Message:   fmt.Sprintf("the restaurant is fully booked on %s", date),
			}, nil
		}
	}

	inventory, err := c.store.GetTableInventory(ctx, restaurantID)
	if err != nil {
		return contractx.AvailabilityResult{}, fmt.Errorf("fetch table inventory: %w", err)
	}

	open, err := c.openTypesAt(ctx, restaurantID, fitting, inventory, date, timeOfDay)
	if err != nil {
		return contractx.AvailabilityResult{}, err
	}

	if len(open) > 0 {
		requested := strings.TrimSpace(tableType)
		if requested == "" {
			return contractx.AvailabilityResult{Available: true, TableOptions: open}, nil
		}
		for _, t := range open {
			if strings.EqualFold(t.TableType, requested) {
				return contractx.AvailabilityResult{
					Available:    true,
					TableOptions: []contractx.TableOption{t},
				}, nil
			}
		}
		// Requested type is taken but substitutes exist; list only them and
		// say so rather than silently swapping.
		return contractx.AvailabilityResult{
			Available:    true,
			TableOptions: open,
			Message:      fmt.Sprintf("%s tables are taken at %s; these types are still open", requested, timeOfDay),
		}, nil
	}

	alternatives, err := c.probeAlternatives(ctx, restaurantID, fitting, inventory, date, requestedMinutes, tableType)
	if err != nil {
		return contractx.AvailabilityResult{}, err
	}

	log.Debug().
		Str("restaurant_id", restaurantID).
		Str("date", date).
		Str("time", timeOfDay).
		Int("party_size", partySize).
		Int("alternatives", len(alternatives)).
		Msg("no availability at requested time")

	return contractx.AvailabilityResult{
		Available:    false,
		Alternatives: alternatives,
		Message:      fmt.Sprintf("nothing is free at %s on %s", timeOfDay, date),
	}, nil
}

// openTypesAt returns the fitting table types with spare inventory at the
// given date and time.
func (c *Checker) openTypesAt(
	ctx context.Context,
	restaurantID string,
	fitting []contractx.TableOption,
	inventory map[string]int,
	date string,
	timeOfDay string,
) ([]contractx.TableOption, error) {
	var open []contractx.TableOption
	for _, t := range fitting {
		total, ok := inventory[t.TableType]
		if !ok || total <= 0 {
			continue
		}
		reserved, err := c.store.CountReservations(ctx, restaurantID, t.TableType, date, timeOfDay)
		if err != nil {
			return nil, fmt.Errorf("count reservations for %s: %w", t.TableType, err)
		}
		if reserved < total {
			open = append(open, t)
		}
	}
	return open, nil
}

// probeAlternatives tries fixed offsets around the requested time, bounded by
// the weekday's opening hours, and keeps the nearest times that have a table
// for the same party and type preference.
func (c *Checker) probeAlternatives(
	ctx context.Context,
	restaurantID string,
	fitting []contractx.TableOption,
	inventory map[string]int,
	date string,
	requestedMinutes int,
	tableType string,
) ([]string, error) {
	hours, err := c.store.GetRestaurantHours(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("fetch restaurant hours: %w", err)
	}
	day, _ := time.Parse("2006-01-02", date)
	window, ok := windowFor(hours, day.Weekday())
	if !ok {
		return nil, nil // closed that day
	}

	requested := strings.TrimSpace(tableType)
	preferred := fitting
	if requested != "" {
		for _, t := range fitting {
			if strings.EqualFold(t.TableType, requested) {
				preferred = []contractx.TableOption{t}
				break
			}
		}
	}

	type candidate struct {
		minutes  int
		distance int
	}
	var found []candidate
	for _, offset := range probeOffsets {
		m := requestedMinutes + offset
		if m < window.open || m > window.close {
			continue
		}
		open, err := c.openTypesAt(ctx, restaurantID, preferred, inventory, date, minutesClock(m))
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			found = append(found, candidate{minutes: m, distance: abs(offset)})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].minutes < found[j].minutes
	})

	out := make([]string, 0, maxAlternatives)
	for _, cand := range found {
		out = append(out, minutesClock(cand.minutes))
		if len(out) == maxAlternatives {
			break
		}
	}
	return out, nil
}

type clockWindow struct {
	open  int
	close int
}

func windowFor(hours []contractx.DayHours, weekday time.Weekday) (clockWindow, bool) {
	for _, h := range hours {
		if h.Weekday != weekday {
			continue
		}
		open, err1 := clockMinutes(h.Open)
		close, err2 := clockMinutes(h.Close)
		if err1 != nil || err2 != nil {
			return clockWindow{}, false
		}
		return clockWindow{open: open, close: close}, true
	}
	return clockWindow{}, false
}

func clockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock hour %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock minute %q", s)
	}
	return h*60 + m, nil
}

func minutesClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
