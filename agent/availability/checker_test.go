package availability

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	contractx "github.com/tablewise/concierge/agent/contract"
)

type fakeStore struct {
	types       []contractx.TableOption
	inventory   map[string]int
	hours       []contractx.DayHours
	fullyBooked []string
	// reserved maps "tableType|date|time" to the booked count.
	reserved map[string]int

	countErr error
}

func (f *fakeStore) GetRestaurant(context.Context, string) (contractx.Restaurant, error) {
	return contractx.Restaurant{ID: "r1", Timezone: "UTC"}, nil
}

func (f *fakeStore) GetMenuItems(context.Context, string) ([]contractx.MenuItem, error) {
	return nil, nil
}

func (f *fakeStore) GetTableTypes(context.Context, string) ([]contractx.TableOption, error) {
	return f.types, nil
}

func (f *fakeStore) GetTableInventory(context.Context, string) (map[string]int, error) {
	return f.inventory, nil
}

func (f *fakeStore) GetRestaurantHours(context.Context, string) ([]contractx.DayHours, error) {
	return f.hours, nil
}

func (f *fakeStore) GetFullyBookedDates(context.Context, string) ([]string, error) {
	return f.fullyBooked, nil
}

func (f *fakeStore) CountReservations(_ context.Context, _, tableType, date, timeOfDay string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.reserved[tableType+"|"+date+"|"+timeOfDay], nil
}

func (f *fakeStore) CreateReservation(context.Context, contractx.ReservationPayload) (string, error) {
	return "", errors.New("not used")
}

// 2026-08-21 is a Friday.
const testDate = "2026-08-21"

func openAllWeek(open, close string) []contractx.DayHours {
	var hours []contractx.DayHours
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours = append(hours, contractx.DayHours{Weekday: wd, Open: open, Close: close})
	}
	return hours
}

func TestCheckSingleTypeAvailable(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types:     []contractx.TableOption{{TableType: "standard", Price: 0, Capacity: 4}},
		inventory: map[string]int{"standard": 5},
		hours:     openAllWeek("17:00", "23:00"),
		reserved:  map[string]int{},
	}
	c, err := New(store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 2, "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !got.Available {
		t.Fatalf("expected available, got %+v", got)
	}
	want := []contractx.TableOption{{TableType: "standard", Price: 0, Capacity: 4}}
	if !reflect.DeepEqual(got.TableOptions, want) {
		t.Fatalf("table options = %+v, want %+v", got.TableOptions, want)
	}
}

func TestCheckAlternativeTimesNearestFirst(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types:     []contractx.TableOption{{TableType: "standard", Capacity: 4}},
		inventory: map[string]int{"standard": 1},
		hours:     openAllWeek("17:00", "23:00"),
		reserved: map[string]int{
			"standard|" + testDate + "|20:00": 1, // requested slot full
			"standard|" + testDate + "|20:30": 1, // +30 also full
		},
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 2, "standard")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Available {
		t.Fatalf("expected unavailable, got %+v", got)
	}
	want := []string{"19:30", "19:00", "21:00"}
	if !reflect.DeepEqual(got.Alternatives, want) {
		t.Fatalf("alternatives = %v, want %v", got.Alternatives, want)
	}
}

func TestCheckAlternativesRespectOpeningWindow(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types:     []contractx.TableOption{{TableType: "standard", Capacity: 4}},
		inventory: map[string]int{"standard": 1},
		hours:     openAllWeek("17:00", "22:00"),
		reserved: map[string]int{
			"standard|" + testDate + "|22:00": 1,
		},
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "22:00", 2, "standard")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	for _, alt := range got.Alternatives {
		if alt > "22:00" || alt < "17:00" {
			t.Fatalf("alternative %s outside opening window", alt)
		}
	}
}

func TestCheckRequestedTypeTakenSurfacesSubstitutes(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types: []contractx.TableOption{
			{TableType: "grass", Price: 10, Capacity: 4},
			{TableType: "standard", Price: 0, Capacity: 4},
		},
		inventory: map[string]int{"grass": 1, "standard": 3},
		hours:     openAllWeek("17:00", "23:00"),
		reserved: map[string]int{
			"grass|" + testDate + "|20:00": 1,
		},
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 2, "grass")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !got.Available {
		t.Fatalf("expected available substitutes, got %+v", got)
	}
	if len(got.TableOptions) != 1 || got.TableOptions[0].TableType != "standard" {
		t.Fatalf("expected only the open substitute, got %+v", got.TableOptions)
	}
	if got.Message == "" {
		t.Fatalf("substitution must be surfaced in the message")
	}
}

func TestCheckCapacityCeilingNoAlternatives(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types:     []contractx.TableOption{{TableType: "standard", Capacity: 4}},
		inventory: map[string]int{"standard": 5},
		hours:     openAllWeek("17:00", "23:00"),
		reserved:  map[string]int{},
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 10, "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Available {
		t.Fatalf("expected unavailable for oversized party")
	}
	if len(got.Alternatives) != 0 {
		t.Fatalf("capacity ceiling must not produce alternatives, got %v", got.Alternatives)
	}
}

func TestCheckFullyBookedDateShortCircuits(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		types:       []contractx.TableOption{{TableType: "standard", Capacity: 4}},
		inventory:   map[string]int{"standard": 5},
		hours:       openAllWeek("17:00", "23:00"),
		fullyBooked: []string{testDate},
		countErr:    errors.New("must not be called"),
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 2, "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Available {
		t.Fatalf("expected unavailable on fully booked date")
	}
}

func TestCheckNeverFabricatesAvailability(t *testing.T) {
	t.Parallel()

	// Every probe, at every offset, is full.
	reserved := map[string]int{}
	for h := 17; h <= 23; h++ {
		for _, m := range []string{"00", "30"} {
			reserved[fmt.Sprintf("standard|%s|%02d:%s", testDate, h, m)] = 1
		}
	}
	store := &fakeStore{
		types:     []contractx.TableOption{{TableType: "standard", Capacity: 4}},
		inventory: map[string]int{"standard": 1},
		hours:     openAllWeek("17:00", "23:00"),
		reserved:  reserved,
	}
	c, _ := New(store)

	got, err := c.Check(context.Background(), "r1", testDate, "20:00", 2, "standard")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Available || len(got.Alternatives) != 0 {
		t.Fatalf("fabricated availability: %+v", got)
	}
}

func TestCheckRejectsBadInputs(t *testing.T) {
	t.Parallel()

	c, _ := New(&fakeStore{})
	if _, err := c.Check(context.Background(), "r1", "not-a-date", "20:00", 2, ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad date, got %v", err)
	}
	if _, err := c.Check(context.Background(), "r1", testDate, "8pm", 2, ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad time, got %v", err)
	}
	if _, err := c.Check(context.Background(), "r1", testDate, "20:00", 0, ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero party, got %v", err)
	}
}
