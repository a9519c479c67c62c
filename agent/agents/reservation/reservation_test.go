package reservation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	availabilityx "github.com/tablewise/concierge/agent/availability"
	contractx "github.com/tablewise/concierge/agent/contract"
)

type fakeStore struct {
	restaurant contractx.Restaurant
	tableTypes []contractx.TableOption
	inventory  map[string]int
	hours      []contractx.DayHours
	fullDates  []string
	counts     map[string]int // "tableType|date|time" -> reserved

	createErr error
	createdID string
	created   []contractx.ReservationPayload
}

func (f *fakeStore) GetRestaurant(_ context.Context, _ string) (contractx.Restaurant, error) {
	return f.restaurant, nil
}

func (f *fakeStore) GetMenuItems(_ context.Context, _ string) ([]contractx.MenuItem, error) {
	return nil, nil
}

func (f *fakeStore) GetTableTypes(_ context.Context, _ string) ([]contractx.TableOption, error) {
	return f.tableTypes, nil
}

func (f *fakeStore) GetTableInventory(_ context.Context, _ string) (map[string]int, error) {
	return f.inventory, nil
}

func (f *fakeStore) GetRestaurantHours(_ context.Context, _ string) ([]contractx.DayHours, error) {
	return f.hours, nil
}

func (f *fakeStore) GetFullyBookedDates(_ context.Context, _ string) ([]string, error) {
	return f.fullDates, nil
}

func (f *fakeStore) CountReservations(_ context.Context, _, tableType, date, timeOfDay string) (int, error) {
	return f.counts[tableType+"|"+date+"|"+timeOfDay], nil
}

func (f *fakeStore) CreateReservation(_ context.Context, payload contractx.ReservationPayload) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, payload)
	if f.createdID == "" {
		return "res-1", nil
	}
	return f.createdID, nil
}

type fakeGateway struct {
	reply string
	err   error
	calls int
}

func (f *fakeGateway) Generate(_ context.Context, _ string, _ []contractx.Turn, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func allWeekHours(open, close string) []contractx.DayHours {
	var hours []contractx.DayHours
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours = append(hours, contractx.DayHours{Weekday: wd, Open: open, Close: close})
	}
	return hours
}

func newTestStore() *fakeStore {
	return &fakeStore{
		restaurant: contractx.Restaurant{
			ID: "rest-1", Name: "Laguna Azul", Timezone: "UTC",
			CakePrice: 25, FlowersPrice: 15,
		},
		tableTypes: []contractx.TableOption{
			{TableType: "standard", Price: 0, Capacity: 6},
			{TableType: "sea view", Price: 20, Capacity: 4},
		},
		inventory: map[string]int{"standard": 2, "sea view": 1},
		hours:     allWeekHours("17:00", "23:00"),
		counts:    map[string]int{},
	}
}

func newTestAgent(t *testing.T, store *fakeStore, gw *fakeGateway) *Agent {
	t.Helper()
	checker, err := availabilityx.New(store)
	if err != nil {
		t.Fatalf("availability.New: %v", err)
	}
	ag, err := New(store, checker, gw, "You book tables for {restaurant_name}.")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ag
}

const testDate = "2026-08-21" // a Friday

func completeSlots() contractx.Slots {
	return contractx.Slots{
		Date: testDate, Time: "19:00", PartySize: 2, TableType: "standard",
		Name: "Ana Ruiz", Email: "ana@example.com", Phone: "+34600111222",
	}
}

func TestAsksForMissingBookingFieldsInOrder(t *testing.T) {
	t.Parallel()
	ag := newTestAgent(t, newTestStore(), &fakeGateway{})

	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "I'd like to book a table",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type != contractx.ResponseMessage {
		t.Fatalf("type = %q, want message", resp.Type)
	}
	if resp.Text != askDate || resp.NextQuestion != askDate {
		t.Fatalf("expected date question, got text=%q next=%q", resp.Text, resp.NextQuestion)
	}
}

func TestSingleOpenTypeAutoSelectsAndMovesToContact(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	store.inventory = map[string]int{"sea view": 1}
	ag := newTestAgent(t, store, &fakeGateway{})

	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "2 of us",
		LastQuestion: askParty,
		Slots:        contractx.Slots{Date: testDate, Time: "19:00", PartySize: 2},
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Slots.TableType != "sea view" {
		t.Fatalf("table type = %q, want auto-selected sea view", resp.Slots.TableType)
	}
	if resp.Slots.AvailabilityConfirmedKey != resp.Slots.BookingKey() {
		t.Fatalf("availability key not pinned to booking tuple")
	}
	if resp.NextQuestion != askName {
		t.Fatalf("next question = %q, want name question", resp.NextQuestion)
	}
}

func TestMultipleOpenTypesArePresentedOnce(t *testing.T) {
	t.Parallel()
	ag := newTestAgent(t, newTestStore(), &fakeGateway{})

	req := contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "tomorrow at 7pm for two",
		Slots:        contractx.Slots{Date: testDate, Time: "19:00", PartySize: 2},
	}
	resp, err := ag.ProcessMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type != contractx.ResponseTwoMessages {
		t.Fatalf("type = %q, want two_messages", resp.Type)
	}
	if !strings.Contains(resp.Text, "sea view") || !strings.Contains(resp.Text, "standard") {
		t.Fatalf("options not presented: %q", resp.Text)
	}
	if len(resp.Slots.ShownTableTypes) != 2 {
		t.Fatalf("shown types = %v, want both recorded", resp.Slots.ShownTableTypes)
	}

	// Same options on a later turn are not listed again.
	req.Slots = resp.Slots
	resp2, err := ag.ProcessMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if strings.Contains(resp2.Text, "sea view (") {
		t.Fatalf("options repeated: %q", resp2.Text)
	}
	if resp2.NextQuestion != askTable {
		t.Fatalf("next question = %q, want table question", resp2.NextQuestion)
	}
}

func TestUnavailableTimePresentsAlternativesAndClearsTime(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	store.inventory = map[string]int{"standard": 1}
	store.counts["standard|"+testDate+"|19:00"] = 1
	ag := newTestAgent(t, store, &fakeGateway{})

	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "7pm please",
		LastQuestion: askTime,
		Slots:        contractx.Slots{Date: testDate, Time: "19:00", PartySize: 2},
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type != contractx.ResponseTwoMessages {
		t.Fatalf("type = %q, want two_messages", resp.Type)
	}
	if resp.Slots.Time != "" {
		t.Fatalf("time = %q, want cleared so the guest can pick again", resp.Slots.Time)
	}
	if !strings.Contains(resp.Text, "19:30") {
		t.Fatalf("nearest alternative missing from %q", resp.Text)
	}
	if resp.NextQuestion != askNewTime {
		t.Fatalf("next question = %q, want re-ask for time", resp.NextQuestion)
	}
}

func TestCapacityCeilingAsksForNewDateWithoutAlternatives(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	ag := newTestAgent(t, store, &fakeGateway{})

	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "a table for 12",
		Slots:        contractx.Slots{Date: testDate, Time: "19:00", PartySize: 12},
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if strings.Contains(resp.Text, "19:30") {
		t.Fatalf("capacity failure must not offer time alternatives: %q", resp.Text)
	}
	if resp.NextQuestion != askNewDate {
		t.Fatalf("next question = %q, want new-date question", resp.NextQuestion)
	}
}

func TestConfirmationCreatesReservationAndRedirects(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	gw := &fakeGateway{reply: `All set, Ana! <reservation>{"customer_name":"Ana Ruiz","customer_email":"ana@example.com","customer_phone":"+34600111222","date":"` + testDate + `","time":"19:00","party_size":2,"table_type":"standard"}</reservation>`}
	ag := newTestAgent(t, store, gw)

	sl := completeSlots()
	sl.AvailabilityConfirmedKey = sl.BookingKey()
	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "yes, go ahead",
		LastQuestion: confirmQuestion(sl),
		Slots:        sl,
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type != contractx.ResponseRedirect {
		t.Fatalf("type = %q, want redirect", resp.Type)
	}
	if resp.ReservationID != "res-1" {
		t.Fatalf("reservation id = %q", resp.ReservationID)
	}
	if resp.Reservation == nil || resp.Reservation.CustomerName != "Ana Ruiz" {
		t.Fatalf("payload not surfaced: %+v", resp.Reservation)
	}
	if strings.Contains(resp.Text, "<reservation>") {
		t.Fatalf("payload block leaked into user text: %q", resp.Text)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d reservations, want 1", len(store.created))
	}
}

func TestConfirmedSlotsOverrideModelBlock(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	// Block carries a tuple the guest never confirmed and no check verified.
	gw := &fakeGateway{reply: `All set! <reservation>{"customer_name":"Bo Chen","customer_email":"bo@else.io","customer_phone":"+10000000000","date":"2026-12-25","time":"03:00","party_size":9,"table_type":"sea view"}</reservation>`}
	ag := newTestAgent(t, store, gw)

	sl := completeSlots()
	sl.AvailabilityConfirmedKey = sl.BookingKey()
	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "yes, go ahead",
		LastQuestion: confirmQuestion(sl),
		Slots:        sl,
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type != contractx.ResponseRedirect || resp.ReservationID == "" {
		t.Fatalf("confirmed turn did not complete: %+v", resp)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d reservations, want 1", len(store.created))
	}
	got := store.created[0]
	if got.Date != testDate || got.Time != "19:00" || got.PartySize != 2 || got.TableType != "standard" {
		t.Fatalf("stored tuple drifted from the confirmed one: %+v", got)
	}
	if got.CustomerName != "Ana Ruiz" || got.CustomerEmail != "ana@example.com" || got.CustomerPhone != "+34600111222" {
		t.Fatalf("stored contact drifted from the confirmed one: %+v", got)
	}
}

func TestNoPayloadBlockIsSchemaViolation(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	gw := &fakeGateway{reply: "You're all booked, see you soon!"}
	ag := newTestAgent(t, store, gw)

	sl := completeSlots()
	sl.AvailabilityConfirmedKey = sl.BookingKey()
	_, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "yes",
		LastQuestion: confirmQuestion(sl),
		Slots:        sl,
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("err = %v, want ErrSchemaViolation", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("reservation created despite missing payload block")
	}
}

func TestSlotConflictReprobesInsteadOfClaimingSuccess(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	store.createErr = contractx.ErrSlotConflict
	gw := &fakeGateway{reply: `Done! <reservation>{"customer_name":"Ana Ruiz","customer_email":"ana@example.com","customer_phone":"+34600111222","date":"` + testDate + `","time":"19:00","party_size":2,"table_type":"standard"}</reservation>`}
	ag := newTestAgent(t, store, gw)

	sl := completeSlots()
	sl.AvailabilityConfirmedKey = sl.BookingKey()
	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "confirm",
		LastQuestion: confirmQuestion(sl),
		Slots:        sl,
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Type == contractx.ResponseRedirect || resp.ReservationID != "" {
		t.Fatalf("conflict turn must not look like success: %+v", resp)
	}
	if resp.Slots.AvailabilityConfirmedKey != "" {
		t.Fatalf("stale availability key kept after conflict")
	}
	if resp.Slots.Time != "" {
		t.Fatalf("time should be cleared for re-asking, got %q", resp.Slots.Time)
	}
	if resp.Slots.Name != "Ana Ruiz" || resp.Slots.Email == "" {
		t.Fatalf("contact fields must survive a conflict: %+v", resp.Slots)
	}
}

func TestUpstreamFailurePropagates(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	gw := &fakeGateway{err: contractx.ErrModelInvoke}
	ag := newTestAgent(t, store, gw)

	sl := completeSlots()
	sl.AvailabilityConfirmedKey = sl.BookingKey()
	_, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "yes",
		LastQuestion: confirmQuestion(sl),
		Slots:        sl,
	})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("err = %v, want model invoke failure to propagate", err)
	}
}

func TestOffTopicQuestionHandsOffWithSlots(t *testing.T) {
	t.Parallel()
	ag := newTestAgent(t, newTestStore(), &fakeGateway{})

	sl := contractx.Slots{Date: testDate, PartySize: 2}
	resp, err := ag.ProcessMessage(context.Background(), contractx.AgentRequest{
		RestaurantID: "rest-1",
		Message:      "do you have vegan dishes on the menu?",
		LastQuestion: askTime,
		Slots:        sl,
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.Handoff == nil || resp.Handoff.Target != contractx.AgentMenu {
		t.Fatalf("expected handoff to menu, got %+v", resp.Handoff)
	}
	if resp.Handoff.Context.Date != testDate || resp.Handoff.Context.PartySize != 2 {
		t.Fatalf("handoff dropped collected slots: %+v", resp.Handoff.Context)
	}
}

func TestPayloadBlockExtractionVariants(t *testing.T) {
	t.Parallel()
	tagged := `Great! <reservation>{"customer_name":"Bo","date":"2026-09-01","time":"20:00","party_size":4,"table_type":"standard","customer_email":"bo@x.io","customer_phone":"1234567"}</reservation>`
	bare := `Great! {"customer_name":"Bo","date":"2026-09-01","time":"20:00","party_size":4,"table_type":"standard","customer_email":"bo@x.io","customer_phone":"1234567"} see you!`
	for name, text := range map[string]string{"tagged": tagged, "bare": bare} {
		block, ok := extractPayloadBlock(text)
		if !ok {
			t.Fatalf("%s: block not found", name)
		}
		if block.CustomerName != "Bo" || block.PartySize != 4 {
			t.Fatalf("%s: bad decode %+v", name, block)
		}
		stripped := stripPayloadBlock(text)
		if strings.Contains(stripped, "customer_name") {
			t.Fatalf("%s: strip left payload in %q", name, stripped)
		}
	}

	if _, ok := extractPayloadBlock(`here is an unrelated object {"weather":"sunny"}`); ok {
		t.Fatal("unrelated JSON must not decode as a reservation")
	}
}
