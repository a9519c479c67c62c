package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	reservationx "github.com/tablewise/concierge/agent/agents/reservation"
	availabilityx "github.com/tablewise/concierge/agent/availability"
	contractx "github.com/tablewise/concierge/agent/contract"
	statex "github.com/tablewise/concierge/agent/state"
)

type fakeDataStore struct {
	restaurant contractx.Restaurant
	tableTypes []contractx.TableOption
	inventory  map[string]int
	hours      []contractx.DayHours
	counts     map[string]int

	created []contractx.ReservationPayload
}

func (f *fakeDataStore) GetRestaurant(_ context.Context, _ string) (contractx.Restaurant, error) {
	return f.restaurant, nil
}

func (f *fakeDataStore) GetMenuItems(_ context.Context, _ string) ([]contractx.MenuItem, error) {
	return nil, nil
}

func (f *fakeDataStore) GetTableTypes(_ context.Context, _ string) ([]contractx.TableOption, error) {
	return f.tableTypes, nil
}

func (f *fakeDataStore) GetTableInventory(_ context.Context, _ string) (map[string]int, error) {
	return f.inventory, nil
}

func (f *fakeDataStore) GetRestaurantHours(_ context.Context, _ string) ([]contractx.DayHours, error) {
	return f.hours, nil
}

func (f *fakeDataStore) GetFullyBookedDates(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeDataStore) CountReservations(_ context.Context, _, tableType, date, timeOfDay string) (int, error) {
	return f.counts[tableType+"|"+date+"|"+timeOfDay], nil
}

func (f *fakeDataStore) CreateReservation(_ context.Context, payload contractx.ReservationPayload) (string, error) {
	f.created = append(f.created, payload)
	return "res-1", nil
}

type fakeGateway struct {
	reply string
	err   error
}

func (f *fakeGateway) Generate(_ context.Context, _ string, _ []contractx.Turn, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type echoAgent struct {
	agentType contractx.AgentType
}

func (a echoAgent) Type() contractx.AgentType { return a.agentType }

func (a echoAgent) ProcessMessage(_ context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	return contractx.AgentResponse{
		Type:  contractx.ResponseMessage,
		Text:  "reply from " + string(a.agentType),
		Slots: req.Slots,
	}, nil
}

type testRegistry struct {
	agents map[contractx.AgentType]contractx.Agent
}

func (r *testRegistry) Reservation() contractx.Agent  { return r.agents[contractx.AgentReservation] }
func (r *testRegistry) Availability() contractx.Agent { return r.agents[contractx.AgentAvailability] }
func (r *testRegistry) Menu() contractx.Agent         { return r.agents[contractx.AgentMenu] }
func (r *testRegistry) Celebration() contractx.Agent  { return r.agents[contractx.AgentCelebration] }
func (r *testRegistry) Location() contractx.Agent     { return r.agents[contractx.AgentLocation] }
func (r *testRegistry) Support() contractx.Agent      { return r.agents[contractx.AgentSupport] }
func (r *testRegistry) Info() contractx.Agent         { return r.agents[contractx.AgentInfo] }

// testNow is a Thursday; "tomorrow" in the scripted conversations is the 21st.
var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func newFakeDataStore() *fakeDataStore {
	hours := make([]contractx.DayHours, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours = append(hours, contractx.DayHours{Weekday: wd, Open: "17:00", Close: "23:00"})
	}
	return &fakeDataStore{
		restaurant: contractx.Restaurant{ID: "rest-1", Name: "Laguna Azul", Address: "12 Shore Road", Timezone: "UTC"},
		tableTypes: []contractx.TableOption{{TableType: "standard", Capacity: 6}},
		inventory:  map[string]int{"standard": 3},
		hours:      hours,
		counts:     map[string]int{},
	}
}

func newTestOrchestrator(t *testing.T, data *fakeDataStore, gw contractx.LLMGateway) (*Orchestrator, statex.Store) {
	t.Helper()

	checker, err := availabilityx.New(data)
	if err != nil {
		t.Fatalf("availability.New: %v", err)
	}
	reservation, err := reservationx.New(data, checker, gw, "You book tables for {restaurant_name}.")
	if err != nil {
		t.Fatalf("reservation.New: %v", err)
	}

	agents := map[contractx.AgentType]contractx.Agent{
		contractx.AgentReservation: reservation,
	}
	for _, at := range []contractx.AgentType{
		contractx.AgentAvailability, contractx.AgentMenu, contractx.AgentCelebration,
		contractx.AgentLocation, contractx.AgentSupport, contractx.AgentInfo,
	} {
		agents[at] = echoAgent{agentType: at}
	}

	sessions := statex.NewMemoryStore()
	o, err := New(sessions, &testRegistry{agents: agents}, data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.now = func() time.Time { return testNow }
	return o, sessions
}

func TestFullBookingConversation(t *testing.T) {
	t.Parallel()
	data := newFakeDataStore()
	gw := &fakeGateway{reply: `You're all set, Ana — see you tomorrow! <reservation>{"customer_name":"Ana Ruiz","customer_email":"ana@example.com","customer_phone":"+34600111222","date":"2026-08-21","time":"20:00","party_size":2,"table_type":"standard"}</reservation>`}
	o, sessions := newTestOrchestrator(t, data, gw)
	ctx := context.Background()

	turn := func(msg string) contractx.TurnResult {
		t.Helper()
		out, err := o.HandleTurn(ctx, "sess-1", "rest-1", msg)
		if err != nil {
			t.Fatalf("HandleTurn(%q): %v", msg, err)
		}
		return out
	}

	if out := turn("hi"); !strings.Contains(out.Text, "Laguna Azul") {
		t.Fatalf("greeting should name the venue: %q", out.Text)
	}
	if out := turn("book a table for 2 people tomorrow at 8pm"); !strings.Contains(strings.ToLower(out.Text), "name") {
		t.Fatalf("expected name question, got %q", out.Text)
	}
	if out := turn("Ana Ruiz"); !strings.Contains(strings.ToLower(out.Text), "email") {
		t.Fatalf("expected email question, got %q", out.Text)
	}
	if out := turn("ana@example.com"); !strings.Contains(strings.ToLower(out.Text), "phone") {
		t.Fatalf("expected phone question, got %q", out.Text)
	}
	if out := turn("+34600111222"); !strings.Contains(strings.ToLower(out.Text), "confirm") {
		t.Fatalf("expected confirmation question, got %q", out.Text)
	}

	out := turn("yes please")
	if out.Type != contractx.ResponseRedirect {
		t.Fatalf("type = %q, want redirect", out.Type)
	}
	if out.ReservationID != "res-1" || out.Reservation == nil {
		t.Fatalf("reservation not surfaced: %+v", out)
	}
	if strings.Contains(out.Text, "<reservation>") {
		t.Fatalf("payload block leaked to the guest: %q", out.Text)
	}
	if len(data.created) != 1 {
		t.Fatalf("created %d reservations, want 1", len(data.created))
	}
	if got := data.created[0]; got.Date != "2026-08-21" || got.Time != "20:00" || got.PartySize != 2 {
		t.Fatalf("booked wrong tuple: %+v", got)
	}

	// The completed flow resets; the session survives for further chat.
	saved, err := sessions.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Slots.Date != "" || saved.ActiveAgent != "" {
		t.Fatalf("flow state not reset after booking: %+v", saved)
	}
	if len(saved.History) == 0 {
		t.Fatalf("history should be preserved")
	}
}

func TestMidFlowMenuQuestionHandsOffAndKeepsSlots(t *testing.T) {
	t.Parallel()
	data := newFakeDataStore()
	o, sessions := newTestOrchestrator(t, data, &fakeGateway{reply: "unused"})
	ctx := context.Background()

	seed := statex.NewSession("sess-2", "rest-1", testNow)
	seed.ActiveAgent = contractx.AgentReservation
	seed.Slots = contractx.Slots{Date: "2026-08-21", PartySize: 2}
	seed.LastQuestion = "What time works for you?"
	seed.AppendTurn(contractx.SenderUser, "book a table for 2 tomorrow")
	seed.AppendTurn(contractx.SenderAgent, "What time works for you?")
	if err := sessions.Save(ctx, seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := o.HandleTurn(ctx, "sess-2", "rest-1", "do you have vegan dishes on the menu?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if out.Text != "reply from menu" {
		t.Fatalf("expected menu agent reply, got %q", out.Text)
	}

	saved, err := sessions.Load(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Slots.Date != "2026-08-21" || saved.Slots.PartySize != 2 {
		t.Fatalf("slots lost across handoff: %+v", saved.Slots)
	}
	if saved.ActiveAgent != contractx.AgentMenu {
		t.Fatalf("active agent = %q, want menu", saved.ActiveAgent)
	}
}

func TestUpstreamFailureDegradesToApologyAndKeepsSession(t *testing.T) {
	t.Parallel()
	data := newFakeDataStore()
	gw := &fakeGateway{err: contractx.ErrModelInvoke}
	o, sessions := newTestOrchestrator(t, data, gw)
	ctx := context.Background()

	seed := statex.NewSession("sess-3", "rest-1", testNow)
	seed.ActiveAgent = contractx.AgentReservation
	seed.Slots = contractx.Slots{
		Date: "2026-08-21", Time: "20:00", PartySize: 2, TableType: "standard",
		Name: "Ana Ruiz", Email: "ana@example.com", Phone: "+34600111222",
	}
	seed.Slots.AvailabilityConfirmedKey = seed.Slots.BookingKey()
	seed.LastQuestion = "Shall I confirm the reservation?"
	seed.AppendTurn(contractx.SenderUser, "book a table")
	seed.AppendTurn(contractx.SenderAgent, "Shall I confirm the reservation?")
	if err := sessions.Save(ctx, seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := o.HandleTurn(ctx, "sess-3", "rest-1", "yes")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if out.Text != apologyReply {
		t.Fatalf("expected apology, got %q", out.Text)
	}
	if len(data.created) != 0 {
		t.Fatalf("reservation created despite model failure")
	}

	saved, err := sessions.Load(ctx, "sess-3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.LastQuestion != "Shall I confirm the reservation?" || len(saved.History) != 2 {
		t.Fatalf("failed turn dirtied the session: %+v", saved)
	}
}

func TestHandleTurnRejectsMalformedInput(t *testing.T) {
	t.Parallel()
	data := newFakeDataStore()
	o, _ := newTestOrchestrator(t, data, &fakeGateway{reply: "x"})
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "", "rest-1", "hi"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
	if _, err := o.HandleTurn(ctx, "s", "", "hi"); !errors.Is(err, ErrInvalidRestaurant) {
		t.Fatalf("err = %v, want ErrInvalidRestaurant", err)
	}
	if _, err := o.HandleTurn(ctx, "s", "rest-1", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
}
