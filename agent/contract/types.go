package contract

import (
	"fmt"
	"strings"
	"time"
)

type AgentType string

const (
	AgentReservation  AgentType = "reservation"
	AgentAvailability AgentType = "availability"
	AgentMenu         AgentType = "menu"
	AgentCelebration  AgentType = "celebration"
	AgentLocation     AgentType = "location"
	AgentSupport      AgentType = "support"
	AgentInfo         AgentType = "info"
)

// Turn is a single conversation message. Sender is "user" or "agent".
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Slots is the partial reservation collected across turns. The zero value
// means nothing has been gathered yet; empty string / zero int means unset.
type Slots struct {
	Date      string `json:"date,omitempty"` // ISO-8601 "2006-01-02"
	Time      string `json:"time,omitempty"` // 24h "HH:MM"
	PartySize int    `json:"party_size,omitempty"`
	TableType string `json:"table_type,omitempty"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	CelebrationType string `json:"celebration_type,omitempty"`
	Cake            bool   `json:"cake,omitempty"`
	Flowers         bool   `json:"flowers,omitempty"`
	HotelName       string `json:"hotel_name,omitempty"`

	// ShownTableTypes tracks table options already presented in this
	// conversation so the reservation flow never repeats them.
	ShownTableTypes []string `json:"shown_table_types,omitempty"`

	// AvailabilityConfirmedKey is set when the availability agent already
	// verified a slot; it is only honored while the booking tuple matches.
	AvailabilityConfirmedKey string `json:"availability_confirmed_key,omitempty"`
}

// Merge overlays the non-zero fields of patch onto s and returns the result.
func (s Slots) Merge(patch Slots) Slots {
	out := s
	if patch.Date != "" {
		out.Date = patch.Date
	}
	if patch.Time != "" {
		out.Time = patch.Time
	}
	if patch.PartySize > 0 {
		out.PartySize = patch.PartySize
	}
	if patch.TableType != "" {
		out.TableType = patch.TableType
	}
	if patch.Name != "" {
		out.Name = patch.Name
	}
	if patch.Email != "" {
		out.Email = patch.Email
	}
	if patch.Phone != "" {
		out.Phone = patch.Phone
	}
	if patch.CelebrationType != "" {
		out.CelebrationType = patch.CelebrationType
	}
	if patch.Cake {
		out.Cake = true
	}
	if patch.Flowers {
		out.Flowers = true
	}
	if patch.HotelName != "" {
		out.HotelName = patch.HotelName
	}
	if len(patch.ShownTableTypes) > 0 {
		out.ShownTableTypes = mergeShown(out.ShownTableTypes, patch.ShownTableTypes)
	}
	if patch.AvailabilityConfirmedKey != "" {
		out.AvailabilityConfirmedKey = patch.AvailabilityConfirmedKey
	}
	return out
}

func mergeShown(have, add []string) []string {
	seen := make(map[string]struct{}, len(have))
	out := append([]string(nil), have...)
	for _, t := range have {
		seen[t] = struct{}{}
	}
	for _, t := range add {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// BookingComplete reports whether date, time and party size are all present.
func (s Slots) BookingComplete() bool {
	return s.Date != "" && s.Time != "" && s.PartySize > 0
}

// ContactComplete reports whether all contact fields are present.
func (s Slots) ContactComplete() bool {
	return s.Name != "" && s.Email != "" && s.Phone != ""
}

// MissingBooking lists the booking fields still unset, in asking order.
func (s Slots) MissingBooking() []string {
	var missing []string
	if s.Date == "" {
		missing = append(missing, "date")
	}
	if s.Time == "" {
		missing = append(missing, "time")
	}
	if s.PartySize <= 0 {
		missing = append(missing, "party size")
	}
	return missing
}

// MissingContact lists the contact fields still unset, in asking order.
func (s Slots) MissingContact() []string {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Email == "" {
		missing = append(missing, "email")
	}
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// BookingKey identifies the (date, time, party size, table type) tuple an
// availability verdict was computed for.
func (s Slots) BookingKey() string {
	return fmt.Sprintf("%s|%s|%d|%s", s.Date, s.Time, s.PartySize, s.TableType)
}

// Booking derives the ephemeral BookingDetails view of the slots.
func (s Slots) Booking() BookingDetails {
	return BookingDetails{
		Date:      s.Date,
		Time:      s.Time,
		PartySize: s.PartySize,
		TableType: s.TableType,
	}
}

// BookingDetails is the per-turn derived booking view; partial instances are
// valid until date, time and party size are all present.
type BookingDetails struct {
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	PartySize int    `json:"party_size,omitempty"`
	TableType string `json:"table_type,omitempty"`
}

func (b BookingDetails) Complete() bool {
	return b.Date != "" && b.Time != "" && b.PartySize > 0
}

// TableOption is one bookable table category at a restaurant.
type TableOption struct {
	TableType string  `json:"table_type"`
	Price     float64 `json:"price"`
	Capacity  int     `json:"capacity"`
}

// AvailabilityResult is the verdict for one availability probe. It is
// computed per request and never persisted.
type AvailabilityResult struct {
	Available    bool          `json:"available"`
	TableOptions []TableOption `json:"table_options,omitempty"`
	Alternatives []string      `json:"alternatives,omitempty"` // "HH:MM", nearest first
	Message      string        `json:"message,omitempty"`
}

// ReservationPayload is the terminal structured object handed to the data
// store once a booking is confirmed.
type ReservationPayload struct {
	RestaurantID  string `json:"restaurant_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PartySize     int    `json:"party_size"`
	TableType     string `json:"table_type"`

	CelebrationType string  `json:"celebration_type,omitempty"`
	Cake            bool    `json:"cake,omitempty"`
	CakePrice       float64 `json:"cake_price,omitempty"`
	Flowers         bool    `json:"flowers,omitempty"`
	FlowersPrice    float64 `json:"flowers_price,omitempty"`
	HotelName       string  `json:"hotel_name,omitempty"`
}

// Validate enforces the payload invariant: every required field present and
// the table type one of the restaurant's configured types.
func (p *ReservationPayload) Validate(validTableTypes []string) error {
	if p == nil {
		return fmt.Errorf("%w: reservation payload is nil", ErrValidation)
	}
	required := []struct {
		field string
		value string
	}{
		{"restaurant_id", p.RestaurantID},
		{"customer_name", p.CustomerName},
		{"customer_email", p.CustomerEmail},
		{"customer_phone", p.CustomerPhone},
		{"date", p.Date},
		{"time", p.Time},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, r.field)
		}
	}
	if p.PartySize <= 0 {
		return fmt.Errorf("%w: party_size must be positive", ErrValidation)
	}
	if strings.TrimSpace(p.TableType) == "" {
		return fmt.Errorf("%w: table_type is required", ErrValidation)
	}
	for _, t := range validTableTypes {
		if strings.EqualFold(t, p.TableType) {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown table_type=%q", ErrValidation, p.TableType)
}

// HandoffRequest transfers conversation control to another agent within the
// same turn, carrying forward collected context.
type HandoffRequest struct {
	Target       AgentType `json:"target"`
	Message      string    `json:"message"`
	Context      Slots     `json:"context"`
	RestaurantID string    `json:"restaurant_id"`
}

func (h *HandoffRequest) Validate() error {
	if h == nil {
		return fmt.Errorf("%w: handoff is nil", ErrValidation)
	}
	if h.Target == "" {
		return fmt.Errorf("%w: handoff target is required", ErrValidation)
	}
	if strings.TrimSpace(h.Message) == "" {
		return fmt.Errorf("%w: handoff message is required", ErrValidation)
	}
	return nil
}

// AgentRequest is the per-turn input every agent receives. Slots are the
// session slots already merged with any handoff context, and History is the
// bounded window, most recent last.
type AgentRequest struct {
	RestaurantID string
	Message      string
	History      []Turn
	Slots        Slots
	LastQuestion string
	Now          time.Time
}

type ResponseType string

const (
	ResponseMessage     ResponseType = "message"
	ResponseRedirect    ResponseType = "redirect"
	ResponseTwoMessages ResponseType = "two_messages"
)

// AgentResponse is what an agent hands back to the orchestrator. When
// Handoff is non-nil the other fields are ignored and the orchestrator
// re-dispatches within the same turn.
type AgentResponse struct {
	Type    ResponseType
	Text    string
	PreText string // first bubble of a two_messages response

	Slots        Slots  // updated slot state after this agent's work
	NextQuestion string // question the agent just asked, for extraction

	Handoff *HandoffRequest

	Reservation   *ReservationPayload
	ReservationID string
}

// TurnResult is the inbound-boundary result consumed by the hosting layer.
type TurnResult struct {
	Type          ResponseType        `json:"type"`
	Text          string              `json:"text"`
	PreText       string              `json:"pre_text,omitempty"`
	Reservation   *ReservationPayload `json:"reservation_details,omitempty"`
	ReservationID string              `json:"reservation_id,omitempty"`
}

// Restaurant is the data-store view of one venue.
type Restaurant struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Timezone     string  `json:"timezone"`
	CakePrice    float64 `json:"cake_price"`
	FlowersPrice float64 `json:"flowers_price"`
}

// MenuItem is one dish on a restaurant's menu.
type MenuItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags,omitempty"`
}

// DayHours is the availability window for one weekday.
type DayHours struct {
	Weekday time.Weekday `json:"weekday"`
	Open    string       `json:"open"`  // "HH:MM"
	Close   string       `json:"close"` // "HH:MM"
}
