package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	availabilityx "github.com/tablewise/concierge/agent/availability"
	contractx "github.com/tablewise/concierge/agent/contract"
	intentx "github.com/tablewise/concierge/agent/intent"
	slotsx "github.com/tablewise/concierge/agent/slots"
)

// Flow questions are fixed so the slot extractor's question-field matching
// stays stable across turns.
const (
	askDate    = "What date would you like to come in?"
	askTime    = "What time works for you?"
	askParty   = "How many people will be joining?"
	askName    = "Could I have your name for the booking?"
	askEmail   = "What email should we send the confirmation to?"
	askPhone   = "And a phone number to reach you?"
	askTable   = "Which table type would you like?"
	askNewTime = "What time instead works for you?"
	askNewDate = "Would a different date work for you?"

	checkingNote = "One moment while I check availability for you…"
)

var affirmatives = []string{
	"yes", "confirm", "sure", "okay", "ok", "go ahead", "book it",
	"please do", "sounds good", "correct", "that's right", "perfect",
}

// Agent drives the reservation flow: collect date/time/party, verify
// availability, resolve the table type, collect contact details, then
// confirm and create the reservation. The current step is derived from the
// slots each turn rather than stored separately, so a handoff context that
// already carries fields skips the corresponding steps.
type Agent struct {
	store   contractx.DataStore
	checker *availabilityx.Checker
	gateway contractx.LLMGateway
	prompt  string
}

func New(
	store contractx.DataStore,
	checker *availabilityx.Checker,
	gateway contractx.LLMGateway,
	systemPrompt string,
) (*Agent, error) {
	if store == nil {
		return nil, errors.New("data store is required")
	}
	if checker == nil {
		return nil, errors.New("availability checker is required")
	}
	if gateway == nil {
		return nil, errors.New("llm gateway is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, contractx.ErrPromptMissing
	}
	return &Agent{store: store, checker: checker, gateway: gateway, prompt: systemPrompt}, nil
}

func (a *Agent) Type() contractx.AgentType {
	return contractx.AgentReservation
}

func (a *Agent) ProcessMessage(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	sl := req.Slots

	// Messages that are not answers to our pending question and score higher
	// for another agent are delegated, carrying the collected slots along.
	kind := slotsx.Classify(req.Message, req.LastQuestion)
	answersPending := req.LastQuestion != "" && (kind == slotsx.KindDirectAnswer || kind == slotsx.KindCorrection)
	if !answersPending {
		if target, ok := intentx.StrongerElsewhere(req.Message, contractx.AgentReservation); ok {
			return contractx.AgentResponse{
				Slots: sl,
				Handoff: &contractx.HandoffRequest{
					Target:       target,
					Message:      req.Message,
					Context:      sl,
					RestaurantID: req.RestaurantID,
				},
			}, nil
		}
	}

	if missing := sl.MissingBooking(); len(missing) > 0 {
		return askFor(missing[0], sl), nil
	}

	// Availability must be confirmed for the exact current tuple; a changed
	// date, time, party size or table type invalidates an earlier verdict.
	if sl.TableType == "" || sl.AvailabilityConfirmedKey != sl.BookingKey() {
		resp, resolved, err := a.resolveAvailability(ctx, req.RestaurantID, sl)
		if err != nil {
			return contractx.AgentResponse{}, err
		}
		if !resolved {
			return resp, nil
		}
		sl = resp.Slots
	}

	if missing := sl.MissingContact(); len(missing) > 0 {
		return askFor(missing[0], sl), nil
	}

	if awaitingConfirmation(req.LastQuestion) && isAffirmative(req.Message) {
		return a.finalize(ctx, req, sl)
	}

	question := confirmQuestion(sl)
	return contractx.AgentResponse{
		Type:         contractx.ResponseMessage,
		Text:         question,
		Slots:        sl,
		NextQuestion: question,
	}, nil
}

// resolveAvailability runs the checker and either resolves the table type
// (resolved=true, updated slots in resp.Slots) or produces the user-facing
// branch response: alternatives, substitutes, or a capacity/full-date notice.
func (a *Agent) resolveAvailability(
	ctx context.Context,
	restaurantID string,
	sl contractx.Slots,
) (contractx.AgentResponse, bool, error) {
	res, err := a.checker.Check(ctx, restaurantID, sl.Date, sl.Time, sl.PartySize, sl.TableType)
	if err != nil {
		return contractx.AgentResponse{}, false, err
	}

	if !res.Available {
		if len(res.Alternatives) == 0 {
			// Capacity ceiling or fully booked date: a new time won't help.
			sl.Date = ""
			sl.Time = ""
			sl.AvailabilityConfirmedKey = ""
			return contractx.AgentResponse{
				Type:         contractx.ResponseTwoMessages,
				PreText:      checkingNote,
				Text:         fmt.Sprintf("I'm sorry — %s. %s", res.Message, askNewDate),
				Slots:        sl,
				NextQuestion: askNewDate,
			}, false, nil
		}

		sl.Time = ""
		sl.AvailabilityConfirmedKey = ""
		return contractx.AgentResponse{
			Type:         contractx.ResponseTwoMessages,
			PreText:      checkingNote,
			Text:         fmt.Sprintf("That time is fully booked, but I do have %s free. %s", strings.Join(res.Alternatives, ", "), askNewTime),
			Slots:        sl,
			NextQuestion: askNewTime,
		}, false, nil
	}

	requested := strings.TrimSpace(sl.TableType)
	if requested != "" {
		for _, opt := range res.TableOptions {
			if strings.EqualFold(opt.TableType, requested) {
				sl.TableType = opt.TableType
				sl.AvailabilityConfirmedKey = sl.BookingKey()
				return contractx.AgentResponse{Slots: sl}, true, nil
			}
		}
		// Requested type is taken; surface the substitutes, never swap
		// silently.
		sl.TableType = ""
		sl.ShownTableTypes = mergeShownTypes(sl.ShownTableTypes, res.TableOptions)
		return contractx.AgentResponse{
			Type:         contractx.ResponseTwoMessages,
			PreText:      checkingNote,
			Text:         fmt.Sprintf("The %s tables are taken at that time, but we still have %s. %s", requested, describeOptions(res.TableOptions), askTable),
			Slots:        sl,
			NextQuestion: askTable,
		}, false, nil
	}

	if len(res.TableOptions) == 1 {
		sl.TableType = res.TableOptions[0].TableType
		sl.ShownTableTypes = mergeShownTypes(sl.ShownTableTypes, res.TableOptions)
		sl.AvailabilityConfirmedKey = sl.BookingKey()
		return contractx.AgentResponse{Slots: sl}, true, nil
	}

	unshown := filterShown(res.TableOptions, sl.ShownTableTypes)
	sl.ShownTableTypes = mergeShownTypes(sl.ShownTableTypes, res.TableOptions)
	text := askTable
	if len(unshown) > 0 {
		text = fmt.Sprintf("We have %s available. %s", describeOptions(unshown), askTable)
	}
	return contractx.AgentResponse{
		Type:         contractx.ResponseTwoMessages,
		PreText:      checkingNote,
		Text:         text,
		Slots:        sl,
		NextQuestion: askTable,
	}, false, nil
}

// finalize asks the model for the confirmation reply, defensively extracts
// and re-validates the embedded payload, and only then creates the
// reservation. Success text never precedes a confirmed create.
func (a *Agent) finalize(
	ctx context.Context,
	req contractx.AgentRequest,
	sl contractx.Slots,
) (contractx.AgentResponse, error) {
	venue, err := a.store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("fetch restaurant: %w", err)
	}
	types, err := a.store.GetTableTypes(ctx, req.RestaurantID)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("fetch table types: %w", err)
	}
	validTypes := make([]string, 0, len(types))
	for _, t := range types {
		validTypes = append(validTypes, t.TableType)
	}

	instruction := fmt.Sprintf(
		"The guest just confirmed this reservation: name=%s email=%s phone=%s date=%s time=%s party_size=%d table_type=%s. Write the confirmation reply and append the reservation block.",
		sl.Name, sl.Email, sl.Phone, sl.Date, sl.Time, sl.PartySize, sl.TableType,
	)
	reply, err := a.gateway.Generate(ctx, renderPrompt(a.prompt, venue), req.History, instruction)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	block, ok := extractPayloadBlock(reply)
	if !ok {
		return contractx.AgentResponse{}, fmt.Errorf("%w: confirmation reply carries no reservation block", contractx.ErrSchemaViolation)
	}

	payload := mergePayload(block, sl, req.RestaurantID, venue)
	if err := payload.Validate(validTypes); err != nil {
		// Validation failure: never create; re-prompt for the gap instead.
		if resp, ok := reaskForValidationGap(payload, sl); ok {
			return resp, nil
		}
		return contractx.AgentResponse{}, err
	}

	reservationID, err := a.store.CreateReservation(ctx, payload)
	if errors.Is(err, contractx.ErrSlotConflict) {
		return a.handleConflict(ctx, req.RestaurantID, sl)
	}
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("create reservation: %w", err)
	}

	log.Info().
		Str("restaurant_id", req.RestaurantID).
		Str("reservation_id", reservationID).
		Str("date", payload.Date).
		Str("time", payload.Time).
		Msg("reservation created")

	text := stripPayloadBlock(reply)
	if text == "" {
		text = fmt.Sprintf("Your table is booked for %s at %s — see you then, %s!", payload.Date, payload.Time, payload.CustomerName)
	}
	return contractx.AgentResponse{
		Type:          contractx.ResponseRedirect,
		Text:          text,
		Slots:         sl,
		Reservation:   &payload,
		ReservationID: reservationID,
	}, nil
}

// handleConflict covers the race where the slot filled between the check and
// the insert: re-probe and present fresh alternatives instead of retrying
// blindly or claiming success.
func (a *Agent) handleConflict(
	ctx context.Context,
	restaurantID string,
	sl contractx.Slots,
) (contractx.AgentResponse, error) {
	sl.AvailabilityConfirmedKey = ""
	res, err := a.checker.Check(ctx, restaurantID, sl.Date, sl.Time, sl.PartySize, sl.TableType)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	sl.Time = ""
	text := "I'm sorry — that table was just taken. " + askNewTime
	if len(res.Alternatives) > 0 {
		text = fmt.Sprintf("I'm sorry — that table was just taken. I still have %s free. %s", strings.Join(res.Alternatives, ", "), askNewTime)
	}
	return contractx.AgentResponse{
		Type:         contractx.ResponseMessage,
		Text:         text,
		Slots:        sl,
		NextQuestion: askNewTime,
	}, nil
}

func askFor(field string, sl contractx.Slots) contractx.AgentResponse {
	var q string
	switch field {
	case "date":
		q = askDate
	case "time":
		q = askTime
	case "party size":
		q = askParty
	case "name":
		q = askName
	case "email":
		q = askEmail
	case "phone":
		q = askPhone
	default:
		q = askTable
	}
	return contractx.AgentResponse{
		Type:         contractx.ResponseMessage,
		Text:         q,
		Slots:        sl,
		NextQuestion: q,
	}
}

func reaskForValidationGap(p contractx.ReservationPayload, sl contractx.Slots) (contractx.AgentResponse, bool) {
	switch {
	case p.CustomerName == "":
		return askFor("name", sl), true
	case p.CustomerEmail == "":
		return askFor("email", sl), true
	case p.CustomerPhone == "":
		return askFor("phone", sl), true
	case p.Date == "":
		return askFor("date", sl), true
	case p.Time == "":
		return askFor("time", sl), true
	case p.PartySize <= 0:
		return askFor("party size", sl), true
	default:
		return contractx.AgentResponse{}, false
	}
}

func confirmQuestion(sl contractx.Slots) string {
	return fmt.Sprintf(
		"Just to confirm: a table for %d on %s at %s (%s), booked for %s. Shall I confirm the reservation?",
		sl.PartySize, sl.Date, sl.Time, sl.TableType, sl.Name,
	)
}

func awaitingConfirmation(lastQuestion string) bool {
	return strings.Contains(strings.ToLower(lastQuestion), "confirm")
}

func isAffirmative(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, a := range affirmatives {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}

func describeOptions(opts []contractx.TableOption) string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		if o.Price > 0 {
			parts = append(parts, fmt.Sprintf("%s (seats %d, %.2f)", o.TableType, o.Capacity, o.Price))
		} else {
			parts = append(parts, fmt.Sprintf("%s (seats %d)", o.TableType, o.Capacity))
		}
	}
	return strings.Join(parts, ", ")
}

func filterShown(opts []contractx.TableOption, shown []string) []contractx.TableOption {
	seen := make(map[string]struct{}, len(shown))
	for _, s := range shown {
		seen[strings.ToLower(s)] = struct{}{}
	}
	var out []contractx.TableOption
	for _, o := range opts {
		if _, ok := seen[strings.ToLower(o.TableType)]; !ok {
			out = append(out, o)
		}
	}
	return out
}

func mergeShownTypes(shown []string, opts []contractx.TableOption) []string {
	seen := make(map[string]struct{}, len(shown))
	out := append([]string(nil), shown...)
	for _, s := range shown {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, o := range opts {
		key := strings.ToLower(o.TableType)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			out = append(out, o.TableType)
		}
	}
	return out
}

func renderPrompt(prompt string, venue contractx.Restaurant) string {
	return strings.ReplaceAll(prompt, "{restaurant_name}", venue.Name)
}
