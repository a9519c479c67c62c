package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	availabilityx "github.com/tablewise/concierge/agent/availability"
	contractx "github.com/tablewise/concierge/agent/contract"
	intentx "github.com/tablewise/concierge/agent/intent"
	slotsx "github.com/tablewise/concierge/agent/slots"
)

const (
	checkAskDate  = "What date should I check for you?"
	checkAskTime  = "What time would you like?"
	checkAskParty = "How many people will it be?"
	checkAskAgain = "Which time would you like instead?"
	offerBooking  = "Shall I book it for you?"
)

// AvailabilityAgent answers "do you have a table ...?" questions. Verdicts
// are computed from the data store alone; no model call is involved. A guest
// who accepts the offer is handed to the reservation agent with the verified
// tuple pinned, so the flow does not re-check what was just checked.
type AvailabilityAgent struct {
	checker *availabilityx.Checker
}

func newAvailabilityAgent(checker *availabilityx.Checker) (*AvailabilityAgent, error) {
	if checker == nil {
		return nil, errors.New("availability checker is required")
	}
	return &AvailabilityAgent{checker: checker}, nil
}

func (a *AvailabilityAgent) Type() contractx.AgentType {
	return contractx.AgentAvailability
}

func (a *AvailabilityAgent) ProcessMessage(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	sl := req.Slots

	kind := slotsx.Classify(req.Message, req.LastQuestion)
	answersPending := req.LastQuestion != "" && (kind == slotsx.KindDirectAnswer || kind == slotsx.KindCorrection)
	if !answersPending {
		if target, ok := intentx.StrongerElsewhere(req.Message, contractx.AgentAvailability); ok {
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

	// Guest accepted the booking offer: the reservation agent takes over with
	// the already-verified tuple.
	if strings.Contains(strings.ToLower(req.LastQuestion), "shall i book") && acceptsOffer(req.Message) {
		return contractx.AgentResponse{
			Slots: sl,
			Handoff: &contractx.HandoffRequest{
				Target:       contractx.AgentReservation,
				Message:      req.Message,
				Context:      sl,
				RestaurantID: req.RestaurantID,
			},
		}, nil
	}

	if missing := sl.MissingBooking(); len(missing) > 0 {
		var q string
		switch missing[0] {
		case "date":
			q = checkAskDate
		case "time":
			q = checkAskTime
		default:
			q = checkAskParty
		}
		return contractx.AgentResponse{
			Type:         contractx.ResponseMessage,
			Text:         q,
			Slots:        sl,
			NextQuestion: q,
		}, nil
	}

	res, err := a.checker.Check(ctx, req.RestaurantID, sl.Date, sl.Time, sl.PartySize, sl.TableType)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	if !res.Available {
		if len(res.Alternatives) == 0 {
			return contractx.AgentResponse{
				Type:  contractx.ResponseMessage,
				Text:  fmt.Sprintf("I'm sorry — %s.", res.Message),
				Slots: sl,
			}, nil
		}
		sl.Time = ""
		sl.AvailabilityConfirmedKey = ""
		return contractx.AgentResponse{
			Type:         contractx.ResponseTwoMessages,
			PreText:      "Let me check that for you…",
			Text:         fmt.Sprintf("That time is full, but %s are free. %s", strings.Join(res.Alternatives, ", "), checkAskAgain),
			Slots:        sl,
			NextQuestion: checkAskAgain,
		}, nil
	}

	// A non-empty checker message means the requested type is taken and the
	// options are substitutes; the reply must say so, never swap silently.
	requested := strings.TrimSpace(sl.TableType)
	substituted := requested != "" && res.Message != ""

	// Pin the verified tuple only when the table type is resolved; a verdict
	// across several types leaves the choice to the reservation flow.
	if len(res.TableOptions) == 1 {
		sl.TableType = res.TableOptions[0].TableType
		sl.AvailabilityConfirmedKey = sl.BookingKey()
		text := fmt.Sprintf("Good news — a %s table is free for %d on %s at %s. %s",
			sl.TableType, sl.PartySize, sl.Date, sl.Time, offerBooking)
		if substituted {
			text = fmt.Sprintf("The %s tables are taken at that time, but a %s table is free for %d on %s at %s. %s",
				requested, sl.TableType, sl.PartySize, sl.Date, sl.Time, offerBooking)
		}
		return contractx.AgentResponse{
			Type:         contractx.ResponseTwoMessages,
			PreText:      "Let me check that for you…",
			Text:         text,
			Slots:        sl,
			NextQuestion: offerBooking,
		}, nil
	}

	names := make([]string, 0, len(res.TableOptions))
	shown := make(map[string]struct{}, len(sl.ShownTableTypes))
	for _, t := range sl.ShownTableTypes {
		shown[strings.ToLower(t)] = struct{}{}
	}
	for _, opt := range res.TableOptions {
		names = append(names, opt.TableType)
		if _, ok := shown[strings.ToLower(opt.TableType)]; !ok {
			sl.ShownTableTypes = append(sl.ShownTableTypes, opt.TableType)
		}
	}
	text := fmt.Sprintf("Yes! We have %s tables free for %d on %s at %s. %s",
		strings.Join(names, " and "), sl.PartySize, sl.Date, sl.Time, offerBooking)
	if substituted {
		sl.TableType = ""
		text = fmt.Sprintf("The %s tables are taken at that time, but we have %s free for %d on %s at %s. %s",
			requested, strings.Join(names, " and "), sl.PartySize, sl.Date, sl.Time, offerBooking)
	}
	return contractx.AgentResponse{
		Type:         contractx.ResponseTwoMessages,
		PreText:      "Let me check that for you…",
		Text:         text,
		Slots:        sl,
		NextQuestion: offerBooking,
	}, nil
}

func acceptsOffer(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, word := range []string{"yes", "sure", "please", "go ahead", "book", "ok", "okay", "sounds good"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
