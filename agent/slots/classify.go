package slots

import (
	"regexp"
	"strings"
)

// Kind classifies a user message against the last agent-authored question.
type Kind string

const (
	KindDirectAnswer Kind = "direct_answer"
	KindCorrection   Kind = "correction"
	KindGreeting     Kind = "greeting"
	KindLocationData Kind = "location_data"
	KindUnclear      Kind = "unclear"
)

var (
	correctionRe = regexp.MustCompile(`(?i)\b(change|update|correct)\b`)

	locationMarkers = []string{
		"maps.google", "google.com/maps", "goo.gl/maps", "maps.app",
		"place_id", "plus.codes",
	}
	coordinateRe = regexp.MustCompile(`-?\d{1,3}\.\d{3,},\s*-?\d{1,3}\.\d{3,}`)

	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "yo": {},
		"good morning": {}, "good afternoon": {}, "good evening": {},
		"thanks": {}, "thank you": {}, "ty": {},
		"ok": {}, "okay": {}, "cool": {}, "great": {}, "nice": {},
	}
)

// questionFields maps keywords in the agent's question to the slot field the
// question is asking about. Checked in order so "date and time" resolves to
// the first mentioned field.
var questionFields = []struct {
	field    string
	keywords []string
}{
	{"email", []string{"email", "e-mail"}},
	{"phone", []string{"phone", "number to reach", "contact number"}},
	{"name", []string{"name"}},
	{"partySize", []string{"how many", "party size", "people", "guests"}},
	{"time", []string{"what time", "time would", "time works", "which time"}},
	{"date", []string{"date", "which day", "what day", "when would"}},
	{"tableType", []string{"table type", "which table", "table would", "seating"}},
	{"celebration", []string{"celebrat", "occasion", "special"}},
	{"hotel", []string{"hotel", "pick you up", "pickup", "staying"}},
	{"confirm", []string{"confirm", "shall i book", "go ahead"}},
}

// Classify buckets a message per the extraction rules, in priority order:
// correction verbs, location markers, greeting list, direct answer to the
// last question (or a message carrying clear booking entities), else unclear.
func Classify(message, lastQuestion string) Kind {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return KindUnclear
	}
	lower := strings.ToLower(msg)

	if correctionRe.MatchString(lower) {
		return KindCorrection
	}

	for _, marker := range locationMarkers {
		if strings.Contains(lower, marker) {
			return KindLocationData
		}
	}
	if coordinateRe.MatchString(lower) {
		return KindLocationData
	}

	if _, ok := greetings[strings.Trim(lower, " .!,")]; ok {
		return KindGreeting
	}

	if field := questionField(lastQuestion); field != "" && answerMatchesField(lower, field) {
		return KindDirectAnswer
	}

	// Volunteered booking entities count as direct answers even when no
	// question is pending ("a table for 2 tomorrow at 8pm").
	if hasBookingEntities(lower) {
		return KindDirectAnswer
	}

	return KindUnclear
}

func questionField(lastQuestion string) string {
	q := strings.ToLower(strings.TrimSpace(lastQuestion))
	if q == "" {
		return ""
	}
	for _, entry := range questionFields {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.field
			}
		}
	}
	return ""
}

func answerMatchesField(lower, field string) bool {
	switch field {
	case "email":
		return strings.Contains(lower, "@")
	case "phone":
		return countDigits(lower) >= 7
	case "name":
		return len(lower) <= 60 && countDigits(lower) == 0
	case "partySize":
		return countDigits(lower) > 0 || wordNumber(lower) > 0
	case "time":
		_, ok := ParseTime(lower)
		return ok
	case "date":
		return hasDateWords(lower)
	case "tableType", "celebration", "hotel", "confirm":
		return len(lower) > 0
	default:
		return false
	}
}

func hasBookingEntities(lower string) bool {
	if _, ok := ParseTime(lower); ok {
		return true
	}
	if hasDateWords(lower) {
		return true
	}
	if partySizeRe.MatchString(lower) {
		return true
	}
	if strings.Contains(lower, "@") && emailRe.MatchString(lower) {
		return true
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
