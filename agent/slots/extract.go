package slots

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tablewise/concierge/agent/contract"
)

var (
	emailRe     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe     = regexp.MustCompile(`\+?\d[\d\s\-()]{6,}\d`)
	partySizeRe = regexp.MustCompile(`\b(?:for|party of|group of)\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b|\b(\d{1,2})\s+(?:people|persons|guests|of us)\b`)
	bareCountRe = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)

	correctionTargetRe = regexp.MustCompile(`(?i)\b(?:change|update|correct)\s+(?:the\s+|my\s+|our\s+)?(date|day|time|party size|people|guests|name|email|phone|table)\b(?:\s*(?:to|into|is))?\s*(.*)`)

	namePrefixRe = regexp.MustCompile(`(?i)^(?:my name is|i am|i'm|it's|it is|this is|call me)\s+`)

	wordNumbers = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
		"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	}

	celebrationKinds = []string{
		"birthday", "anniversary", "proposal", "engagement", "honeymoon",
		"graduation", "wedding",
	}
)

// Extract derives the updated slot set from one user message. It is pure:
// the same (message, lastQuestion, existing, now, loc) always yields the
// same output. Only direct answers and location data write slots; a
// correction rewrites exactly the field it names; greetings and unclear
// messages leave the slots untouched.
func Extract(
	message string,
	lastQuestion string,
	existing contractx.Slots,
	now time.Time,
	loc *time.Location,
) contractx.Slots {
	switch Classify(message, lastQuestion) {
	case KindDirectAnswer:
		return applyDirectAnswer(message, lastQuestion, existing, now, loc)
	case KindCorrection:
		return applyCorrection(message, existing, now, loc)
	case KindLocationData:
		return applyLocationData(message, existing)
	default:
		return existing
	}
}

// applyDirectAnswer fills unset slots from the message. The one field the
// agent's pending question targets may be overwritten even when already set,
// so answering a fresh "what time instead?" after a full slot replaces the
// time without discarding the rest.
func applyDirectAnswer(
	message string,
	lastQuestion string,
	existing contractx.Slots,
	now time.Time,
	loc *time.Location,
) contractx.Slots {
	out := existing
	lower := strings.ToLower(message)
	asked := questionField(lastQuestion)

	if d, ok := ParseDate(lower, now, loc); ok && (out.Date == "" || asked == "date") {
		out.Date = d
	}
	if t, ok := ParseTime(lower); ok && (out.Time == "" || asked == "time") {
		out.Time = t
	}
	if n, ok := parsePartySize(lower, asked); ok && (out.PartySize <= 0 || asked == "partySize") {
		out.PartySize = n
	}
	if email := emailRe.FindString(message); email != "" && (out.Email == "" || asked == "email") {
		out.Email = email
	}
	if phone := findPhone(message); phone != "" && (out.Phone == "" || asked == "phone") {
		out.Phone = phone
	}
	if asked == "name" {
		if name := cleanName(message); name != "" {
			out.Name = name
		}
	}
	if asked == "tableType" {
		if t := cleanTableType(message); t != "" {
			out.TableType = t
		}
	}
	if asked == "hotel" && strings.TrimSpace(message) != "" {
		out.HotelName = strings.TrimSpace(message)
	}
	for _, kind := range celebrationKinds {
		if strings.Contains(lower, kind) && out.CelebrationType == "" {
			out.CelebrationType = kind
			break
		}
	}
	if strings.Contains(lower, "cake") {
		out.Cake = true
	}
	if strings.Contains(lower, "flower") {
		out.Flowers = true
	}
	return out
}

// applyCorrection rewrites the single field the user names. Only an explicit
// correction may overwrite an already-set slot.
func applyCorrection(
	message string,
	existing contractx.Slots,
	now time.Time,
	loc *time.Location,
) contractx.Slots {
	out := existing
	m := correctionTargetRe.FindStringSubmatch(message)
	if m == nil {
		// Correction verb without a named field: fall back to entity scan so
		// "change that to 9pm" still lands.
		lower := strings.ToLower(message)
		if t, ok := ParseTime(lower); ok {
			out.Time = t
		}
		if d, ok := ParseDate(lower, now, loc); ok {
			out.Date = d
		}
		if n, ok := parsePartySize(lower, ""); ok {
			out.PartySize = n
		}
		return out
	}

	field := strings.ToLower(strings.TrimSpace(m[1]))
	value := strings.TrimSpace(m[2])
	lowerValue := strings.ToLower(value)

	switch field {
	case "date", "day":
		if d, ok := ParseDate(lowerValue, now, loc); ok {
			out.Date = d
		}
	case "time":
		if t, ok := ParseTime(lowerValue); ok {
			out.Time = t
		}
	case "party size", "people", "guests":
		if n, ok := parsePartySize(lowerValue, "partySize"); ok {
			out.PartySize = n
		}
	case "name":
		if name := cleanName(value); name != "" {
			out.Name = name
		}
	case "email":
		if email := emailRe.FindString(value); email != "" {
			out.Email = email
		}
	case "phone":
		if phone := findPhone(value); phone != "" {
			out.Phone = phone
		}
	case "table":
		if t := cleanTableType(value); t != "" {
			out.TableType = t
		}
	}
	return out
}

func applyLocationData(message string, existing contractx.Slots) contractx.Slots {
	out := existing
	if out.HotelName == "" {
		if name := strings.TrimSpace(message); name != "" {
			out.HotelName = name
		}
	}
	return out
}

func parsePartySize(lower, asked string) (int, bool) {
	if m := partySizeRe.FindStringSubmatch(lower); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, ok := wordNumbers[raw]; ok {
			return n, true
		}
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n, true
		}
	}
	// A bare number or number word only counts when the agent just asked for
	// the headcount; otherwise "7" could be a time or a date fragment.
	if asked == "partySize" {
		if m := bareCountRe.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
		if n := wordNumber(lower); n > 0 {
			return n, true
		}
	}
	return 0, false
}

// wordNumber finds the first spelled-out count in the text.
func wordNumber(lower string) int {
	for _, w := range strings.Fields(lower) {
		if n, ok := wordNumbers[strings.Trim(w, ".,!?")]; ok {
			return n
		}
	}
	return 0
}

func findPhone(text string) string {
	match := phoneRe.FindString(text)
	if match == "" {
		return ""
	}
	digits := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 || digits > 15 {
		return ""
	}
	return strings.TrimSpace(match)
}

func cleanName(message string) string {
	name := namePrefixRe.ReplaceAllString(strings.TrimSpace(message), "")
	name = strings.Trim(name, " .,!")
	if name == "" || len(name) > 60 || countDigits(name) > 0 {
		return ""
	}
	return name
}

func cleanTableType(message string) string {
	fillers := map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "please": {}, "table": {}, "one": {},
		"i": {}, "want": {}, "like": {}, "prefer": {}, "would": {}, "d": {},
	}
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(message)) {
		w = strings.Trim(w, ".,!'")
		if _, skip := fillers[w]; skip || w == "" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
