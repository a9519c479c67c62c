package reservation

import (
	"encoding/json"
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
)

// payloadBlock mirrors the JSON object the model embeds in its reply. The
// block is untrusted input: field order, whitespace and extras vary, and the
// wrapper tags are sometimes dropped, so extraction scans rather than parses
// the whole reply.
type payloadBlock struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PartySize     int    `json:"party_size"`
	TableType     string `json:"table_type"`
}

const (
	openTag  = "<reservation>"
	closeTag = "</reservation>"
)

// extractPayloadBlock pulls the embedded reservation object out of model
// text. It prefers the tagged form and falls back to scanning every balanced
// JSON object for one that carries reservation fields. Presence of a block is
// never trusted on its own; the caller re-validates the merged payload.
func extractPayloadBlock(text string) (payloadBlock, bool) {
	if start := strings.Index(text, openTag); start >= 0 {
		rest := text[start+len(openTag):]
		end := strings.Index(rest, closeTag)
		if end >= 0 {
			if block, ok := decodeBlock(rest[:end]); ok {
				return block, true
			}
		}
	}

	for _, candidate := range balancedObjects(text) {
		if block, ok := decodeBlock(candidate); ok {
			return block, true
		}
	}
	return payloadBlock{}, false
}

func decodeBlock(raw string) (payloadBlock, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return payloadBlock{}, false
	}
	var block payloadBlock
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		return payloadBlock{}, false
	}
	// An object with none of the reservation fields is some other JSON the
	// model happened to emit.
	if block.CustomerName == "" && block.Date == "" && block.Time == "" && block.PartySize == 0 {
		return payloadBlock{}, false
	}
	return block, true
}

// balancedObjects returns every top-level {...} span in the text, tolerating
// braces inside JSON strings.
func balancedObjects(text string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}

// stripPayloadBlock removes the tagged block (or a bare trailing JSON object)
// from the user-facing reply text.
func stripPayloadBlock(text string) string {
	if start := strings.Index(text, openTag); start >= 0 {
		rest := text[start+len(openTag):]
		if end := strings.Index(rest, closeTag); end >= 0 {
			return strings.TrimSpace(text[:start] + rest[end+len(closeTag):])
		}
	}
	for _, span := range balancedObjects(text) {
		if _, ok := decodeBlock(span); ok {
			return strings.TrimSpace(strings.Replace(text, span, "", 1))
		}
	}
	return strings.TrimSpace(text)
}

// mergePayload builds the stored payload from what the guest actually
// confirmed. The session slots are authoritative for every field they hold;
// the model's block only fills gaps, so a hallucinated tuple can never
// displace the one the availability check verified and the guest approved.
func mergePayload(block payloadBlock, slots contractx.Slots, restaurantID string, venue contractx.Restaurant) contractx.ReservationPayload {
	p := contractx.ReservationPayload{
		RestaurantID:    restaurantID,
		CustomerName:    firstNonEmpty(slots.Name, block.CustomerName),
		CustomerEmail:   firstNonEmpty(slots.Email, block.CustomerEmail),
		CustomerPhone:   firstNonEmpty(slots.Phone, block.CustomerPhone),
		Date:            firstNonEmpty(slots.Date, block.Date),
		Time:            firstNonEmpty(slots.Time, block.Time),
		TableType:       firstNonEmpty(slots.TableType, block.TableType),
		CelebrationType: slots.CelebrationType,
		HotelName:       slots.HotelName,
	}
	p.PartySize = slots.PartySize
	if p.PartySize <= 0 {
		p.PartySize = block.PartySize
	}
	if slots.Cake {
		p.Cake = true
		p.CakePrice = venue.CakePrice
	}
	if slots.Flowers {
		p.Flowers = true
		p.FlowersPrice = venue.FlowersPrice
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
