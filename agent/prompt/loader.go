package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/reservation.txt
	reservationRaw string

	//go:embed template/menu.txt
	menuRaw string

	//go:embed template/celebration.txt
	celebrationRaw string

	//go:embed template/location.txt
	locationRaw string

	//go:embed template/support.txt
	supportRaw string

	//go:embed template/info.txt
	infoRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Reservation string
	Menu        string
	Celebration string
	Location    string
	Support     string
	Info        string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Reservation: strings.TrimSpace(reservationRaw),
		Menu:        strings.TrimSpace(menuRaw),
		Celebration: strings.TrimSpace(celebrationRaw),
		Location:    strings.TrimSpace(locationRaw),
		Support:     strings.TrimSpace(supportRaw),
		Info:        strings.TrimSpace(infoRaw),
	}
}
