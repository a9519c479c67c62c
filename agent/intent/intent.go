// Package intent scores an incoming message against each agent's keyword
// set. The tables are loaded once and read-only; routing never mutates them.
package intent

import (
	"strings"

	contractx "github.com/tablewise/concierge/agent/contract"
)

type weightedKeyword struct {
	keyword string
	weight  int
}

// priorityOrder breaks score ties: earlier wins.
var priorityOrder = []contractx.AgentType{
	contractx.AgentReservation,
	contractx.AgentAvailability,
	contractx.AgentCelebration,
	contractx.AgentMenu,
	contractx.AgentLocation,
	contractx.AgentSupport,
	contractx.AgentInfo,
}

var keywordTable = map[contractx.AgentType][]weightedKeyword{
	contractx.AgentReservation: {
		{"reserve", 3}, {"reservation", 3}, {"book", 3}, {"booking", 3},
		{"table for", 3}, {"a table", 2}, {"tonight", 1}, {"party of", 2},
	},
	contractx.AgentAvailability: {
		{"availability", 3}, {"available", 3}, {"any tables", 3},
		{"fully booked", 2}, {"free table", 3}, {"space for", 2},
	},
	contractx.AgentCelebration: {
		{"birthday", 3}, {"anniversary", 3}, {"celebrat", 3}, {"proposal", 3},
		{"engagement", 3}, {"cake", 2}, {"flowers", 2}, {"surprise", 2},
		{"special occasion", 3},
	},
	contractx.AgentMenu: {
		{"menu", 3}, {"dish", 2}, {"dishes", 2}, {"food", 2}, {"vegan", 2},
		{"vegetarian", 2}, {"gluten", 2}, {"dessert", 2}, {"wine", 1},
		{"price", 2}, {"cost", 1}, {"eat", 1},
	},
	contractx.AgentLocation: {
		{"where", 2}, {"address", 3}, {"location", 3}, {"directions", 2},
		{"transfer", 3}, {"pick up", 3}, {"pickup", 3}, {"hotel", 2},
		{"taxi", 2}, {"how do i get", 3}, {"map", 2},
	},
	contractx.AgentSupport: {
		{"help", 2}, {"problem", 2}, {"complaint", 3}, {"cancel", 2},
		{"refund", 3}, {"manager", 2}, {"issue", 2}, {"wrong", 1},
	},
	contractx.AgentInfo: {
		{"hours", 2}, {"opening", 2}, {"open", 1}, {"close", 1},
		{"parking", 2}, {"wifi", 1}, {"dress code", 2}, {"about the restaurant", 2},
	},
}

// Score returns the cumulative keyword weight of the message for one agent.
func Score(message string, agent contractx.AgentType) int {
	lower := strings.ToLower(message)
	total := 0
	for _, wk := range keywordTable[agent] {
		if strings.Contains(lower, wk.keyword) {
			total += wk.weight
		}
	}
	return total
}

// Route picks the agent with the highest cumulative keyword weight; ties go
// to the earlier agent in the priority order. A message matching nothing
// routes to the info agent.
func Route(message string) contractx.AgentType {
	best := contractx.AgentInfo
	bestScore := 0
	for _, agent := range priorityOrder {
		if s := Score(message, agent); s > bestScore {
			best = agent
			bestScore = s
		}
	}
	return best
}

// StrongerElsewhere reports the agent a message should be delegated to when
// it scores strictly higher than the current agent's own score.
func StrongerElsewhere(message string, current contractx.AgentType) (contractx.AgentType, bool) {
	target := Route(message)
	if target == current {
		return "", false
	}
	if Score(message, target) > Score(message, current) {
		return target, true
	}
	return "", false
}
