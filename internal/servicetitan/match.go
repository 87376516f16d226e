package servicetitan

import (
	"strings"

	"github.com/google/uuid"
)

// AgentCandidate is the minimal agent view the name matcher needs.
type AgentCandidate struct {
	ID   uuid.UUID
	Name string
}

// MatchAgentByTechName maps a technician name from the source system onto a
// sales agent. Exact case-insensitive match wins; otherwise the first
// candidate sharing a significant name word (longer than two characters, so
// initials and particles don't collide) is taken. Returns false when nothing
// matches.
func MatchAgentByTechName(techName string, candidates []AgentCandidate) (AgentCandidate, bool) {
	tech := strings.TrimSpace(techName)
	if tech == "" {
		return AgentCandidate{}, false
	}

	for _, candidate := range candidates {
		if strings.EqualFold(strings.TrimSpace(candidate.Name), tech) {
			return candidate, true
		}
	}

	techWords := significantWords(tech)
	for _, candidate := range candidates {
		for _, word := range significantWords(candidate.Name) {
			for _, techWord := range techWords {
				if word == techWord {
					return candidate, true
				}
			}
		}
	}
	return AgentCandidate{}, false
}

func significantWords(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) > 2 {
			words = append(words, field)
		}
	}
	return words
}
