package session

import "strings"

// Backend tags which service answers a user message.
type Backend int

const (
	BackendGeneral Backend = iota
	BackendFitness
)

func (b Backend) String() string {
	if b == BackendFitness {
		return "fitness"
	}
	return "general"
}

// fitnessKeywords divert a message to the fitness data service.
var fitnessKeywords = []string{"workout", "diet", "fitness"}

// Route classifies a user message. Case-insensitive substring match;
// any keyword hit selects the fitness backend. Pure and deterministic.
func Route(message string) Backend {
	lower := strings.ToLower(message)
	for _, kw := range fitnessKeywords {
		if strings.Contains(lower, kw) {
			return BackendFitness
		}
	}
	return BackendGeneral
}
