package session

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		message string
		want    Backend
	}{
		{"What's a good workout?", BackendFitness},
		{"WORKOUT plan please", BackendFitness},
		{"any DiEt tips", BackendFitness},
		{"how is my fitness level", BackendFitness},
		{"my dietary habits", BackendFitness}, // "diet" substring match
		{"workout diet fitness", BackendFitness},
		{"Hello", BackendGeneral},
		{"tell me about yourself", BackendGeneral},
		{"", BackendGeneral},
		{"I work out sometimes", BackendGeneral}, // "work out" is not "workout"
	}

	for _, tt := range tests {
		if got := Route(tt.message); got != tt.want {
			t.Errorf("Route(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestBackendString(t *testing.T) {
	if BackendFitness.String() != "fitness" || BackendGeneral.String() != "general" {
		t.Error("unexpected Backend string values")
	}
}
