package headless

import "testing"

func TestSimulatedDTMatchesSixtyHertz(t *testing.T) {
	if SimulatedDT <= 0 || SimulatedDT > 1 {
		t.Fatalf("expected a small positive fixed timestep, got %f", SimulatedDT)
	}
	if got := 1 / SimulatedDT; got < 59.9 || got > 60.1 {
		t.Fatalf("expected ~60Hz simulated rate, got %f", got)
	}
}
