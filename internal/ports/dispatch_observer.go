package ports

import "time"

type TurnObservation struct {
	AgentID  string
	Strategy string
	Degraded bool
	Duration time.Duration
}

type DispatchObserver interface {
	ObserveTurn(obs TurnObservation)
	ObserveHandoff(fromAgent, toAgent string)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) ObserveTurn(TurnObservation) {}

func (NopObserver) ObserveHandoff(string, string) {}
