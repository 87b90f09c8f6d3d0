// services/transition.go
package services

import "player-monitor-system/models"

// Transition is the outcome of comparing a fresh observation with the
// stored one. Started and Ended are never both true.
type Transition struct {
	Started bool
	Ended   bool
}

func (t Transition) Any() bool { return t.Started || t.Ended }

// ClassifyTransition compares playing state only; online changes alone do not count.
// A nil previous means the player has never been observed.
func ClassifyTransition(previous *models.PlayerStatus, current FetchedStatus) Transition {
	wasPlaying := previous != nil && previous.IsPlaying
	return Transition{
		Started: current.IsPlaying && !wasPlaying,
		Ended:   !current.IsPlaying && previous != nil && wasPlaying,
	}
}

// Event converts the transition into the event to notify about, or nil.
func (t Transition) Event(current FetchedStatus) models.PlayerEvent {
	switch {
	case t.Started:
		url := ""
		if current.CurrentGameURL != nil {
			url = *current.CurrentGameURL
		}
		return models.GameStarted{GameURL: url, TimeControl: current.TimeControl}
	case t.Ended:
		return models.GameEnded{Result: current.Result}
	}
	return nil
}
