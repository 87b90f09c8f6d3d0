// models/event.go
package models

import (
	"errors"
	"fmt"
)

// EventType is the persisted name of a player event.
type EventType string

const (
	EventGameStarted EventType = "game_started"
	EventGameEnded   EventType = "game_ended"
)

var ErrInvalidEventType = errors.New("invalid event type")

func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventGameStarted, EventGameEnded:
		return EventType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
}

// PlayerEvent is the closed set of notifiable transitions. Only GameStarted
// and GameEnded implement it.
type PlayerEvent interface {
	Type() EventType
	playerEvent()
}

// GameStarted is emitted when a player goes from not playing to playing.
type GameStarted struct {
	GameURL     string
	TimeControl string // e.g. "600" or "1/86400", empty when unknown
}

func (GameStarted) Type() EventType { return EventGameStarted }
func (GameStarted) playerEvent()    {}

// GameEnded is emitted when a player goes from playing to not playing.
// Result is empty when the upstream does not report one.
type GameEnded struct {
	Result string
}

func (GameEnded) Type() EventType { return EventGameEnded }
func (GameEnded) playerEvent()    {}
