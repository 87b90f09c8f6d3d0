package models

import (
	"errors"
	"testing"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in      string
		want    EventType
		wantErr bool
	}{
		{"game_started", EventGameStarted, false},
		{"game_ended", EventGameEnded, false},
		{"GAME_STARTED", "", true},
		{"went_online", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEventType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidEventType) {
				t.Errorf("ParseEventType(%q) error = %v, want ErrInvalidEventType", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseEventType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestEventVariants(t *testing.T) {
	events := []PlayerEvent{GameStarted{GameURL: "https://x/1"}, GameEnded{Result: "win"}}
	for _, ev := range events {
		if _, err := ParseEventType(string(ev.Type())); err != nil {
			t.Errorf("%T reports unparseable type %q", ev, ev.Type())
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	tests := map[JobStatus]bool{
		JobStatusRunning:    false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
		JobStatus("queued"): false,
	}
	for status, want := range tests {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}
