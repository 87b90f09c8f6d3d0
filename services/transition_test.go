package services

import (
	"testing"

	"player-monitor-system/models"
)

func TestClassifyTransition_AllCombinations(t *testing.T) {
	type prevCase struct {
		name string
		prev *models.PlayerStatus
	}
	prevs := []prevCase{
		{"never seen", nil},
		{"idle offline", &models.PlayerStatus{IsOnline: false, IsPlaying: false}},
		{"idle online", &models.PlayerStatus{IsOnline: true, IsPlaying: false}},
		{"playing", &models.PlayerStatus{IsOnline: true, IsPlaying: true}},
	}

	for _, p := range prevs {
		for _, online := range []bool{false, true} {
			for _, playing := range []bool{false, true} {
				cur := FetchedStatus{Username: "magnus", IsOnline: online, IsPlaying: playing}
				got := ClassifyTransition(p.prev, cur)

				if got.Started && got.Ended {
					t.Fatalf("%s -> online=%v playing=%v: both started and ended", p.name, online, playing)
				}

				wasPlaying := p.prev != nil && p.prev.IsPlaying
				wantStarted := playing && !wasPlaying
				wantEnded := !playing && wasPlaying
				if got.Started != wantStarted || got.Ended != wantEnded {
					t.Errorf("%s -> online=%v playing=%v: got %+v, want started=%v ended=%v",
						p.name, online, playing, got, wantStarted, wantEnded)
				}
			}
		}
	}
}

func TestClassifyTransition_OnlineChangeIgnored(t *testing.T) {
	prev := &models.PlayerStatus{IsOnline: false, IsPlaying: false}
	got := ClassifyTransition(prev, FetchedStatus{IsOnline: true})
	if got.Any() {
		t.Errorf("online-only change produced %+v", got)
	}
}

func TestTransition_Event(t *testing.T) {
	url := "https://www.chess.com/game/daily/123"

	ev := Transition{Started: true}.Event(FetchedStatus{IsPlaying: true, CurrentGameURL: &url, TimeControl: "600"})
	started, ok := ev.(models.GameStarted)
	if !ok {
		t.Fatalf("expected GameStarted, got %T", ev)
	}
	if started.GameURL != url || started.TimeControl != "600" || started.Type() != models.EventGameStarted {
		t.Errorf("unexpected started event %+v", started)
	}

	ev = Transition{Ended: true}.Event(FetchedStatus{Result: "win"})
	ended, ok := ev.(models.GameEnded)
	if !ok {
		t.Fatalf("expected GameEnded, got %T", ev)
	}
	if ended.Result != "win" || ended.Type() != models.EventGameEnded {
		t.Errorf("unexpected ended event %+v", ended)
	}

	if ev := (Transition{}).Event(FetchedStatus{}); ev != nil {
		t.Errorf("no transition should yield nil event, got %T", ev)
	}
}
