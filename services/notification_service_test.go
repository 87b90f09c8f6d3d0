package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"player-monitor-system/models"
)

type dispatchFixture struct {
	subs  *fakeSubscriptions
	prefs *fakePreferences
	log   *memNotificationLog
	email *fakeEmail
	svc   *NotificationService
	now   time.Time
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		subs:  newFakeSubscriptions(),
		prefs: newFakePreferences(),
		log:   &memNotificationLog{},
		email: newFakeEmail(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewNotificationService(f.subs, f.prefs, f.log, f.email, 5*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestNotifySubscribers_RespectsPreferences(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("magnus", "u1", "u2", "u3", "u4")
	f.prefs.enable("u1")
	f.prefs.prefs["u2"] = &models.NotificationPreference{UserID: "u2", EmailNotifications: false, Frequency: models.FrequencyImmediate}
	f.prefs.prefs["u3"] = &models.NotificationPreference{UserID: "u3", EmailNotifications: true, Frequency: models.FrequencyDisabled}
	// u4 has no preferences row

	res, err := f.svc.NotifySubscribers(context.Background(), "magnus", models.GameStarted{GameURL: "https://chess.com/g/1", TimeControl: "600"})
	if err != nil {
		t.Fatalf("NotifySubscribers: %v", err)
	}
	if res.Attempted != 1 || res.Delivered != 1 || len(res.Errors) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(f.log.entries) != 1 || f.log.entries[0].UserID != "u1" {
		t.Errorf("expected one log entry for u1, got %+v", f.log.entries)
	}
	if got := f.email.sent[0].Ctx; got.PlayerName != "magnus" || got.GameURL != "https://chess.com/g/1" || got.TimeControl != "600" {
		t.Errorf("unexpected email context %+v", got)
	}
}

func TestNotifySubscribers_DedupWindow(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("hikaru", "u1")
	f.prefs.enable("u1")
	ctx := context.Background()
	ev := models.GameStarted{}

	for i := 0; i < 3; i++ {
		if _, err := f.svc.NotifySubscribers(ctx, "hikaru", ev); err != nil {
			t.Fatal(err)
		}
		f.now = f.now.Add(time.Minute)
	}
	if n := f.log.count("hikaru", models.EventGameStarted); n != 1 {
		t.Fatalf("expected exactly one entry inside the window, got %d", n)
	}
	if f.email.count() != 1 {
		t.Fatalf("expected one e-mail, got %d", f.email.count())
	}

	// a different event kind is not a duplicate
	if _, err := f.svc.NotifySubscribers(ctx, "hikaru", models.GameEnded{}); err != nil {
		t.Fatal(err)
	}
	if n := f.log.count("hikaru", models.EventGameEnded); n != 1 {
		t.Errorf("expected game_ended entry, got %d", n)
	}

	f.now = f.now.Add(10 * time.Minute)
	res, err := f.svc.NotifySubscribers(ctx, "hikaru", ev)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 1 {
		t.Errorf("expected a new attempt after the window, got %+v", res)
	}
	if n := f.log.count("hikaru", models.EventGameStarted); n != 2 {
		t.Errorf("expected a second entry after the window, got %d", n)
	}
}

func TestNotifySubscribers_DeliveryFailureIsolated(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("magnus", "u1", "u2", "u3")
	f.prefs.enable("u1", "u2", "u3")
	f.email.failFor["u2"] = "mailbox unavailable"

	res, err := f.svc.NotifySubscribers(context.Background(), "magnus", models.GameEnded{Result: "win"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 3 || res.Delivered != 2 {
		t.Errorf("expected 3 attempted and 2 delivered, got %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "magnus/u2: delivery failed: mailbox unavailable" {
		t.Errorf("unexpected errors %v", res.Errors)
	}

	if len(f.log.entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(f.log.entries))
	}
	for _, e := range f.log.entries {
		wantDelivered := e.UserID != "u2"
		if e.Delivered != wantDelivered {
			t.Errorf("entry for %s delivered=%v, want %v", e.UserID, e.Delivered, wantDelivered)
		}
		if !wantDelivered && (e.ErrorMessage == nil || *e.ErrorMessage != "mailbox unavailable") {
			t.Errorf("failed entry should carry the error, got %v", e.ErrorMessage)
		}
	}
}

func TestNotifySubscribers_FailedAttemptStillDedups(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("magnus", "u1")
	f.prefs.enable("u1")
	f.email.failFor["u1"] = "timeout"
	ctx := context.Background()

	if _, err := f.svc.NotifySubscribers(ctx, "magnus", models.GameStarted{}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.NotifySubscribers(ctx, "magnus", models.GameStarted{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 0 {
		t.Errorf("failed attempt inside the window should suppress a retry, got %+v", res)
	}
}

func TestNotifySubscribers_CollaboratorErrors(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("magnus", "u1", "u2")
	f.prefs.enable("u2")
	f.prefs.errs["u1"] = errBoom

	res, err := f.svc.NotifySubscribers(context.Background(), "magnus", models.GameStarted{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 1 || len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "magnus/u1: preferences") {
		t.Errorf("preference error not isolated: %+v", res)
	}

	// dedup lookup failing means no send
	f.log.existsErr = errBoom
	res, err = f.svc.NotifySubscribers(context.Background(), "magnus", models.GameEnded{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 0 || len(res.Errors) != 2 {
		t.Errorf("dedup failure should skip subscribers, got %+v", res)
	}
	f.log.existsErr = nil

	// log insert failure is recorded but the attempt still counts
	f.log.insertErr = errBoom
	f.now = f.now.Add(time.Hour)
	res, err = f.svc.NotifySubscribers(context.Background(), "magnus", models.GameEnded{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 1 || res.Delivered != 1 || len(res.Errors) != 2 {
		t.Errorf("log insert failure handling: %+v", res)
	}

	f.subs.subsErrs["magnus"] = errBoom
	if _, err := f.svc.NotifySubscribers(context.Background(), "magnus", models.GameEnded{}); err == nil {
		t.Error("expected error when subscribers cannot be listed")
	}
}

func TestNotifySubscribers_NoSubscribers(t *testing.T) {
	f := newDispatchFixture()
	res, err := f.svc.NotifySubscribers(context.Background(), "nobody", models.GameStarted{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempted != 0 || res.Errors == nil {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestNotifySubscribers_RejectsNilEvent(t *testing.T) {
	f := newDispatchFixture()
	f.subs.add("magnus", "u1")
	f.prefs.enable("u1")

	_, err := f.svc.NotifySubscribers(context.Background(), "magnus", nil)
	if !errors.Is(err, models.ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
	if f.email.count() != 0 || len(f.log.entries) != 0 {
		t.Error("invalid event must not reach subscribers")
	}
}
