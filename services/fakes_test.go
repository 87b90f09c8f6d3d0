package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"player-monitor-system/models"
)

// In-memory collaborators shared by the pipeline tests.

type fakeSubscriptions struct {
	mu       sync.Mutex
	subs     map[string][]string // username -> user ids
	listErr  error
	subsErrs map[string]error
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{subs: map[string][]string{}, subsErrs: map[string]error{}}
}

func (f *fakeSubscriptions) add(username string, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[username] = append(f.subs[username], userIDs...)
}

func (f *fakeSubscriptions) ListDistinctMonitoredUsernames(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.subs))
	for u, ids := range f.subs {
		if len(ids) > 0 {
			names = append(names, u)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeSubscriptions) ListSubscriberUserIDs(_ context.Context, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subsErrs[username]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.subs[username]...), nil
}

type fakePreferences struct {
	prefs map[string]*models.NotificationPreference
	errs  map[string]error
}

func newFakePreferences() *fakePreferences {
	return &fakePreferences{prefs: map[string]*models.NotificationPreference{}, errs: map[string]error{}}
}

func (f *fakePreferences) enable(userIDs ...string) {
	for _, id := range userIDs {
		f.prefs[id] = &models.NotificationPreference{UserID: id, EmailNotifications: true, Frequency: models.FrequencyImmediate}
	}
}

func (f *fakePreferences) GetPreferences(_ context.Context, userID string) (*models.NotificationPreference, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.prefs[userID], nil
}

type memNotificationLog struct {
	mu        sync.Mutex
	entries   []models.NotificationLogEntry
	existsErr error
	insertErr error
}

func (m *memNotificationLog) ExistsSince(_ context.Context, userID, username string, eventType models.EventType, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, e := range m.entries {
		if e.UserID == userID && e.Username == username && e.EventType == eventType && !e.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotificationLog) Insert(_ context.Context, entry *models.NotificationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memNotificationLog) count(username string, eventType models.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Username == username && e.EventType == eventType {
			n++
		}
	}
	return n
}

type sentEmail struct {
	UserID string
	Event  models.PlayerEvent
	Ctx    EmailContext
}

type fakeEmail struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]string
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{failFor: map[string]string{}}
}

func (f *fakeEmail) Send(_ context.Context, userID string, event models.PlayerEvent, ec EmailContext) EmailResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{UserID: userID, Event: event, Ctx: ec})
	if msg, ok := f.failFor[userID]; ok {
		return EmailResult{Error: msg}
	}
	return EmailResult{Delivered: true}
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memStatusStore struct {
	mu        sync.Mutex
	rows      map[string]models.PlayerStatus
	upsertErr map[string]error
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{rows: map[string]models.PlayerStatus{}, upsertErr: map[string]error{}}
}

func (m *memStatusStore) Get(_ context.Context, username string) (*models.PlayerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[username]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStatusStore) Upsert(_ context.Context, status *models.PlayerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[status.Username]; err != nil {
		return err
	}
	m.rows[status.Username] = *status
	return nil
}

type memJobStore struct {
	mu        sync.Mutex
	jobs      map[string]*models.MonitoringJob
	finishes  int
	insertErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]*models.MonitoringJob{}}
}

func (m *memJobStore) Insert(_ context.Context, job *models.MonitoringJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	j := *job
	m.jobs[job.ID] = &j
	return nil
}

func (m *memJobStore) Finish(_ context.Context, job *models.MonitoringJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[job.ID]
	if !ok || cur.Status != models.JobStatusRunning {
		return false, nil
	}
	m.finishes++
	j := *job
	j.JobType = cur.JobType
	j.StartedAt = cur.StartedAt
	m.jobs[job.ID] = &j
	return true, nil
}

func (m *memJobStore) List(_ context.Context, limit int) ([]models.MonitoringJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MonitoringJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobStore) Get(_ context.Context, id string) (*models.MonitoringJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

// fakeStatusSource serves scripted observations per username.
type fakeStatusSource struct {
	mu       sync.Mutex
	statuses map[string]FetchedStatus
	errs     map[string]error
	panics   map[string]bool
	calls    []string
}

func newFakeStatusSource() *fakeStatusSource {
	return &fakeStatusSource{
		statuses: map[string]FetchedStatus{},
		errs:     map[string]error{},
		panics:   map[string]bool{},
	}
}

func (f *fakeStatusSource) set(username string, online, playing bool, gameURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FetchedStatus{Username: username, IsOnline: online, IsPlaying: playing}
	if gameURL != "" {
		st.CurrentGameURL = &gameURL
	}
	f.statuses[username] = st
}

func (f *fakeStatusSource) FetchStatus(_ context.Context, username string) (*FetchedStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, username)
	if f.panics[username] {
		panic("decoder exploded")
	}
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	st, ok := f.statuses[username]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return &st, nil
}

var errBoom = errors.New("boom")
