package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	entries    []*LoginEntry
	activities []*Activity
	stats      map[uuid.UUID]*Stats
	failAll    bool
}

func newSessionMock() *mockRepo {
	return &mockRepo{stats: make(map[uuid.UUID]*Stats)}
}

func (m *mockRepo) AddLoginEntry(_ context.Context, e *LoginEntry) error {
	if m.failAll {
		return errors.New("storage down")
	}
	e.ID = uuid.New()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) CloseLatestEntry(_ context.Context, userID uuid.UUID, at time.Time) error {
	if m.failAll {
		return errors.New("storage down")
	}
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.UserID == userID && e.LogoutTime == nil {
			e.LogoutTime = &at
			return nil
		}
	}
	return nil
}

func (m *mockRepo) ListLoginHistory(_ context.Context, userID uuid.UUID, limit, offset int) ([]*LoginEntry, int, error) {
	var out []*LoginEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) AddActivity(_ context.Context, a *Activity) error {
	if m.failAll {
		return errors.New("storage down")
	}
	a.ID = uuid.New()
	m.activities = append(m.activities, a)
	return nil
}

func (m *mockRepo) ListActivity(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Activity, int, error) {
	var out []*Activity
	for _, a := range m.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) GetStats(_ context.Context, userID uuid.UUID) (*Stats, error) {
	if m.failAll {
		return nil, errors.New("storage down")
	}
	s, ok := m.stats[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) UpsertStats(_ context.Context, s *Stats) error {
	if m.failAll {
		return errors.New("storage down")
	}
	cp := *s
	m.stats[s.UserID] = &cp
	return nil
}

func newTestTracker(repo Repository) *Tracker {
	t := NewTracker(repo, zerolog.Nop())
	t.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }
	return t
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := now.Add(-3 * time.Hour)
	threeDaysAgo := now.AddDate(0, 0, -3)

	cases := []struct {
		name     string
		current  int
		previous *time.Time
		want     int
	}{
		{"first login", 0, nil, 1},
		{"consecutive day", 4, &yesterday, 5},
		{"same day repeat", 4, &earlierToday, 4},
		{"gap resets", 9, &threeDaysAgo, 1},
	}
	for _, tc := range cases {
		if got := NextStreak(tc.current, tc.previous, now); got != tc.want {
			t.Errorf("%s: NextStreak = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNextStreakDayBoundary(t *testing.T) {
	// 23:50 yesterday to 00:10 today is consecutive calendar days even
	// though under an hour apart
	prev := time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC)
	now := time.Date(2026, 8, 29, 0, 10, 0, 0, time.UTC)
	if got := NextStreak(2, &prev, now); got != 3 {
		t.Fatalf("NextStreak = %d, want 3", got)
	}
}

func TestRecordLoginCounters(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	userID := uuid.New()

	tr.RecordLogin(context.Background(), userID, LoginInfo{IPAddress: "10.0.0.1", UserAgent: "go-test", Method: MethodOTP})

	s := repo.stats[userID]
	if s == nil {
		t.Fatal("stats not created")
	}
	if s.TotalLogins != 1 || s.SessionCount != 1 || s.LoginStreak != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if len(repo.entries) != 1 || repo.entries[0].Method != MethodOTP {
		t.Fatalf("entries = %+v", repo.entries)
	}
}

func TestRecordLoginStreakAcrossDays(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	userID := uuid.New()

	day1 := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day5 := day1.AddDate(0, 0, 4)

	tr.now = func() time.Time { return day1 }
	tr.RecordLogin(context.Background(), userID, LoginInfo{Method: MethodPassword})
	tr.now = func() time.Time { return day2 }
	tr.RecordLogin(context.Background(), userID, LoginInfo{Method: MethodPassword})
	if repo.stats[userID].LoginStreak != 2 {
		t.Fatalf("streak = %d, want 2", repo.stats[userID].LoginStreak)
	}

	tr.now = func() time.Time { return day5 }
	tr.RecordLogin(context.Background(), userID, LoginInfo{Method: MethodPassword})
	s := repo.stats[userID]
	if s.LoginStreak != 1 {
		t.Fatalf("streak = %d, want 1 after gap", s.LoginStreak)
	}
	if s.TotalLogins != 3 {
		t.Fatalf("total logins = %d", s.TotalLogins)
	}
}

func TestRecordLoginSwallowsFailures(t *testing.T) {
	repo := newSessionMock()
	repo.failAll = true
	tr := newTestTracker(repo)

	// must not panic or surface the error
	tr.RecordLogin(context.Background(), uuid.New(), LoginInfo{Method: MethodPassword})
	tr.RecordLogout(context.Background(), uuid.New(), time.Hour)
	tr.RecordActivity(context.Background(), uuid.New(), "viewed-chart", nil)
}

func TestRecordLogoutBackfillsNewestEntry(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	userID := uuid.New()

	tr.RecordLogin(context.Background(), userID, LoginInfo{Method: MethodPassword})
	tr.RecordLogout(context.Background(), userID, 30*time.Minute)

	if repo.entries[0].LogoutTime == nil {
		t.Fatal("logout time not backfilled")
	}
	if got := repo.stats[userID].TotalSessionMinutes; got != 30 {
		t.Fatalf("session minutes = %d", got)
	}
}

func TestRecordLogoutIgnoresNonPositiveDuration(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	userID := uuid.New()

	tr.RecordLogin(context.Background(), userID, LoginInfo{Method: MethodPassword})
	before := repo.stats[userID].TotalSessionMinutes
	tr.RecordLogout(context.Background(), userID, -time.Minute)
	if repo.stats[userID].TotalSessionMinutes != before {
		t.Fatal("negative duration must not change totals")
	}
}

func TestUnknownMethodFallsBackToPassword(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	tr.RecordLogin(context.Background(), uuid.New(), LoginInfo{Method: "carrier-pigeon"})
	if repo.entries[0].Method != MethodPassword {
		t.Fatalf("method = %q", repo.entries[0].Method)
	}
}

func TestStatsZeroWhenAbsent(t *testing.T) {
	repo := newSessionMock()
	tr := newTestTracker(repo)
	userID := uuid.New()
	s, err := tr.Stats(context.Background(), userID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.TotalLogins != 0 || s.UserID != userID {
		t.Fatalf("stats = %+v", s)
	}
}
