package eligibility

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/engagekit/client-go/internal/api"
	"github.com/engagekit/client-go/internal/apierrors"
	"github.com/engagekit/client-go/internal/store"
)

func intPtr(n int) *int { return &n }

// fixedNow is an arbitrary reference instant used by all engine tests.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *store.Memory) {
	mem := store.NewMemory()
	engine := New(Config{
		Store: mem,
		Now:   func() time.Time { return fixedNow },
	})
	return engine, mem
}

func TestEligible_NoState(t *testing.T) {
	engine, _ := newTestEngine()

	m := api.Message{
		ID:               "m1",
		DismissDays:      intPtr(7),
		MaxImpressions:   intPtr(3),
		MinIntervalHours: intPtr(24),
	}
	if !engine.Eligible(m) {
		t.Error("message with no local state should be eligible")
	}
}

func TestEligible_PermanentDismissal(t *testing.T) {
	engine, mem := newTestEngine()

	// Dismissed years ago; nil DismissDays means never again.
	mem.Set("ek:dismissed:m1", fixedNow.AddDate(-3, 0, 0).Format(time.RFC3339))

	if engine.Eligible(api.Message{ID: "m1"}) {
		t.Error("permanently dismissed message should never be eligible")
	}
}

func TestEligible_DismissalWindow(t *testing.T) {
	tests := []struct {
		name        string
		dismissedAt time.Time
		want        bool
	}{
		{"dismissed 8 days ago", fixedNow.AddDate(0, 0, -8), true},
		{"dismissed exactly 7 days ago", fixedNow.AddDate(0, 0, -7), true},
		{"dismissed 6 days ago", fixedNow.AddDate(0, 0, -6), false},
		{"dismissed today", fixedNow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, mem := newTestEngine()
			mem.Set("ek:dismissed:m1", tt.dismissedAt.Format(time.RFC3339))

			m := api.Message{ID: "m1", DismissDays: intPtr(7)}
			if got := engine.Eligible(m); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEligible_MaxImpressions(t *testing.T) {
	engine, mem := newTestEngine()
	mem.Set("ek:impressions:m1", "3")

	m := api.Message{ID: "m1", MaxImpressions: intPtr(3), Priority: 100}
	if engine.Eligible(m) {
		t.Error("message at its impression cap should be suppressed")
	}

	mem.Set("ek:impressions:m1", "2")
	if !engine.Eligible(m) {
		t.Error("message below its impression cap should be eligible")
	}
}

func TestEligible_NoImpressionCap(t *testing.T) {
	engine, mem := newTestEngine()
	mem.Set("ek:impressions:m1", "9999")

	if !engine.Eligible(api.Message{ID: "m1"}) {
		t.Error("nil MaxImpressions means the cap does not apply")
	}
}

func TestEligible_MinInterval(t *testing.T) {
	tests := []struct {
		name      string
		lastShown time.Time
		want      bool
	}{
		{"shown 2 hours ago", fixedNow.Add(-2 * time.Hour), false},
		{"shown 25 hours ago", fixedNow.Add(-25 * time.Hour), true},
		{"shown exactly 24 hours ago", fixedNow.Add(-24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, mem := newTestEngine()
			mem.Set("ek:last_shown:m1", tt.lastShown.Format(time.RFC3339))

			m := api.Message{ID: "m1", MinIntervalHours: intPtr(24)}
			if got := engine.Eligible(m); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEligible_MalformedStateFailsOpen(t *testing.T) {
	engine, mem := newTestEngine()
	mem.Set("ek:dismissed:m1", "not-a-date")
	mem.Set("ek:impressions:m1", "lots")
	mem.Set("ek:last_shown:m1", "@@@@")

	m := api.Message{
		ID:               "m1",
		DismissDays:      nil, // would be permanent if the dismissal record parsed
		MaxImpressions:   intPtr(1),
		MinIntervalHours: intPtr(24),
	}
	if !engine.Eligible(m) {
		t.Error("malformed local state must be treated as no record")
	}
}

func TestFilterAndRank_PriorityOrder(t *testing.T) {
	engine, _ := newTestEngine()

	ranked := engine.FilterAndRank([]api.Message{
		{ID: "low", Priority: 5},
		{ID: "high", Priority: 10},
	})
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].ID != "high" || ranked[1].ID != "low" {
		t.Errorf("order = [%s %s], want [high low]", ranked[0].ID, ranked[1].ID)
	}
}

func TestFilterAndRank_StableOnTies(t *testing.T) {
	engine, _ := newTestEngine()

	ranked := engine.FilterAndRank([]api.Message{
		{ID: "a", Priority: 5},
		{ID: "b", Priority: 5},
		{ID: "c", Priority: 5},
	})
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].ID != want {
			t.Errorf("ranked[%d] = %s, want %s (input order on ties)", i, ranked[i].ID, want)
		}
	}
}

func TestFilterAndRank_RemovesSuppressed(t *testing.T) {
	engine, mem := newTestEngine()
	mem.Set("ek:impressions:capped", "3")

	ranked := engine.FilterAndRank([]api.Message{
		{ID: "capped", Priority: 100, MaxImpressions: intPtr(3)},
		{ID: "fresh", Priority: 1},
	})
	if len(ranked) != 1 || ranked[0].ID != "fresh" {
		t.Errorf("ranked = %v, want only the fresh message", ranked)
	}
}

func TestRecordImpression(t *testing.T) {
	engine, mem := newTestEngine()

	if err := engine.RecordImpression("m1"); err != nil {
		t.Fatalf("RecordImpression() error = %v", err)
	}
	if err := engine.RecordImpression("m1"); err != nil {
		t.Fatalf("RecordImpression() error = %v", err)
	}

	count, _ := mem.Get("ek:impressions:m1")
	if count != "2" {
		t.Errorf("impression count = %s, want 2", count)
	}
	lastShown, ok := mem.Get("ek:last_shown:m1")
	if !ok {
		t.Fatal("last-shown not recorded")
	}
	if got, err := time.Parse(time.RFC3339, lastShown); err != nil || !got.Equal(fixedNow) {
		t.Errorf("last shown = %s, want %s", lastShown, fixedNow.Format(time.RFC3339))
	}
}

func TestRecordImpression_RecoversFromMalformedCount(t *testing.T) {
	engine, mem := newTestEngine()
	mem.Set("ek:impressions:m1", "garbage")

	if err := engine.RecordImpression("m1"); err != nil {
		t.Fatalf("RecordImpression() error = %v", err)
	}
	count, _ := mem.Get("ek:impressions:m1")
	if n, err := strconv.Atoi(count); err != nil || n != 1 {
		t.Errorf("count after malformed state = %s, want 1", count)
	}
}

func TestRecordDismissal(t *testing.T) {
	engine, mem := newTestEngine()

	if err := engine.RecordDismissal("m1"); err != nil {
		t.Fatalf("RecordDismissal() error = %v", err)
	}
	value, ok := mem.Get("ek:dismissed:m1")
	if !ok {
		t.Fatal("dismissal not recorded")
	}
	if got, err := time.Parse(time.RFC3339, value); err != nil || !got.Equal(fixedNow) {
		t.Errorf("dismissed at = %s, want %s", value, fixedNow.Format(time.RFC3339))
	}

	if engine.Eligible(api.Message{ID: "m1"}) {
		t.Error("message should be suppressed immediately after dismissal")
	}
}

func TestRecord_BlankID(t *testing.T) {
	engine, _ := newTestEngine()

	for _, id := range []string{"", "  ", "\t"} {
		var valErr *apierrors.ValidationError
		if err := engine.RecordImpression(id); !errors.As(err, &valErr) {
			t.Errorf("RecordImpression(%q) = %v, want validation error", id, err)
		}
		if err := engine.RecordDismissal(id); !errors.As(err, &valErr) {
			t.Errorf("RecordDismissal(%q) = %v, want validation error", id, err)
		}
	}
}
