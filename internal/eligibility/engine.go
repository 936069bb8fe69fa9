// Package eligibility decides whether server-supplied messages may be
// shown, based on locally persisted dismissal and impression state.
package eligibility

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/engagekit/client-go/internal/api"
	"github.com/engagekit/client-go/internal/apierrors"
)

// Store is the local persistent key-value store the engine reads and
// writes. The engine is the only writer of its keys.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Key prefixes for per-message state.
const (
	keyDismissed   = "ek:dismissed:"
	keyImpressions = "ek:impressions:"
	keyLastShown   = "ek:last_shown:"
)

const timeLayout = time.RFC3339

// Config configures an Engine.
type Config struct {
	Store  Store        // required
	Logger *slog.Logger // optional
	Now    func() time.Time
}

// Engine applies dismissal and suppression rules to candidate messages and
// records impressions and dismissals. Malformed persisted values are
// treated as "no record": the engine fails open rather than erroring.
type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates an engine over the given store.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:  cfg.Store,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
}

// FilterAndRank removes suppressed candidates and orders the rest by
// priority, highest first. Ties keep their input order.
func (e *Engine) FilterAndRank(candidates []api.Message) []api.Message {
	eligible := make([]api.Message, 0, len(candidates))
	for _, m := range candidates {
		if e.Eligible(m) {
			eligible = append(eligible, m)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority > eligible[j].Priority
	})
	return eligible
}

// Eligible reports whether a message passes both the dismissal check and
// the suppression check.
func (e *Engine) Eligible(m api.Message) bool {
	now := e.now()

	if dismissedAt, ok := e.timeAt(keyDismissed + m.ID); ok {
		if m.DismissDays == nil {
			// Once dismissed, never eligible again.
			return false
		}
		if now.Sub(dismissedAt) < time.Duration(*m.DismissDays)*24*time.Hour {
			return false
		}
	}

	if m.MaxImpressions != nil && e.impressions(m.ID) >= *m.MaxImpressions {
		return false
	}

	if m.MinIntervalHours != nil {
		if lastShown, ok := e.timeAt(keyLastShown + m.ID); ok {
			if now.Sub(lastShown) < time.Duration(*m.MinIntervalHours)*time.Hour {
				return false
			}
		}
	}

	return true
}

// RecordImpression increments the impression count and stamps the
// last-shown time. Call it exactly once per presentation, immediately
// before rendering.
func (e *Engine) RecordImpression(messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return &apierrors.ValidationError{Field: "messageID", Message: "must not be blank"}
	}

	count := e.impressions(messageID)
	if err := e.store.Set(keyImpressions+messageID, strconv.Itoa(count+1)); err != nil {
		return err
	}
	return e.store.Set(keyLastShown+messageID, e.now().Format(timeLayout))
}

// RecordDismissal stamps the dismissal time for a message.
func (e *Engine) RecordDismissal(messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return &apierrors.ValidationError{Field: "messageID", Message: "must not be blank"}
	}
	return e.store.Set(keyDismissed+messageID, e.now().Format(timeLayout))
}

func (e *Engine) timeAt(key string) (time.Time, bool) {
	value, ok := e.store.Get(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		e.logger.Debug("malformed timestamp in local state, ignoring",
			slog.String("key", key),
			slog.String("value", value),
		)
		return time.Time{}, false
	}
	return t, true
}

func (e *Engine) impressions(messageID string) int {
	value, ok := e.store.Get(keyImpressions + messageID)
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 0 {
		e.logger.Debug("malformed impression count in local state, ignoring",
			slog.String("message_id", messageID),
			slog.String("value", value),
		)
		return 0
	}
	return count
}
