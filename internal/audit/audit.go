package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"nexa-dashboard/internal/storage"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

const DefaultListLimit = 100

type Entry struct {
	ID        string    `json:"_id,omitempty"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	Event     string    `json:"event"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type Summary struct {
	Total   int            `json:"total"`
	ByLevel map[string]int `json:"by_level"`
	ByEvent map[string]int `json:"by_event"`
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Logger struct {
	coll   storage.Collection
	logger *zap.Logger
	clock  Clock
}

func NewLogger(store storage.Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{
		coll:   store.Collection(storage.CollectionAuditLogs),
		logger: logger.Named("audit"),
		clock:  realClock{},
	}
}

func (l *Logger) WithClock(clock Clock) {
	l.clock = clock
}

// Log records a dashboard action. A failed write is logged and otherwise ignored.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	now := l.clock.Now().UTC().Truncate(time.Millisecond)
	entry := map[string]any{
		"guild_id":   guildID,
		"user_id":    userID,
		"level":      level,
		"event":      event,
		"details":    details,
		"created_at": now,
	}
	if _, err := l.coll.Insert(ctx, entry); err != nil {
		l.logger.Warn("audit write failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

// List returns the guild's entries since the given time, newest first.
func (l *Logger) List(ctx context.Context, guildID string, since time.Time, limit int) ([]Entry, error) {
	entries, err := l.load(ctx, guildID, since)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *Logger) Summary(ctx context.Context, guildID string, since time.Time) (Summary, error) {
	entries, err := l.load(ctx, guildID, since)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{ByLevel: map[string]int{}, ByEvent: map[string]int{}}
	for _, entry := range entries {
		summary.Total++
		summary.ByLevel[entry.Level]++
		summary.ByEvent[entry.Event]++
	}
	return summary, nil
}

// Prune deletes entries older than retention and reports how many went.
func (l *Logger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := l.clock.Now().UTC().Add(-retention)
	deleted, err := l.coll.DeleteMany(ctx, storage.Filter{"created_at": storage.Range{Lt: cutoff}})
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return deleted, nil
}

// RunRetention prunes once, then again on every interval until ctx is done.
func (l *Logger) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}
	prune := func() {
		deleted, err := l.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("audit retention failed", zap.Error(err))
			}
			return
		}
		if deleted > 0 {
			l.logger.Info("audit entries pruned", zap.Int64("deleted", deleted), zap.Duration("retention", retention))
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

func (l *Logger) load(ctx context.Context, guildID string, since time.Time) ([]Entry, error) {
	filter := storage.Filter{"guild_id": guildID}
	if !since.IsZero() {
		filter["created_at"] = storage.Range{Gte: since.UTC()}
	}
	docs, err := l.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var entry Entry
		if err := storage.Decode(doc, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
