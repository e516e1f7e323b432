package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayGuard is the Redis fast path for the one-check-per-alert-per-day
// invariant. It sits in front of the Postgres existence query; when Redis is
// unavailable the evaluator degrades to the database check alone.
//
// Two overlapping runs can still race between the check and the write. That
// gap is known and deliberately left open here.
type DayGuard struct {
	redis *redis.Client
}

// NewDayGuard creates a day guard backed by the given Redis client.
func NewDayGuard(redisClient *redis.Client) *DayGuard {
	return &DayGuard{redis: redisClient}
}

func guardKey(alertID string, date time.Time) string {
	return fmt.Sprintf("alert_check:%s:%s", alertID, date.UTC().Format("2006-01-02"))
}

// AlreadyChecked reports whether the alert was marked as checked today.
func (g *DayGuard) AlreadyChecked(ctx context.Context, alertID string, date time.Time) (bool, error) {
	n, err := g.redis.Exists(ctx, guardKey(alertID, date)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read day guard: %w", err)
	}
	return n > 0, nil
}

// MarkChecked records that the alert was evaluated today. Keys expire after
// two days so stale guards clean themselves up.
func (g *DayGuard) MarkChecked(ctx context.Context, alertID string, date time.Time) error {
	if err := g.redis.Set(ctx, guardKey(alertID, date), "1", 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set day guard: %w", err)
	}
	return nil
}
