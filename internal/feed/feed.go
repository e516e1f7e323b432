package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tideraider/surf-alert-server/internal/protocol"
)

// Writer maintains each user's recent-matches feed in Redis. The dashboard
// reads the list directly; entries age out so the feed stays bounded.
type Writer struct {
	redis   *redis.Client
	maxSize int64
	ttl     time.Duration
}

// NewWriter creates a feed writer keeping at most maxSize entries per user.
func NewWriter(redisClient *redis.Client, maxSize int64) *Writer {
	return &Writer{
		redis:   redisClient,
		maxSize: maxSize,
		ttl:     14 * 24 * time.Hour,
	}
}

func feedKey(userID string) string {
	return fmt.Sprintf("match_feed:%s", userID)
}

// Append pushes one match onto the owner's feed and trims it to size.
func (w *Writer) Append(ctx context.Context, msg *protocol.MatchMessage) error {
	data, err := protocol.EncodeMatchMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode feed entry: %w", err)
	}

	key := feedKey(msg.UserID)
	pipe := w.redis.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, w.maxSize-1)
	pipe.Expire(ctx, key, w.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write feed entry: %w", err)
	}

	return nil
}

// Recent returns the newest entries in a user's feed, newest first.
func (w *Writer) Recent(ctx context.Context, userID string, limit int64) ([]*protocol.MatchMessage, error) {
	raw, err := w.redis.LRange(ctx, feedKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	var out []*protocol.MatchMessage
	for _, item := range raw {
		msg, err := protocol.DecodeMatchMessage([]byte(item))
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
