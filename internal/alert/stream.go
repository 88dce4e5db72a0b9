package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream   = "stream:slot_alerts"
	streamEventType = "SLOT_AVAILABLE"
	streamMaxLen    = 10000
)

// RedisClient is the subset of *redis.Client the stream channel uses.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Stream appends every alert to a Redis stream for downstream consumers.
type Stream struct {
	redis  RedisClient
	stream string
	source string
	logger *slog.Logger
}

func NewStream(client RedisClient, stream, source string, logger *slog.Logger) *Stream {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		redis:  client,
		stream: stream,
		source: source,
		logger: logger.With("component", "stream"),
	}
}

func (s *Stream) Name() string {
	return "redis_stream"
}

func (s *Stream) Send(ctx context.Context, a Alert) error {
	streamData := map[string]interface{}{
		"id":        a.ID.String(),
		"type":      streamEventType,
		"timestamp": a.RaisedAt.Format(time.RFC3339),
		"payload": map[string]interface{}{
			"location":  a.Record.Location,
			"date":      a.Record.Date.String(),
			"time":      a.Record.Time.String(),
			"signature": string(a.Signature),
			"message":   a.Message,
		},
		"metadata": map[string]interface{}{
			"source": s.source,
			"title":  a.Title,
		},
	}

	dataJSON, err := json.Marshal(streamData)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":       string(dataJSON),
			"event_type": streamEventType,
			"event_id":   a.ID.String(),
			"location":   a.Record.Location,
			"timestamp":  fmt.Sprintf("%d", a.RaisedAt.UnixNano()),
		},
	}

	id, err := s.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	s.logger.Debug("alert published", "stream", s.stream, "entry_id", id, "alert_id", a.ID)
	return nil
}
