package events

import (
	"context"
	"encoding/json"
	"time"

	"ordercore-api-io/api/pkg/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var CHANNEL_SESSION_EVENTS = "ORDER_SESSION_EVENTS"

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: CHANNEL_SESSION_EVENTS}
}

func sessionMessage(event models.SessionEvent) (string, error) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	messageJSON, err := json.Marshal(event)
	if err != nil {
		return "", errors.Wrap(err, "marshal session event")
	}
	return string(messageJSON), nil
}

// PublishSessionEvent publishes a session event to Redis pub/sub as JSON
func (p *RedisPublisher) PublishSessionEvent(ctx context.Context, event models.SessionEvent) error {
	message, err := sessionMessage(event)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, message).Err(); err != nil {
		return errors.Wrap(err, "publish session event")
	}

	zap.L().Debug("published session event", zap.String("type", string(event.Type)), zap.String("session", event.SessionId))
	return nil
}
