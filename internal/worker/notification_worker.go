package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// EventFanout mirrors domain events to a Redis channel for out-of-process
// consumers.
type EventFanout struct {
	Client  *redis.Client
	Channel string
}

// StartNotificationWorker registers notification handlers and, when a
// fanout is given, the Redis mirror.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher, fanout *EventFanout, logger *zap.Logger) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher == nil || fanout == nil || fanout.Client == nil || fanout.Channel == "" {
		return
	}
	publish := events.NewRedisPublisher(fanout.Client, fanout.Channel)
	events.SubscribeAll(dispatcher, func(ctx context.Context, event events.Event) error {
		// a dropped mirror must not fail the request
		if err := publish(ctx, event); err != nil && logger != nil {
			logger.Warn("event fanout failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
		return nil
	})
	if logger != nil {
		logger.Info("event fanout enabled", zap.String("channel", fanout.Channel))
	}
}
