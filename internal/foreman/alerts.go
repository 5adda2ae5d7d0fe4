package foreman

import (
	"context"
	"time"

	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/notify"
	"github.com/rs/zerolog"
)

// AlertSink persists published notifications so operators of one-shot
// commands see what happened while they were away. Reads go through
// App.Alerts.
type AlertSink struct {
	store notify.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger
}

// NewAlertSink creates the notification persistence sink.
func NewAlertSink(store notify.Store, bus *eventbus.EventBus, log zerolog.Logger) *AlertSink {
	return &AlertSink{store: store, bus: bus, log: log}
}

// Register subscribes the sink to published notifications.
func (s *AlertSink) Register() {
	s.bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		n := notify.Notification{
			Level:     p.Level,
			Message:   p.Message,
			CreatedAt: time.Now(),
		}
		if _, err := s.store.Save(context.Background(), n); err != nil {
			s.log.Error().Err(err).Str("message", p.Message).Msg("persist notification failed")
		}
	})
}
