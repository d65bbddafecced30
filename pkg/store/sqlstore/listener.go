package sqlstore

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/oldman-go/oldman/pkg/logger"
)

func waitForNotification(l *pq.Listener, callback func(id string)) {
	ctx := context.Background()
	for {
		select {
		case n := <-l.Notify:
			logger.With(ctx, logger.FieldChannel, n.Channel).With(logger.FieldData, n.Extra).Info("received data from channel")
			callback(n.Extra)
			return
		case <-time.After(10 * time.Second):
			logger.Debug(ctx, "received no events on channel during interval, pinging source")
			go func() {
				if err := l.Ping(); err != nil {
					logger.WithError(ctx, err).Debug("ping failed")
				}
			}()
			return
		}
	}
}

// newListener blocks forever, invoking callback each time channel fires.
// It serves the resource-cache-invalidation LISTEN/NOTIFY pattern, in which
// a writer notifies the channel so that holders of a resource re-fetch it;
// nothing in this module sends those notifications.
func newListener(ctx context.Context, connstr, channel string, callback func(id string)) {
	plog := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.WithError(ctx, err).Error("postgresql listener error")
		}
	}
	listener := pq.NewListener(connstr, 10*time.Second, time.Minute, plog)
	if err := listener.Listen(channel); err != nil {
		panic(err)
	}

	logger.With(ctx, logger.FieldChannel, channel).Info("starting channel monitor")
	for {
		waitForNotification(listener, callback)
	}
}
