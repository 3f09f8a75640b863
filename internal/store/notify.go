package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

// Publisher receives decoded message inserts.
type Publisher interface {
	Publish(msg model.Message) int
}

// Listener follows the message insert channel with LISTEN and republishes
// each row. Notifications sent while the connection is down are lost.
type Listener struct {
	dsn     string
	channel string
	pub     Publisher
	log     *zap.Logger

	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

func NewListener(dsn, channel string, pub Publisher, log *zap.Logger) *Listener {
	return &Listener{
		dsn:          dsn,
		channel:      channel,
		pub:          pub,
		log:          log.Named("change-feed"),
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.log.Warn("change feed connection problem", zap.Error(err))
		case pq.ListenerEventReconnected:
			l.log.Info("change feed reconnected")
		}
	})
	defer pl.Close()

	if err := pl.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %q: %w", l.channel, err)
	}
	l.log.Info("listening for message inserts", zap.String("channel", l.channel))

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			if n == nil {
				continue
			}
			l.handle(n.Extra)
		case <-ticker.C:
			go func() {
				if err := pl.Ping(); err != nil {
					l.log.Warn("change feed ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (l *Listener) handle(payload string) {
	msg, err := DecodeMessage(payload)
	if err != nil {
		l.log.Warn("dropping undecodable notification", zap.Error(err))
		return
	}
	l.pub.Publish(msg)
}

// DecodeMessage parses the row_to_json payload of a messages row.
func DecodeMessage(payload string) (model.Message, error) {
	var msg model.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return model.Message{}, fmt.Errorf("decode message notification: %w", err)
	}
	if msg.ID == 0 {
		return model.Message{}, fmt.Errorf("decode message notification: missing id")
	}
	return msg, nil
}
