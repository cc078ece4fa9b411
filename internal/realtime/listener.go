package realtime

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"recruitflow/internal/metrics"
)

// Listener turns Postgres NOTIFY payloads into Hub events.
type Listener struct {
	pool  *pgxpool.Pool
	hub   *Hub
	log   *zap.Logger
	retry time.Duration
}

func NewListener(pool *pgxpool.Pool, hub *Hub, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{pool: pool, hub: hub, log: log, retry: 2 * time.Second}
}

// Run blocks until ctx is done. A dropped connection is re-acquired after a
// short pause; events committed while disconnected are not replayed.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("change feed disconnected", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return err
	}
	l.log.Info("listening for changes", zap.String("channel", Channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle([]byte(n.Payload))
	}
}

func (l *Listener) handle(payload []byte) {
	e, err := Decode(payload)
	if err != nil {
		metrics.RealtimeEventsDropped.WithLabelValues("unknown", "malformed").Inc()
		l.log.Warn("dropping change event", zap.Error(err))
		return
	}
	l.hub.Publish(e)
}
