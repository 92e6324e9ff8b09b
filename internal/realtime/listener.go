package realtime

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Listener holds one pooled connection in LISTEN mode and publishes every
// notification to the hub.
type Listener struct {
	pool  *pgxpool.Pool
	hub   *Hub
	retry time.Duration
}

func NewListener(pool *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{pool: pool, hub: hub, retry: 2 * time.Second}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("[realtime] listener stopped: %v, reconnecting in %s", err, l.retry)
		select {
		case <-ctx.Done():
			return nil
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

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	log.Printf("[realtime] listening on %s", Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ch, err := DecodeChange([]byte(n.Payload))
		if err != nil {
			log.Printf("[realtime] %v", err)
			continue
		}
		l.hub.Publish(ch)
	}
}
