package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// LocalNotifier delivers events within one process.
type LocalNotifier struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func NewLocalNotifier(buffer int) *LocalNotifier {
	return &LocalNotifier{ch: make(chan Event, buffer)}
}

func (n *LocalNotifier) Publish(ctx context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("publish %s: notifier closed", ev.Type)
	}
	select {
	case n.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *LocalNotifier) Events() <-chan Event { return n.ch }

func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.ch)
	}
	return nil
}

// PGNotifier uses Postgres LISTEN/NOTIFY so every API instance sees every event.
type PGNotifier struct {
	db       *sql.DB
	listener *pq.Listener
	out      chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	logger   *slog.Logger
}

// NewPGNotifier publishes through db and listens on a dedicated connection opened from dsn.
func NewPGNotifier(db *sql.DB, dsn string, logger *slog.Logger) (*PGNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("auth listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(ChannelName); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", ChannelName, err)
	}

	n := &PGNotifier{
		db:       db,
		listener: listener,
		out:      make(chan Event, 64),
		done:     make(chan struct{}),
		logger:   logger,
	}
	n.wg.Add(1)
	go n.run()
	return n, nil
}

func (n *PGNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case msg, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// nil follows a reconnect; anything sent meanwhile was lost.
			if msg == nil {
				n.logger.Warn("auth listener reconnected, events may have been missed")
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Extra), &ev); err != nil {
				n.logger.Error("failed to decode auth event", "payload", msg.Extra, "error", err)
				continue
			}
			select {
			case n.out <- ev:
			case <-n.done:
				return
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := n.listener.Ping(); err != nil {
					n.logger.Warn("auth listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (n *PGNotifier) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if _, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", ChannelName, err)
	}
	return nil
}

func (n *PGNotifier) Events() <-chan Event { return n.out }

func (n *PGNotifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		n.wg.Wait()
		err = n.listener.Close()
		close(n.out)
	})
	return err
}
