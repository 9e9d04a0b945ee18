package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	IsClosed() bool
	Close(ctx context.Context) error
}

var connectNotify = func(ctx context.Context, dsn string) (notifyConn, error) {
	return pgx.Connect(ctx, dsn)
}

// ErrListenerClosed is returned after Close.
var ErrListenerClosed = errors.New("listener closed")

// Listener holds a dedicated connection subscribed to the row-change channel.
// LISTEN state is per session so it cannot live on a pooled connection.
type Listener struct {
	dsn     string
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	conn   notifyConn
	closed bool
}

// NewListener prepares a listener. The connection is opened by Listen.
func NewListener(dsn string, logger *slog.Logger) *Listener {
	return &Listener{dsn: dsn, channel: ChangesChannel, logger: logger}
}

// Listen (re)connects when needed and issues LISTEN.
func (l *Listener) Listen(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}
	if l.conn == nil || l.conn.IsClosed() {
		conn, err := connectNotify(ctx, l.dsn)
		if err != nil {
			return fmt.Errorf("connect listener: %w", err)
		}
		l.conn = conn
	}
	if _, err := l.conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	if l.logger != nil {
		l.logger.Debug("listening for row changes", slog.String("channel", l.channel))
	}
	return nil
}

// WaitForNotification blocks until the next payload arrives or ctx ends.
func (l *Listener) WaitForNotification(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	conn := l.conn
	closed := l.closed
	l.mu.Unlock()

	if closed {
		return nil, ErrListenerClosed
	}
	if conn == nil {
		return nil, errors.New("listener is not connected")
	}
	n, err := conn.WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(n.Payload), nil
}

// Close terminates the connection. It is safe to call more than once.
func (l *Listener) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.conn == nil {
		return nil
	}
	return l.conn.Close(ctx)
}
