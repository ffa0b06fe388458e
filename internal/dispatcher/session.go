package dispatcher

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

const writeTimeout = 10 * time.Second

var (
	ErrSessionClosed = errors.New("session closed")
	ErrQueueFull     = errors.New("outbound queue full")
)

// Session is one client connection. Outbound messages are queued and written
// by a dedicated goroutine so a slow peer never blocks a room broadcast.
type Session struct {
	logger    *slog.Logger
	transport Transport

	mu       sync.Mutex
	outbound chan protocol.Message
	closed   bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	// bound identity, owned by the read loop
	roomID string
	player string
}

func newSession(logger *slog.Logger, transport Transport, queueSize int) *Session {
	return &Session{
		logger:    logger,
		transport: transport,
		outbound:  make(chan protocol.Message, queueSize),
		done:      make(chan struct{}),
	}
}

// Send queues msg without blocking.
func (that *Session) Send(msg protocol.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return ErrSessionClosed
	}

	select {
	case that.outbound <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the session immediately, discarding queued messages.
func (that *Session) Close() error {
	that.closeQueue()

	that.closeOnce.Do(func() {
		that.closeErr = that.transport.Close()
	})

	return that.closeErr
}

// finish flushes queued messages and then closes the connection.
func (that *Session) finish() {
	that.closeQueue()
	<-that.done
	_ = that.Close()
}

func (that *Session) closeQueue() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.outbound)
}

func (that *Session) writeLoop() {
	defer close(that.done)

	for msg := range that.outbound {
		if err := that.transport.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			that.logger.Debug("failed to set write deadline", "error", err)
		}

		if err := that.transport.WriteMessage(msg); err != nil {
			that.logger.Warn("failed to write message", "type", msg.Type(), "error", err)
			_ = that.Close()

			// drain until Close has closed the queue
			for range that.outbound {
			}

			return
		}
	}
}

func (that *Session) bind(roomID, player string) {
	that.roomID = roomID
	that.player = player
}

func (that *Session) bound() bool {
	return that.roomID != ""
}
