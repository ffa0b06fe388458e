package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/rocketscienceinc/gomoku-backend/internal/dispatcher"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

type connDispatcher interface {
	Serve(ctx context.Context, transport dispatcher.Transport)
}

// Server accepts game clients speaking the length-prefixed protocol.
type Server struct {
	logger         *slog.Logger
	dispatcher     connDispatcher
	maxMessageSize uint32
}

// New builds a server. A zero maxMessageSize selects protocol.DefaultMaxFrameSize.
func New(logger *slog.Logger, dispatcher connDispatcher, maxMessageSize uint32) *Server {
	if maxMessageSize == 0 {
		maxMessageSize = protocol.DefaultMaxFrameSize
	}

	return &Server{
		logger:         logger,
		dispatcher:     dispatcher,
		maxMessageSize: maxMessageSize,
	}
}

// Start - listens on port until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts connections from listener and runs one dispatcher loop per
// connection. It returns once ctx is canceled and every connection has ended.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve", "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("listener closed")
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Warn("temporary accept failure", "error", err)
				continue
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			that.dispatcher.Serve(ctx, dispatcher.NewStreamTransport(conn, that.maxMessageSize))
		}()
	}
}
