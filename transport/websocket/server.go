package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rocketscienceinc/gomoku-backend/internal/dispatcher"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

const shutdownTimeout = 5 * time.Second

type connDispatcher interface {
	Serve(ctx context.Context, transport dispatcher.Transport)
}

type Server struct {
	logger         *slog.Logger
	dispatcher     connDispatcher
	maxMessageSize int64
	upgrader       gorilla.Upgrader
}

func New(logger *slog.Logger, dispatcher connDispatcher, maxMessageSize uint32) *Server {
	if maxMessageSize == 0 {
		maxMessageSize = protocol.DefaultMaxFrameSize
	}

	return &Server{
		logger:         logger,
		dispatcher:     dispatcher,
		maxMessageSize: int64(maxMessageSize),
		upgrader: gorilla.Upgrader{
			// presentation clients are served from other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler serves the game protocol on /ws. Connections live until ctx is canceled.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and hands it to the dispatcher.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket", "remote", req.RemoteAddr)

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	ws.SetReadLimit(that.maxMessageSize)

	log.Info("WebSocket connection established")

	that.dispatcher.Serve(ctx, newConn(ws))
}
