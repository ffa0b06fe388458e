package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type leaderboardReader interface {
	Snapshot(ctx context.Context) ([]entity.Standing, error)
}

type matchReader interface {
	Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error)
}

type roomCounter interface {
	RoomCount() int
}

type Server struct {
	logger      *slog.Logger
	leaderboard leaderboardReader
	matches     matchReader
	rooms       roomCounter
}

func New(logger *slog.Logger, leaderboard leaderboardReader, matches matchReader, rooms roomCounter) *Server {
	return &Server{
		logger:      logger,
		leaderboard: leaderboard,
		matches:     matches,
		rooms:       rooms,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.pingHandler)
	mux.HandleFunc("GET /leaderboard", that.leaderboardHandler)
	mux.HandleFunc("GET /matches", that.matchesHandler)
	mux.HandleFunc("GET /stats", that.statsHandler)

	return mux
}

// Start - starts HTTP server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down http server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
