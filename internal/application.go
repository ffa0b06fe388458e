package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/gomoku-backend/internal/config"
	"github.com/rocketscienceinc/gomoku-backend/internal/dispatcher"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository/storage"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
	"github.com/rocketscienceinc/gomoku-backend/transport/rest"
	"github.com/rocketscienceinc/gomoku-backend/transport/tcp"
	"github.com/rocketscienceinc/gomoku-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	leaderboardRepo, matchRepo, closeStorage, err := newRepositories(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeStorage()

	roomManager := usecase.NewRoomManager(logger, leaderboardRepo, matchRepo, usecase.Options{
		MaxNameLength: conf.Game.MaxNameLength,
		MaxChatLength: conf.Game.MaxChatLength,
		AutoStart:     conf.Game.AutoStart,
	})

	connDispatcher := dispatcher.New(logger, roomManager, dispatcher.Options{
		IdleTimeout:   conf.Game.IdleTimeout,
		SendQueueSize: conf.Game.SendQueueSize,
	})

	// run TCP game server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.TCPPort)
		tcpServer := tcp.New(logger, connDispatcher, conf.Game.MaxMessageSize)
		if tcpErr := tcpServer.Start(ctx, conf.TCPPort); tcpErr != nil {
			log.Error("TCP server error", "error", tcpErr)
			tcpErrCh <- tcpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.WSPort)
		wsServer := websocket.New(logger, connDispatcher, conf.Game.MaxMessageSize)
		if wsErr := wsServer.Start(ctx, conf.WSPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		httpServer := rest.New(logger, leaderboardRepo, matchRepo, roomManager)
		if httpErr := httpServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-tcpErrCh:
		return fmt.Errorf("TCP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newRepositories builds the leaderboard and match log for the configured
// backend. Redis keys are cleared so standings live only as long as the process.
func newRepositories(ctx context.Context, log *slog.Logger, conf *config.Config) (
	repository.LeaderboardRepository, repository.MatchRepository, func(), error,
) {
	if conf.Storage.Backend == config.BackendMemory {
		log.Info("Using in-memory storage")

		return repository.NewMemoryLeaderboard(), repository.NewMemoryMatchRepository(conf.Game.RecentMatches), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeStorage := func() {
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	leaderboardRepo := repository.NewLeaderboardRepository(redisStorage)
	matchRepo := repository.NewMatchRepository(redisStorage, conf.Game.RecentMatches)

	if err = leaderboardRepo.Reset(ctx); err != nil {
		closeStorage()
		return nil, nil, nil, fmt.Errorf("could not reset leaderboard: %w", err)
	}

	if err = matchRepo.Reset(ctx); err != nil {
		closeStorage()
		return nil, nil, nil, fmt.Errorf("could not reset matches: %w", err)
	}

	log.Info("Using redis storage", "addr", redisAddrString)

	return leaderboardRepo, matchRepo, closeStorage, nil
}
