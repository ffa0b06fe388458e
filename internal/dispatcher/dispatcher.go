package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

const (
	reasonMalformed = "invalid message format"
	reasonInternal  = "internal server error"
)

type roomManager interface {
	CreateRoom(ctx context.Context, name string, conn usecase.Sender) (string, entity.Player, error)
	JoinRoom(ctx context.Context, roomID, name, symbol string, conn usecase.Sender) (entity.Player, error)
	MarkReady(ctx context.Context, roomID, name string) error
	ApplyMove(ctx context.Context, roomID, name string, x, y int) (*entity.MoveOutcome, error)
	Restart(ctx context.Context, roomID, name string) error
	Chat(ctx context.Context, roomID, name, text string) error
	Leaderboard(ctx context.Context) (protocol.LeaderboardUpdate, error)
	Disconnect(ctx context.Context, roomID, name string, conn usecase.Sender)
}

type Options struct {
	IdleTimeout   time.Duration
	SendQueueSize int
}

// Dispatcher runs the receive loop of every client connection and routes
// decoded messages to the room manager.
type Dispatcher struct {
	logger  *slog.Logger
	manager roomManager
	opts    Options
}

func New(logger *slog.Logger, manager roomManager, opts Options) *Dispatcher {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 64
	}

	return &Dispatcher{
		logger:  logger,
		manager: manager,
		opts:    opts,
	}
}

// Serve handles one connection until it fails, the peer sends a malformed
// message, or ctx is canceled. Each message is handled to completion before
// the next one is read.
func (that *Dispatcher) Serve(ctx context.Context, transport Transport) {
	log := that.logger.With("method", "Serve", "remote", transport.RemoteAddr())

	session := newSession(log, transport, that.opts.SendQueueSize)
	go session.writeLoop()

	stop := context.AfterFunc(ctx, func() { _ = session.Close() })
	defer stop()

	defer func() {
		if session.bound() {
			that.manager.Disconnect(context.WithoutCancel(ctx), session.roomID, session.player, session)
		}

		session.finish()
		log.Info("connection closed")
	}()

	log.Info("connection opened")

	for {
		if that.opts.IdleTimeout > 0 {
			if err := transport.SetReadDeadline(time.Now().Add(that.opts.IdleTimeout)); err != nil {
				log.Error("failed to set read deadline", "error", err)
				return
			}
		}

		msg, err := transport.ReadMessage()
		if err != nil {
			that.readFailed(log, session, err)
			return
		}

		if err = that.handle(ctx, session, msg); err != nil {
			if !that.report(log, session, msg, err) {
				return
			}
		}
	}
}

func (that *Dispatcher) readFailed(log *slog.Logger, session *Session, err error) {
	var netErr net.Error

	switch {
	case errors.Is(err, apperror.ErrMalformedMessage):
		log.Warn("malformed message, closing connection", "error", err)
		_ = session.Send(protocol.Error{Message: reasonMalformed})
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Debug("peer went away", "error", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Info("idle timeout", "error", err)
	default:
		log.Warn("failed to read message", "error", err)
	}
}

// report sends the failure of msg back to the client. It returns false when
// the connection must be closed.
func (that *Dispatcher) report(log *slog.Logger, session *Session, msg protocol.Message, err error) bool {
	if apperror.IsValidation(err) {
		reason, _ := apperror.Reason(err)
		log.Info("request rejected", "type", msg.Type(), "reason", reason)
		_ = session.Send(protocol.Error{Message: reason})

		return true
	}

	if errors.Is(err, apperror.ErrMalformedMessage) {
		log.Warn("protocol violation, closing connection", "type", msg.Type(), "error", err)
		_ = session.Send(protocol.Error{Message: reasonMalformed})

		return false
	}

	log.Error("failed to handle message", "type", msg.Type(), "error", err)
	_ = session.Send(protocol.Error{Message: reasonInternal})

	return true
}

func (that *Dispatcher) handle(ctx context.Context, session *Session, msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.CreateRoom:
		if session.bound() {
			return apperror.ErrAlreadyInRoom
		}

		roomID, player, err := that.manager.CreateRoom(ctx, m.PlayerName, session)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		session.bind(roomID, player.Name)

	case protocol.JoinRoom:
		if session.bound() {
			return apperror.ErrAlreadyInRoom
		}

		player, err := that.manager.JoinRoom(ctx, m.RoomID, m.PlayerName, m.Symbol, session)
		if err != nil {
			return fmt.Errorf("failed to join room: %w", err)
		}
		session.bind(m.RoomID, player.Name)

	case protocol.MakeMove:
		if err := that.checkIdentity(session, m.RoomID, m.PlayerName); err != nil {
			return err
		}

		if _, err := that.manager.ApplyMove(ctx, session.roomID, session.player, m.X, m.Y); err != nil {
			return fmt.Errorf("failed to make move: %w", err)
		}

	case protocol.Ready:
		if err := that.checkIdentity(session, "", m.PlayerName); err != nil {
			return err
		}

		if err := that.manager.MarkReady(ctx, session.roomID, session.player); err != nil {
			return fmt.Errorf("failed to mark ready: %w", err)
		}

	case protocol.Chat:
		if err := that.checkIdentity(session, "", m.PlayerName); err != nil {
			return err
		}

		if err := that.manager.Chat(ctx, session.roomID, session.player, m.Message); err != nil {
			return fmt.Errorf("failed to relay chat: %w", err)
		}

	case protocol.Restart:
		if err := that.checkIdentity(session, "", m.PlayerName); err != nil {
			return err
		}

		if err := that.manager.Restart(ctx, session.roomID, session.player); err != nil {
			return fmt.Errorf("failed to restart: %w", err)
		}

	case protocol.GetLeaderboard:
		update, err := that.manager.Leaderboard(ctx)
		if err != nil {
			return fmt.Errorf("failed to get leaderboard: %w", err)
		}

		if err = session.Send(update); err != nil {
			return fmt.Errorf("failed to send leaderboard: %w", err)
		}

	case protocol.RoomCreated, protocol.BoardState, protocol.PlayerJoined, protocol.MoveMade,
		protocol.LeaderboardUpdate, protocol.Error, protocol.PlayerDisconnected, protocol.GameInterrupted:
		return fmt.Errorf("%w: %s is sent by the server only", apperror.ErrMalformedMessage, msg.Type())

	default:
		return fmt.Errorf("%w: unhandled %s", apperror.ErrMalformedMessage, msg.Type())
	}

	return nil
}

// checkIdentity requires a bound session whose identity matches the payload.
// An empty roomID is not checked.
func (that *Dispatcher) checkIdentity(session *Session, roomID, player string) error {
	if !session.bound() {
		return apperror.ErrNotInRoom
	}

	if player != session.player || (roomID != "" && roomID != session.roomID) {
		return apperror.ErrIdentityMismatch
	}

	return nil
}
