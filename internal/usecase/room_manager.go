package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

const roomIDLength = 8

// Sender is the outbound half of a client connection. Send must not block;
// an error means the message was not queued and the peer is gone.
type Sender interface {
	Send(msg protocol.Message) error
	Close() error
}

type leaderboardRepo interface {
	RecordWin(ctx context.Context, player string) error
	Snapshot(ctx context.Context) ([]entity.Standing, error)
}

type matchRepo interface {
	Save(ctx context.Context, result *entity.MatchResult) error
}

type Options struct {
	MaxNameLength int
	MaxChatLength int
	AutoStart     bool
}

// roomSlot guards one room together with the connections of its players.
type roomSlot struct {
	mu    sync.Mutex
	room  *entity.Room
	conns map[string]Sender

	// removed is set once the room has left the registry.
	removed bool
}

// peer is a connection whose send failed and which must be dropped once the
// room lock is released.
type peer struct {
	roomID string
	name   string
	conn   Sender
}

type RoomManager struct {
	logger      *slog.Logger
	leaderboard leaderboardRepo
	matches     matchRepo
	opts        Options

	mu    sync.RWMutex
	rooms map[string]*roomSlot

	now   func() time.Time
	newID func() string
}

func NewRoomManager(logger *slog.Logger, leaderboard leaderboardRepo, matches matchRepo, opts Options) *RoomManager {
	return &RoomManager{
		logger:      logger,
		leaderboard: leaderboard,
		matches:     matches,
		opts:        opts,

		rooms: make(map[string]*roomSlot),
		now:   time.Now,
		newID: func() string { return uuid.NewString()[:roomIDLength] },
	}
}

// RoomCount returns the number of live rooms.
func (that *RoomManager) RoomCount() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

// CreateRoom opens a room owned by name and binds conn to it.
func (that *RoomManager) CreateRoom(ctx context.Context, name string, conn Sender) (string, entity.Player, error) {
	log := that.logger.With("method", "CreateRoom", "player", name)

	if !entity.ValidName(name, that.opts.MaxNameLength) {
		return "", entity.Player{}, apperror.ErrInvalidPlayerName
	}

	slot := &roomSlot{conns: map[string]Sender{name: conn}}
	slot.mu.Lock()

	that.mu.Lock()
	roomID := that.newID()
	for that.rooms[roomID] != nil {
		roomID = that.newID()
	}
	slot.room = entity.NewRoom(roomID, name, that.now())
	that.rooms[roomID] = slot
	that.mu.Unlock()

	player := *slot.room.Players[0]

	var dropped []peer
	slot.send(name, protocol.RoomCreated{
		RoomID:     roomID,
		PlayerName: name,
		Symbol:     string(player.Symbol),
	}, &dropped)
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	log.Info("room created", "roomID", roomID)

	return roomID, player, nil
}

// JoinRoom seats name in roomID with the requested symbol and binds conn to it.
func (that *RoomManager) JoinRoom(ctx context.Context, roomID, name, symbol string, conn Sender) (entity.Player, error) {
	log := that.logger.With("method", "JoinRoom", "roomID", roomID, "player", name)

	if !entity.ValidName(name, that.opts.MaxNameLength) {
		return entity.Player{}, apperror.ErrInvalidPlayerName
	}

	slot, err := that.lock(roomID)
	if err != nil {
		return entity.Player{}, err
	}

	joined, err := slot.room.Join(name, entity.Symbol(symbol))
	if err != nil {
		slot.mu.Unlock()
		return entity.Player{}, err
	}

	player := *joined
	slot.conns[name] = conn

	var dropped []peer
	slot.send(name, snapshot(slot.room, name), &dropped)
	for _, member := range slot.room.Players {
		slot.send(member.Name, protocol.PlayerJoined{
			Player:      name,
			CurrentTurn: slot.room.Turn,
			Symbol:      symbol,
			IsMyTurn:    slot.room.Turn == member.Name,
		}, &dropped)
	}

	if that.opts.AutoStart && len(slot.room.Players) == entity.MaxPlayers {
		slot.room.Start()
		slot.broadcastSnapshot(&dropped)
		log.Info("game started")
	}
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	log.Info("player joined", "symbol", symbol)

	return player, nil
}

// MarkReady records that name is ready. The second ready player starts the game.
func (that *RoomManager) MarkReady(ctx context.Context, roomID, name string) error {
	log := that.logger.With("method", "MarkReady", "roomID", roomID, "player", name)

	slot, err := that.lock(roomID)
	if err != nil {
		return err
	}

	started, err := slot.room.MarkReady(name)
	if err != nil {
		slot.mu.Unlock()
		return err
	}

	var dropped []peer
	slot.broadcastSnapshot(&dropped)
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	if started {
		log.Info("game started")
	}

	return nil
}

// ApplyMove places the symbol of name at (x, y) and broadcasts the result.
// A winning move is recorded on the leaderboard and in the match log.
func (that *RoomManager) ApplyMove(ctx context.Context, roomID, name string, x, y int) (*entity.MoveOutcome, error) {
	log := that.logger.With("method", "ApplyMove", "roomID", roomID, "player", name)

	slot, err := that.lock(roomID)
	if err != nil {
		return nil, err
	}

	outcome, err := slot.room.ApplyMove(name, x, y)
	if err != nil {
		slot.mu.Unlock()

		if errors.Is(err, apperror.ErrInvariantViolation) {
			log.Error("room state is inconsistent", "error", err)
		}

		return nil, err
	}

	var dropped []peer
	for _, member := range slot.room.Players {
		slot.send(member.Name, protocol.MoveMade{
			BoardState:       snapshot(slot.room, member.Name),
			Player:           name,
			X:                x,
			Y:                y,
			Symbol:           string(outcome.Symbol),
			IsWin:            outcome.IsWin,
			WinningPositions: outcome.WinningRun,
		}, &dropped)
	}

	if outcome.IsWin {
		log.Info("game won", "moves", slot.room.Moves)

		that.recordWin(ctx, log, slot.room)

		update, err := that.Leaderboard(ctx)
		if err != nil {
			log.Error("failed to read leaderboard", "error", err)
		} else {
			for _, member := range slot.room.Players {
				slot.send(member.Name, update, &dropped)
			}
		}
	}
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	return outcome, nil
}

// Restart returns a finished room to the lobby. Both players must ready up again.
func (that *RoomManager) Restart(ctx context.Context, roomID, name string) error {
	log := that.logger.With("method", "Restart", "roomID", roomID, "player", name)

	slot, err := that.lock(roomID)
	if err != nil {
		return err
	}

	if slot.room.Player(name) == nil {
		slot.mu.Unlock()
		return apperror.ErrNotInRoom
	}

	if err = slot.room.Restart(); err != nil {
		slot.mu.Unlock()
		return err
	}

	var dropped []peer
	slot.broadcastSnapshot(&dropped)
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	log.Info("room restarted")

	return nil
}

// Chat relays text from name to everyone in the room, the sender included.
func (that *RoomManager) Chat(ctx context.Context, roomID, name, text string) error {
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > that.opts.MaxChatLength {
		return apperror.ErrInvalidChatMessage
	}

	slot, err := that.lock(roomID)
	if err != nil {
		return err
	}

	if slot.room.Player(name) == nil {
		slot.mu.Unlock()
		return apperror.ErrNotInRoom
	}

	var dropped []peer
	for _, member := range slot.room.Players {
		slot.send(member.Name, protocol.Chat{PlayerName: name, Message: text}, &dropped)
	}
	slot.mu.Unlock()

	that.drop(ctx, dropped)

	return nil
}

// Leaderboard returns the current standings as a wire message.
func (that *RoomManager) Leaderboard(ctx context.Context) (protocol.LeaderboardUpdate, error) {
	standings, err := that.leaderboard.Snapshot(ctx)
	if err != nil {
		return protocol.LeaderboardUpdate{}, fmt.Errorf("failed to get standings: %w", err)
	}

	wins := make(map[string]int, len(standings))
	for _, standing := range standings {
		wins[standing.Player] = standing.Wins
	}

	return protocol.LeaderboardUpdate{Leaderboard: wins, Standings: standings}, nil
}

// Disconnect removes name from roomID if conn still owns that seat. It is
// safe to call more than once and after the room is gone.
func (that *RoomManager) Disconnect(ctx context.Context, roomID, name string, conn Sender) {
	that.drop(ctx, that.disconnect(ctx, roomID, name, conn))
}

func (that *RoomManager) disconnect(ctx context.Context, roomID, name string, conn Sender) []peer {
	log := that.logger.With("method", "Disconnect", "roomID", roomID, "player", name)

	slot, err := that.lock(roomID)
	if err != nil {
		return nil
	}
	defer slot.mu.Unlock()

	if owner, ok := slot.conns[name]; !ok || owner != conn {
		return nil
	}
	delete(slot.conns, name)

	interrupted, err := slot.room.RemovePlayer(name)
	if err != nil {
		log.Warn("player already left", "error", err)
		return nil
	}

	if slot.room.IsEmpty() {
		slot.removed = true

		that.mu.Lock()
		delete(that.rooms, roomID)
		that.mu.Unlock()

		log.Info("room deleted")

		return nil
	}

	var dropped []peer
	for _, member := range slot.room.Players {
		slot.send(member.Name, protocol.PlayerDisconnected{Player: name}, &dropped)
	}

	if interrupted {
		for _, member := range slot.room.Players {
			slot.send(member.Name, protocol.GameInterrupted{
				Message: fmt.Sprintf("%s left the game", name),
			}, &dropped)
		}

		that.saveMatch(ctx, log, slot.room)
		log.Info("game interrupted")
	}

	log.Info("player left")

	return dropped
}

// drop closes connections whose sends failed and runs their disconnect,
// which may in turn surface further failed peers.
func (that *RoomManager) drop(ctx context.Context, peers []peer) {
	for len(peers) > 0 {
		next := peers[0]
		peers = peers[1:]

		that.logger.Warn("dropping unreachable player", "roomID", next.roomID, "player", next.name)

		_ = next.conn.Close()
		peers = append(peers, that.disconnect(ctx, next.roomID, next.name, next.conn)...)
	}
}

// lock returns the slot of roomID with its mutex held.
func (that *RoomManager) lock(roomID string) (*roomSlot, error) {
	that.mu.RLock()
	slot, ok := that.rooms[roomID]
	that.mu.RUnlock()

	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	slot.mu.Lock()
	if slot.removed {
		slot.mu.Unlock()
		return nil, apperror.ErrRoomNotFound
	}

	return slot, nil
}

func (that *RoomManager) recordWin(ctx context.Context, log *slog.Logger, room *entity.Room) {
	if err := that.leaderboard.RecordWin(ctx, room.Winner); err != nil {
		log.Error("failed to record win", "error", err)
	}

	that.saveMatch(ctx, log, room)
}

func (that *RoomManager) saveMatch(ctx context.Context, log *slog.Logger, room *entity.Room) {
	result := &entity.MatchResult{
		RoomID:      room.ID,
		Players:     append([]string(nil), room.Order...),
		Winner:      room.Winner,
		Interrupted: room.Interrupted,
		Moves:       room.Moves,
		FinishedAt:  that.now(),
	}

	if err := that.matches.Save(ctx, result); err != nil {
		log.Error("failed to save match", "error", err)
	}
}

// send queues msg for name. A failed send marks the peer for dropping.
func (that *roomSlot) send(name string, msg protocol.Message, dropped *[]peer) {
	conn, ok := that.conns[name]
	if !ok {
		return
	}

	for _, known := range *dropped {
		if known.conn == conn {
			return
		}
	}

	if err := conn.Send(msg); err != nil {
		*dropped = append(*dropped, peer{roomID: that.room.ID, name: name, conn: conn})
	}
}

func (that *roomSlot) broadcastSnapshot(dropped *[]peer) {
	for _, member := range that.room.Players {
		that.send(member.Name, snapshot(that.room, member.Name), dropped)
	}
}

// snapshot renders room as seen by recipient.
func snapshot(room *entity.Room, recipient string) protocol.BoardState {
	players := make([]protocol.PlayerInfo, 0, len(room.Players))
	for _, player := range room.Players {
		players = append(players, protocol.PlayerInfo{
			Name:   player.Name,
			Symbol: string(player.Symbol),
			Ready:  room.Ready[player.Name],
		})
	}

	var winner *string
	if room.Winner != "" {
		name := room.Winner
		winner = &name
	}

	var lastMove *entity.Coord
	if room.LastMove != nil {
		move := *room.LastMove
		lastMove = &move
	}

	return protocol.BoardState{
		RoomID:      room.ID,
		Status:      room.Status,
		Players:     players,
		Board:       room.Board.Cells(),
		CurrentTurn: room.Turn,
		IsMyTurn:    room.Turn != "" && room.Turn == recipient,
		IsGameOver:  room.IsFinished(),
		Winner:      winner,
		LastMove:    lastMove,
	}
}
