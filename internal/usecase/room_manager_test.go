package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	mu     sync.Mutex
	msgs   []protocol.Message
	fail   bool
	closed bool
}

func (that *fakeConn) Send(msg protocol.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.fail || that.closed {
		return errConnClosed
	}

	that.msgs = append(that.msgs, msg)

	return nil
}

func (that *fakeConn) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true

	return nil
}

func (that *fakeConn) ofType(kind protocol.Type) []protocol.Message {
	that.mu.Lock()
	defer that.mu.Unlock()

	var out []protocol.Message
	for _, msg := range that.msgs {
		if msg.Type() == kind {
			out = append(out, msg)
		}
	}

	return out
}

func (that *fakeConn) last(kind protocol.Type) protocol.Message {
	msgs := that.ofType(kind)
	if len(msgs) == 0 {
		return nil
	}

	return msgs[len(msgs)-1]
}

type fixture struct {
	manager     *RoomManager
	leaderboard repository.LeaderboardRepository
	matches     repository.MatchRepository
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	if opts.MaxNameLength == 0 {
		opts.MaxNameLength = 20
	}
	if opts.MaxChatLength == 0 {
		opts.MaxChatLength = 500
	}

	leaderboard := repository.NewMemoryLeaderboard()
	matches := repository.NewMemoryMatchRepository(10)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		manager:     NewRoomManager(logger, leaderboard, matches, opts),
		leaderboard: leaderboard,
		matches:     matches,
	}
}

// playingRoom seats alice (X) and bob (O) and starts the game.
func (that *fixture) playingRoom(t *testing.T) (string, *fakeConn, *fakeConn) {
	t.Helper()

	ctx := context.Background()
	alice, bob := &fakeConn{}, &fakeConn{}

	roomID, _, err := that.manager.CreateRoom(ctx, "alice", alice)
	require.NoError(t, err)
	_, err = that.manager.JoinRoom(ctx, roomID, "bob", "O", bob)
	require.NoError(t, err)
	require.NoError(t, that.manager.MarkReady(ctx, roomID, "alice"))
	require.NoError(t, that.manager.MarkReady(ctx, roomID, "bob"))

	return roomID, alice, bob
}

func TestRoomManager_Scenario(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	alice, bob := &fakeConn{}, &fakeConn{}

	// Given: alice creates a room
	roomID, player, err := fx.manager.CreateRoom(ctx, "alice", alice)
	require.NoError(t, err)
	assert.Len(t, roomID, roomIDLength)
	assert.Equal(t, entity.SymbolX, player.Symbol)
	assert.Equal(t, protocol.RoomCreated{RoomID: roomID, PlayerName: "alice", Symbol: "X"}, alice.last(protocol.TypeRoomCreated))

	// When: bob joins with O
	_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", bob)
	require.NoError(t, err)

	// Then: both see alice as the turn holder
	state, ok := bob.last(protocol.TypeBoardState).(protocol.BoardState)
	require.True(t, ok)
	assert.Equal(t, "alice", state.CurrentTurn)
	assert.False(t, state.IsMyTurn)
	assert.Len(t, state.Players, 2)

	assert.Equal(t, protocol.PlayerJoined{Player: "bob", CurrentTurn: "alice", Symbol: "O", IsMyTurn: true}, alice.last(protocol.TypePlayerJoined))
	assert.Equal(t, protocol.PlayerJoined{Player: "bob", CurrentTurn: "alice", Symbol: "O", IsMyTurn: false}, bob.last(protocol.TypePlayerJoined))

	// When: the game starts and alice takes (0,0)
	require.NoError(t, fx.manager.MarkReady(ctx, roomID, "alice"))
	require.NoError(t, fx.manager.MarkReady(ctx, roomID, "bob"))
	_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)
	require.NoError(t, err)

	// Then: bob cannot take the same cell
	_, err = fx.manager.ApplyMove(ctx, roomID, "bob", 0, 0)
	require.ErrorIs(t, err, apperror.ErrCellOccupied)
	reason, ok := apperror.Reason(err)
	require.True(t, ok)
	assert.Equal(t, "position already taken", reason)

	// When: bob moves elsewhere
	_, err = fx.manager.ApplyMove(ctx, roomID, "bob", 1, 1)
	require.NoError(t, err)

	// Then: the turn returns to alice on both sides
	for _, conn := range []*fakeConn{alice, bob} {
		made, ok := conn.last(protocol.TypeMoveMade).(protocol.MoveMade)
		require.True(t, ok)
		assert.Equal(t, "alice", made.CurrentTurn)
		assert.Equal(t, map[string]string{"0,0": "X", "1,1": "O"}, made.Board)
		assert.False(t, made.IsWin)
	}
}

func TestRoomManager_CreateRoom_InvalidName(t *testing.T) {
	fx := newFixture(t, Options{})

	for _, name := range []string{"", "   ", "abcdefghijklmnopqrstu"} {
		_, _, err := fx.manager.CreateRoom(context.Background(), name, &fakeConn{})

		require.ErrorIs(t, err, apperror.ErrInvalidPlayerName)
	}

	assert.Zero(t, fx.manager.RoomCount())
}

func TestRoomManager_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown room", func(t *testing.T) {
		fx := newFixture(t, Options{})

		_, err := fx.manager.JoinRoom(ctx, "missing", "bob", "O", &fakeConn{})

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Symbol taken leaves the roster untouched", func(t *testing.T) {
		// Given: alice holds X
		fx := newFixture(t, Options{})
		alice := &fakeConn{}
		roomID, _, err := fx.manager.CreateRoom(ctx, "alice", alice)
		require.NoError(t, err)

		// When: bob asks for X
		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "X", &fakeConn{})

		// Then: the join fails and nobody is told about bob
		require.ErrorIs(t, err, apperror.ErrSymbolTaken)
		assert.Empty(t, alice.ofType(protocol.TypePlayerJoined))

		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", &fakeConn{})
		require.NoError(t, err)
	})

	t.Run("Third player is refused", func(t *testing.T) {
		fx := newFixture(t, Options{})
		roomID, _, _ := fx.playingRoom(t)

		_, err := fx.manager.JoinRoom(ctx, roomID, "carol", "O", &fakeConn{})

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Auto start begins on the second join", func(t *testing.T) {
		fx := newFixture(t, Options{AutoStart: true})
		alice, bob := &fakeConn{}, &fakeConn{}
		roomID, _, err := fx.manager.CreateRoom(ctx, "alice", alice)
		require.NoError(t, err)

		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", bob)
		require.NoError(t, err)

		state, ok := alice.last(protocol.TypeBoardState).(protocol.BoardState)
		require.True(t, ok)
		assert.Equal(t, entity.StatusPlaying, state.Status)
		assert.True(t, state.IsMyTurn)

		_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 3, -3)
		require.NoError(t, err)
	})
}

func TestRoomManager_MoveBeforeReady(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, _, err := fx.manager.CreateRoom(ctx, "alice", &fakeConn{})
	require.NoError(t, err)
	_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", &fakeConn{})
	require.NoError(t, err)
	require.NoError(t, fx.manager.MarkReady(ctx, roomID, "alice"))

	_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)

	require.ErrorIs(t, err, apperror.ErrGameNotStarted)
}

func TestRoomManager_AlternatingTurns(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, _, _ := fx.playingRoom(t)

	// Given: a sequence of moves that never lines up five
	players := []string{"alice", "bob"}
	for i := 0; i < 20; i++ {
		current := players[i%2]
		other := players[(i+1)%2]

		// Then: the waiting player is always refused
		_, err := fx.manager.ApplyMove(ctx, roomID, other, 100+i, 100)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		// When: the turn holder plays a fresh cell
		x, y := i/2*3, i%2*7
		outcome, err := fx.manager.ApplyMove(ctx, roomID, current, x, y)
		require.NoError(t, err)
		require.False(t, outcome.IsWin)

		// Then: replaying the same cell is never allowed
		_, err = fx.manager.ApplyMove(ctx, roomID, other, x, y)
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	}
}

func TestRoomManager_Win(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, alice, bob := fx.playingRoom(t)

	// Given: alice lines up four on row 0 while bob plays row 1
	for x := 0; x < 4; x++ {
		_, err := fx.manager.ApplyMove(ctx, roomID, "alice", x, 0)
		require.NoError(t, err)
		_, err = fx.manager.ApplyMove(ctx, roomID, "bob", x, 1)
		require.NoError(t, err)
	}

	// When: alice completes the row
	outcome, err := fx.manager.ApplyMove(ctx, roomID, "alice", 4, 0)

	// Then: the win is reported with its run
	require.NoError(t, err)
	require.True(t, outcome.IsWin)
	assert.Len(t, outcome.WinningRun, entity.WinLength)

	made, ok := bob.last(protocol.TypeMoveMade).(protocol.MoveMade)
	require.True(t, ok)
	assert.True(t, made.IsGameOver)
	require.NotNil(t, made.Winner)
	assert.Equal(t, "alice", *made.Winner)
	assert.False(t, made.IsDraw)

	// Then: standings went out to both players and were stored
	want := protocol.LeaderboardUpdate{
		Leaderboard: map[string]int{"alice": 1},
		Standings:   []entity.Standing{{Player: "alice", Wins: 1}},
	}
	assert.Equal(t, want, alice.last(protocol.TypeLeaderboardUpdate))
	assert.Equal(t, want, bob.last(protocol.TypeLeaderboardUpdate))

	results, err := fx.matches.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Winner)
	assert.Equal(t, 9, results[0].Moves)

	// Then: the finished game accepts no more moves
	_, err = fx.manager.ApplyMove(ctx, roomID, "bob", 10, 10)
	require.ErrorIs(t, err, apperror.ErrGameFinished)
}

func TestRoomManager_Restart(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, alice, _ := fx.playingRoom(t)

	// Given: a running game cannot be restarted
	require.ErrorIs(t, fx.manager.Restart(ctx, roomID, "alice"), apperror.ErrGameNotFinished)

	for x := 0; x < 4; x++ {
		_, err := fx.manager.ApplyMove(ctx, roomID, "alice", 0, x)
		require.NoError(t, err)
		_, err = fx.manager.ApplyMove(ctx, roomID, "bob", 1, x)
		require.NoError(t, err)
	}
	_, err := fx.manager.ApplyMove(ctx, roomID, "alice", 0, 4)
	require.NoError(t, err)

	// When: alice restarts the finished game
	require.NoError(t, fx.manager.Restart(ctx, roomID, "alice"))

	// Then: the board is clear and both must ready up again
	state, ok := alice.last(protocol.TypeBoardState).(protocol.BoardState)
	require.True(t, ok)
	assert.Equal(t, entity.StatusReady, state.Status)
	assert.Empty(t, state.Board)
	assert.Nil(t, state.Winner)

	_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)
	require.ErrorIs(t, err, apperror.ErrGameNotStarted)

	require.NoError(t, fx.manager.MarkReady(ctx, roomID, "alice"))
	require.NoError(t, fx.manager.MarkReady(ctx, roomID, "bob"))
	_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)
	require.NoError(t, err)
}

func TestRoomManager_Disconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("Interrupts a running game", func(t *testing.T) {
		// Given: a game in progress
		fx := newFixture(t, Options{})
		roomID, alice, bob := fx.playingRoom(t)
		_, err := fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)
		require.NoError(t, err)

		// When: bob drops
		fx.manager.Disconnect(ctx, roomID, "bob", bob)
		fx.manager.Disconnect(ctx, roomID, "bob", bob)

		// Then: alice is told exactly once
		assert.Equal(t, []protocol.Message{protocol.PlayerDisconnected{Player: "bob"}}, alice.ofType(protocol.TypePlayerDisconnected))
		assert.Equal(t, []protocol.Message{protocol.GameInterrupted{Message: "bob left the game"}}, alice.ofType(protocol.TypeGameInterrupted))

		// Then: the game is over without a winner and nobody scored
		_, err = fx.manager.ApplyMove(ctx, roomID, "alice", 1, 0)
		require.ErrorIs(t, err, apperror.ErrGameFinished)

		standings, err := fx.leaderboard.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, standings)

		results, err := fx.matches.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Interrupted)
		assert.Empty(t, results[0].Winner)
	})

	t.Run("Last player out deletes the room", func(t *testing.T) {
		fx := newFixture(t, Options{})
		roomID, alice, bob := fx.playingRoom(t)

		fx.manager.Disconnect(ctx, roomID, "bob", bob)
		fx.manager.Disconnect(ctx, roomID, "alice", alice)

		assert.Zero(t, fx.manager.RoomCount())
		_, err := fx.manager.JoinRoom(ctx, roomID, "carol", "O", &fakeConn{})
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Lobby departure is not an interruption", func(t *testing.T) {
		fx := newFixture(t, Options{})
		alice, bob := &fakeConn{}, &fakeConn{}
		roomID, _, err := fx.manager.CreateRoom(ctx, "alice", alice)
		require.NoError(t, err)
		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", bob)
		require.NoError(t, err)

		fx.manager.Disconnect(ctx, roomID, "bob", bob)

		assert.Len(t, alice.ofType(protocol.TypePlayerDisconnected), 1)
		assert.Empty(t, alice.ofType(protocol.TypeGameInterrupted))

		_, err = fx.manager.JoinRoom(ctx, roomID, "carol", "O", &fakeConn{})
		require.NoError(t, err)
	})

	t.Run("Stale connection cannot evict a new seat holder", func(t *testing.T) {
		// Given: bob left and a new bob took the seat
		fx := newFixture(t, Options{})
		alice, oldBob, newBob := &fakeConn{}, &fakeConn{}, &fakeConn{}
		roomID, _, err := fx.manager.CreateRoom(ctx, "alice", alice)
		require.NoError(t, err)
		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", oldBob)
		require.NoError(t, err)
		fx.manager.Disconnect(ctx, roomID, "bob", oldBob)
		_, err = fx.manager.JoinRoom(ctx, roomID, "bob", "O", newBob)
		require.NoError(t, err)

		// When: the old connection reports its disconnect again
		fx.manager.Disconnect(ctx, roomID, "bob", oldBob)

		// Then: the new bob is still seated
		_, err = fx.manager.JoinRoom(ctx, roomID, "carol", "O", &fakeConn{})
		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})
}

func TestRoomManager_FailedSendDropsPlayer(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, alice, bob := fx.playingRoom(t)

	// Given: bob's connection stops accepting messages
	bob.mu.Lock()
	bob.fail = true
	bob.mu.Unlock()

	// When: alice moves and the broadcast reaches bob
	_, err := fx.manager.ApplyMove(ctx, roomID, "alice", 0, 0)

	// Then: alice's move stands, bob is closed and removed
	require.NoError(t, err)
	assert.Len(t, alice.ofType(protocol.TypeMoveMade), 1)
	assert.True(t, bob.closed)
	assert.Len(t, alice.ofType(protocol.TypePlayerDisconnected), 1)
	assert.Len(t, alice.ofType(protocol.TypeGameInterrupted), 1)
}

func TestRoomManager_ConcurrentMoves(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	roomID, _, _ := fx.playingRoom(t)

	// Given: many simultaneous attempts by the turn holder on one cell
	const attempts = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		refusals  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := fx.manager.ApplyMove(ctx, roomID, "alice", 7, 7)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrNotYourTurn), errors.Is(err, apperror.ErrCellOccupied):
				refusals++
			}
		}()
	}
	wg.Wait()

	// Then: exactly one placement wins the race
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, refusals)
}

func TestRoomManager_Chat(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{MaxChatLength: 5})
	roomID, alice, bob := fx.playingRoom(t)

	require.NoError(t, fx.manager.Chat(ctx, roomID, "bob", "gl hf"))

	want := []protocol.Message{protocol.Chat{PlayerName: "bob", Message: "gl hf"}}
	assert.Equal(t, want, alice.ofType(protocol.TypeChat))
	assert.Equal(t, want, bob.ofType(protocol.TypeChat))

	require.ErrorIs(t, fx.manager.Chat(ctx, roomID, "bob", "too long"), apperror.ErrInvalidChatMessage)
	require.ErrorIs(t, fx.manager.Chat(ctx, roomID, "bob", "  "), apperror.ErrInvalidChatMessage)
	require.ErrorIs(t, fx.manager.Chat(ctx, roomID, "carol", "hi"), apperror.ErrNotInRoom)
}

func TestRoomManager_IndependentRooms(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})
	first, _, _ := fx.playingRoom(t)
	second, _, _ := fx.playingRoom(t)

	require.NotEqual(t, first, second)
	assert.Equal(t, 2, fx.manager.RoomCount())

	_, err := fx.manager.ApplyMove(ctx, first, "alice", 0, 0)
	require.NoError(t, err)
	_, err = fx.manager.ApplyMove(ctx, second, "alice", 0, 0)
	require.NoError(t, err)
}

func TestRoomManager_RoomIDCollision(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})

	ids := []string{"aaaa1111", "aaaa1111", "bbbb2222"}
	fx.manager.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, _, err := fx.manager.CreateRoom(ctx, "alice", &fakeConn{})
	require.NoError(t, err)
	second, _, err := fx.manager.CreateRoom(ctx, "bob", &fakeConn{})
	require.NoError(t, err)

	assert.Equal(t, "aaaa1111", first)
	assert.Equal(t, "bbbb2222", second)
}
