package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusReady    = "ready"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// MaxPlayers is the roster size of a room.
const MaxPlayers = 2

// Room is one two-player game session. It is not safe for concurrent use.
type Room struct {
	ID        string
	Players   []*Player
	Board     *Board
	Ready     map[string]bool
	Order     []string
	Turn      string
	Status    string
	Winner    string
	LastMove  *Coord
	CreatedAt time.Time

	// Interrupted marks a game finished by a disconnect rather than a win.
	Interrupted bool
	Moves       int
}

// MoveOutcome is the result of a legal move.
type MoveOutcome struct {
	Player     string
	Symbol     Symbol
	At         Coord
	IsWin      bool
	WinningRun []Coord
}

// NewRoom creates a room owned by creator, who plays the first symbol and moves first.
func NewRoom(id, creator string, now time.Time) *Room {
	return &Room{
		ID:        id,
		Players:   []*Player{{Name: creator, Symbol: SymbolX}},
		Board:     NewBoard(),
		Ready:     make(map[string]bool),
		Order:     []string{creator},
		Turn:      creator,
		Status:    StatusWaiting,
		CreatedAt: now,
	}
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// Player returns the roster entry for name, or nil.
func (that *Room) Player(name string) *Player {
	for _, player := range that.Players {
		if player.Name == name {
			return player
		}
	}

	return nil
}

// Names returns player names in join order.
func (that *Room) Names() []string {
	names := make([]string, 0, len(that.Players))
	for _, player := range that.Players {
		names = append(names, player.Name)
	}

	return names
}

// ConfirmInvariants fails if the room state cannot have been produced by legal operations.
func (that *Room) ConfirmInvariants() error {
	if len(that.Players) > MaxPlayers {
		return fmt.Errorf("%w: room %s has %d players", apperror.ErrInvariantViolation, that.ID, len(that.Players))
	}

	if len(that.Players) == MaxPlayers && that.Players[0].Symbol == that.Players[1].Symbol {
		return fmt.Errorf("%w: room %s players share symbol %s", apperror.ErrInvariantViolation, that.ID, that.Players[0].Symbol)
	}

	if that.IsPlaying() && len(that.Players) != MaxPlayers {
		return fmt.Errorf("%w: room %s playing with %d players", apperror.ErrInvariantViolation, that.ID, len(that.Players))
	}

	return nil
}

// Join adds a second player holding symbol.
func (that *Room) Join(name string, symbol Symbol) (*Player, error) {
	if len(that.Players) >= MaxPlayers {
		return nil, apperror.ErrRoomFull
	}

	if that.Player(name) != nil {
		return nil, apperror.ErrNameTaken
	}

	if !symbol.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidSymbol, symbol)
	}

	for _, player := range that.Players {
		if player.Symbol == symbol {
			return nil, fmt.Errorf("%w: %s", apperror.ErrSymbolTaken, symbol)
		}
	}

	// a finished game left behind by a departed player is discarded
	if that.IsFinished() {
		that.resetGame()
	}

	player := &Player{Name: name, Symbol: symbol}
	that.Players = append(that.Players, player)
	that.settleLobby()

	return player, nil
}

// MarkReady adds name to the ready set. It reports whether the game started.
func (that *Room) MarkReady(name string) (bool, error) {
	if that.Player(name) == nil {
		return false, apperror.ErrNotInRoom
	}

	switch that.Status {
	case StatusPlaying:
		return false, apperror.ErrGameInProgress
	case StatusFinished:
		return false, apperror.ErrGameFinished
	}

	that.Ready[name] = true

	if len(that.Ready) == MaxPlayers && len(that.Players) == MaxPlayers {
		that.Start()
		return true, nil
	}

	return false, nil
}

// Start begins a fresh game with turn order fixed to join order.
func (that *Room) Start() {
	that.Board = NewBoard()
	that.Order = that.Names()
	that.Turn = that.Order[0]
	that.Status = StatusPlaying
	that.Winner = ""
	that.Interrupted = false
	that.LastMove = nil
	that.Moves = 0
}

// ApplyMove places the symbol of name at (x, y) and either finishes the game
// or passes the turn to the next player in the fixed order.
func (that *Room) ApplyMove(name string, x, y int) (*MoveOutcome, error) {
	if err := that.ConfirmInvariants(); err != nil {
		return nil, err
	}

	switch that.Status {
	case StatusWaiting, StatusReady:
		return nil, apperror.ErrGameNotStarted
	case StatusFinished:
		return nil, apperror.ErrGameFinished
	}

	player := that.Player(name)
	if player == nil {
		return nil, apperror.ErrNotInRoom
	}

	if that.Turn != name {
		return nil, apperror.ErrNotYourTurn
	}

	if err := that.Board.Place(x, y, player.Symbol); err != nil {
		return nil, err
	}

	that.Moves++
	that.LastMove = &Coord{X: x, Y: y}

	outcome := &MoveOutcome{
		Player: name,
		Symbol: player.Symbol,
		At:     Coord{X: x, Y: y},
	}

	if run := that.Board.WinningRun(x, y); run != nil {
		that.Status = StatusFinished
		that.Winner = name
		that.Turn = ""

		outcome.IsWin = true
		outcome.WinningRun = run

		return outcome, nil
	}

	that.Turn = that.nextInOrder(name)

	return outcome, nil
}

func (that *Room) nextInOrder(name string) string {
	for i, candidate := range that.Order {
		if candidate == name {
			return that.Order[(i+1)%len(that.Order)]
		}
	}

	return that.Order[0]
}

// RemovePlayer drops name from the roster. It reports whether a running game
// was interrupted by the departure.
func (that *Room) RemovePlayer(name string) (bool, error) {
	idx := -1
	for i, player := range that.Players {
		if player.Name == name {
			idx = i
			break
		}
	}

	if idx < 0 {
		return false, apperror.ErrNotInRoom
	}

	that.Players = append(that.Players[:idx], that.Players[idx+1:]...)
	delete(that.Ready, name)

	if that.IsPlaying() {
		that.Status = StatusFinished
		that.Winner = ""
		that.Turn = ""
		that.Interrupted = true

		return true, nil
	}

	if !that.IsFinished() {
		that.settleLobby()
	}

	return false, nil
}

// Restart returns a finished room to the lobby, keeping the roster.
func (that *Room) Restart() error {
	if !that.IsFinished() {
		return apperror.ErrGameNotFinished
	}

	that.resetGame()
	that.settleLobby()

	return nil
}

func (that *Room) resetGame() {
	that.Board = NewBoard()
	that.Ready = make(map[string]bool)
	that.Winner = ""
	that.Interrupted = false
	that.LastMove = nil
	that.Moves = 0
	that.Status = StatusWaiting
}

// settleLobby recomputes the pre-game status from the roster. The turn
// holder is re-seeded to the first player, who moves first once the game starts.
func (that *Room) settleLobby() {
	if len(that.Players) == MaxPlayers {
		that.Status = StatusReady
	} else {
		that.Status = StatusWaiting
	}

	that.Turn = ""
	if len(that.Players) > 0 {
		that.Turn = that.Players[0].Name
	}
}
