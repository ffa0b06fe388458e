package protocol

import "github.com/rocketscienceinc/gomoku-backend/internal/entity"

// Type is the discriminant tag of a message.
type Type string

const (
	TypeCreateRoom         Type = "create_room"
	TypeRoomCreated        Type = "room_created"
	TypeJoinRoom           Type = "join_room"
	TypeBoardState         Type = "board_state"
	TypePlayerJoined       Type = "player_joined"
	TypeMakeMove           Type = "make_move"
	TypeMoveMade           Type = "move_made"
	TypeReady              Type = "ready"
	TypeChat               Type = "chat"
	TypeGetLeaderboard     Type = "get_leaderboard"
	TypeLeaderboardUpdate  Type = "leaderboard_update"
	TypeError              Type = "error"
	TypePlayerDisconnected Type = "player_disconnected"
	TypeGameInterrupted    Type = "game_interrupted"
	TypeRestart            Type = "restart"
)

// Message is implemented only by the message structs of this package.
type Message interface {
	Type() Type
	required() []string
}

// CreateRoom C→S.
type CreateRoom struct {
	PlayerName string `json:"player_name"`
}

// RoomCreated S→C.
type RoomCreated struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	Symbol     string `json:"symbol"`
}

// JoinRoom C→S.
type JoinRoom struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	Symbol     string `json:"symbol"`
}

type PlayerInfo struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Ready  bool   `json:"ready"`
}

// BoardState S→C is a full room snapshot. IsMyTurn is computed per recipient.
type BoardState struct {
	RoomID      string            `json:"room_id"`
	Status      string            `json:"status"`
	Players     []PlayerInfo      `json:"players"`
	Board       map[string]string `json:"board"`
	CurrentTurn string            `json:"current_turn"`
	IsMyTurn    bool              `json:"is_my_turn"`
	IsGameOver  bool              `json:"is_game_over"`
	Winner      *string           `json:"winner"`
	LastMove    *entity.Coord     `json:"last_move"`
}

// PlayerJoined S→C.
type PlayerJoined struct {
	Player      string `json:"player"`
	CurrentTurn string `json:"current_turn"`
	Symbol      string `json:"symbol"`
	IsMyTurn    bool   `json:"is_my_turn"`
}

// MakeMove C→S.
type MakeMove struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

// MoveMade S→C carries the post-move snapshot plus the move itself.
type MoveMade struct {
	BoardState

	Player           string         `json:"player"`
	X                int            `json:"x"`
	Y                int            `json:"y"`
	Symbol           string         `json:"symbol"`
	IsWin            bool           `json:"is_win"`
	IsDraw           bool           `json:"is_draw"`
	WinningPositions []entity.Coord `json:"winning_positions"`
}

// Ready C→S.
type Ready struct {
	PlayerName string `json:"player_name"`
}

// Chat C↔S.
type Chat struct {
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

// GetLeaderboard C→S.
type GetLeaderboard struct{}

// LeaderboardUpdate S→C. Standings holds the same data ordered for display.
type LeaderboardUpdate struct {
	Leaderboard map[string]int    `json:"leaderboard"`
	Standings   []entity.Standing `json:"standings"`
}

// Error S→C.
type Error struct {
	Message string `json:"message"`
}

// PlayerDisconnected S→C.
type PlayerDisconnected struct {
	Player string `json:"player"`
}

// GameInterrupted S→C.
type GameInterrupted struct {
	Message string `json:"message"`
}

// Restart C→S.
type Restart struct {
	PlayerName string `json:"player_name"`
}

func (CreateRoom) Type() Type         { return TypeCreateRoom }
func (RoomCreated) Type() Type        { return TypeRoomCreated }
func (JoinRoom) Type() Type           { return TypeJoinRoom }
func (BoardState) Type() Type         { return TypeBoardState }
func (PlayerJoined) Type() Type       { return TypePlayerJoined }
func (MakeMove) Type() Type           { return TypeMakeMove }
func (MoveMade) Type() Type           { return TypeMoveMade }
func (Ready) Type() Type              { return TypeReady }
func (Chat) Type() Type               { return TypeChat }
func (GetLeaderboard) Type() Type     { return TypeGetLeaderboard }
func (LeaderboardUpdate) Type() Type  { return TypeLeaderboardUpdate }
func (Error) Type() Type              { return TypeError }
func (PlayerDisconnected) Type() Type { return TypePlayerDisconnected }
func (GameInterrupted) Type() Type    { return TypeGameInterrupted }
func (Restart) Type() Type            { return TypeRestart }

func (CreateRoom) required() []string         { return []string{"player_name"} }
func (RoomCreated) required() []string        { return []string{"room_id", "player_name", "symbol"} }
func (JoinRoom) required() []string           { return []string{"room_id", "player_name", "symbol"} }
func (BoardState) required() []string         { return []string{"room_id", "board"} }
func (PlayerJoined) required() []string       { return []string{"player", "symbol"} }
func (MakeMove) required() []string           { return []string{"room_id", "player_name", "x", "y"} }
func (MoveMade) required() []string           { return []string{"room_id", "board", "player", "x", "y"} }
func (Ready) required() []string              { return []string{"player_name"} }
func (Chat) required() []string               { return []string{"player_name", "message"} }
func (GetLeaderboard) required() []string     { return nil }
func (LeaderboardUpdate) required() []string  { return []string{"leaderboard"} }
func (Error) required() []string              { return []string{"message"} }
func (PlayerDisconnected) required() []string { return []string{"player"} }
func (GameInterrupted) required() []string    { return []string{"message"} }
func (Restart) required() []string            { return []string{"player_name"} }
