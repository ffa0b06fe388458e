package apperror

import "errors"

// Validation errors. Their text is sent to the client as-is.
var (
	ErrInvalidPlayerName  = errors.New("invalid player name")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNameTaken          = errors.New("player name already taken")
	ErrSymbolTaken        = errors.New("symbol already taken")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrGameNotStarted     = errors.New("game has not started")
	ErrGameFinished       = errors.New("game is over")
	ErrGameInProgress     = errors.New("game is already in progress")
	ErrGameNotFinished    = errors.New("game is not finished")
	ErrCellOccupied       = errors.New("position already taken")
	ErrNotInRoom          = errors.New("not in a game")
	ErrAlreadyInRoom      = errors.New("already in a room")
	ErrIdentityMismatch   = errors.New("player or room does not match this connection")
	ErrInvalidChatMessage = errors.New("invalid chat message")
)

// Fatal errors. The connection or the operation is dropped.
var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrInvariantViolation = errors.New("room invariant violated")
)

var validation = []error{
	ErrInvalidPlayerName,
	ErrRoomNotFound,
	ErrRoomFull,
	ErrNameTaken,
	ErrSymbolTaken,
	ErrInvalidSymbol,
	ErrNotYourTurn,
	ErrGameNotStarted,
	ErrGameFinished,
	ErrGameInProgress,
	ErrGameNotFinished,
	ErrCellOccupied,
	ErrNotInRoom,
	ErrAlreadyInRoom,
	ErrIdentityMismatch,
	ErrInvalidChatMessage,
}

// IsValidation reports whether err should be reported back to the client
// while keeping the connection open.
func IsValidation(err error) bool {
	_, ok := Reason(err)
	return ok
}

// Reason returns the client-visible text of the validation error wrapped by err.
func Reason(err error) (string, bool) {
	for _, target := range validation {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}

	return "", false
}
