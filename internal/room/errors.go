package room

import (
	"errors"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

var (
	ErrInvalidArgs        = errf("invalid arguments")
	ErrRoomNotFound       = errf("room not found")
	ErrRoomFull           = errf("room is full")
	ErrNotYourTurn        = errf("not your turn")
	ErrInvalidMove        = errf("invalid move")
	ErrGameNotActive      = errf("game is not active")
	ErrPlayerNotFound     = errf("player not in room")
	ErrCodeSpaceExhausted = errf("failed to allocate room code")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// ErrorCode maps an error returned by the registry to its wire code.
// InvalidMove wins over the wrapped chess cause.
func ErrorCode(err error) string {
	var de chessdto.DomainError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return de.Code
	case errors.Is(err, ErrInvalidMove):
		return chessdto.CodeInvalidMove
	case errors.Is(err, chess.ErrInvalidPosition):
		return chessdto.CodeInvalidPosition
	case errors.Is(err, chess.ErrInvalidPiece):
		return chessdto.CodeInvalidPiece
	case errors.Is(err, ErrRoomNotFound):
		return chessdto.CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return chessdto.CodeRoomFull
	case errors.Is(err, ErrNotYourTurn):
		return chessdto.CodeNotYourTurn
	case errors.Is(err, ErrGameNotActive):
		return chessdto.CodeGameNotActive
	case errors.Is(err, ErrPlayerNotFound):
		return chessdto.CodePlayerNotFound
	case errors.Is(err, ErrInvalidArgs):
		return chessdto.CodeInvalidArgs
	}
	return chessdto.CodeServerError
}

// MoveCause returns the chess-level code behind an InvalidMove, or "".
func MoveCause(err error) string {
	switch {
	case errors.Is(err, chess.ErrInvalidPosition):
		return chessdto.CodeInvalidPosition
	case errors.Is(err, chess.ErrInvalidPiece):
		return chessdto.CodeInvalidPiece
	}
	return ""
}
