// Package transport holds what the poll and push adapters share: error
// rendering and the mapping from error codes to HTTP statuses.
package transport

import (
	"errors"
	"net/http"

	"github.com/park285/cashout-chess/internal/msgcat"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// Failure is an error ready to be sent to the originating client.
type Failure struct {
	Code    string
	Message string
}

// Describe maps err to its wire code and a catalog message. For rejected
// moves the message names the underlying cause.
func Describe(cat *msgcat.Catalog, err error) Failure {
	code := room.ErrorCode(err)
	if code == "" {
		code = chessdto.CodeServerError
	}
	key := code
	if code == chessdto.CodeInvalidMove {
		if cause := room.MoveCause(err); cause != "" {
			key = cause
		}
	}
	data := map[string]any{}
	if code == chessdto.CodeInvalidArgs {
		var de chessdto.DomainError
		if errors.As(err, &de) && de.Message != "" {
			data["detail"] = de.Message
		} else {
			data["detail"] = err.Error()
		}
	}
	return Failure{Code: code, Message: cat.Error(key, data)}
}

// Malformed is the failure for an undecodable envelope.
func Malformed(cat *msgcat.Catalog) Failure {
	return Failure{Code: chessdto.CodeServerError, Message: cat.Error(chessdto.CodeServerError, nil)}
}

// Status maps a wire code to an HTTP status.
func Status(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case chessdto.CodeInvalidArgs:
		return http.StatusBadRequest
	case chessdto.CodeRoomNotFound, chessdto.CodePlayerNotFound:
		return http.StatusNotFound
	case chessdto.CodeRoomFull, chessdto.CodeNotYourTurn, chessdto.CodeGameNotActive:
		return http.StatusConflict
	case chessdto.CodeInvalidMove, chessdto.CodeInvalidPiece, chessdto.CodeInvalidPosition:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

