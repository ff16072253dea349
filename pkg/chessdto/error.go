package chessdto

// Error codes carried in DomainError.Code and Response.Code.
const (
	CodeInvalidPosition = "InvalidPosition"
	CodeInvalidPiece    = "InvalidPiece"
	CodeRoomNotFound    = "RoomNotFound"
	CodeRoomFull        = "RoomFull"
	CodeNotYourTurn     = "NotYourTurn"
	CodeInvalidMove     = "InvalidMove"
	CodeGameNotActive   = "GameNotActive"
	CodePlayerNotFound  = "PlayerNotFound"
	CodeInvalidArgs     = "InvalidArgs"
	CodeServerError     = "ServerError"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess room error"
}

// InvalidArgs builds a non-retryable argument error.
func InvalidArgs(msg string) DomainError {
	return DomainError{Code: CodeInvalidArgs, Message: msg}
}
