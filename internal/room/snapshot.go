package room

import (
	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// snapshot must be called with r.mu held.
func (r *Room) snapshot() chessdto.Room {
	out := chessdto.Room{
		ID:            r.id,
		Players:       make([]chessdto.Player, 0, len(r.players)),
		GameState:     GameStateDTO(r.state),
		CurrentPlayer: string(r.current),
		Status:        string(r.status),
		Winner:        string(r.winner),
		FEN:           chess.PlacementFEN(r.state.Board),
		Moves:         append([]chessdto.MoveRecord{}, r.moves...),
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
	for _, p := range r.players {
		out.Players = append(out.Players, playerDTO(p))
	}
	return out
}

func playerDTO(p *Player) chessdto.Player {
	return chessdto.Player{ID: p.ID, Name: p.Name, Color: string(p.Color)}
}

func pieceDTO(p chess.Piece) chessdto.Piece {
	return chessdto.Piece{Type: string(p.Type), Color: string(p.Color), HasMoved: p.HasMoved}
}

// GameStateDTO converts engine state to its wire form. The result shares no
// memory with gs.
func GameStateDTO(gs *chess.GameState) chessdto.GameState {
	out := chessdto.GameState{
		CapturedPieces: chessdto.CapturedPieces{
			White: make([]chessdto.Piece, 0, len(gs.Captured.White)),
			Black: make([]chessdto.Piece, 0, len(gs.Captured.Black)),
		},
	}
	for r := range gs.Board {
		for c, p := range gs.Board[r] {
			if p != nil {
				dp := pieceDTO(*p)
				out.Board[r][c] = &dp
			}
		}
	}
	for _, p := range gs.Captured.White {
		out.CapturedPieces.White = append(out.CapturedPieces.White, pieceDTO(p))
	}
	for _, p := range gs.Captured.Black {
		out.CapturedPieces.Black = append(out.CapturedPieces.Black, pieceDTO(p))
	}
	if gs.LastMove != nil {
		out.LastMove = &chessdto.LastMove{From: gs.LastMove.From, To: gs.LastMove.To, Piece: pieceDTO(gs.LastMove.Piece)}
	}
	return out
}

func pieceFromDTO(p chessdto.Piece) (chess.Piece, bool) {
	out := chess.Piece{Type: chess.PieceType(p.Type), Color: chess.Color(p.Color), HasMoved: p.HasMoved}
	return out, out.Type.Valid() && out.Color.Valid()
}

// GameStateFromDTO rebuilds engine state from a snapshot. Unknown pieces are
// dropped.
func GameStateFromDTO(in chessdto.GameState) *chess.GameState {
	gs := &chess.GameState{Captured: chess.CapturedPieces{White: []chess.Piece{}, Black: []chess.Piece{}}}
	for r := range in.Board {
		for c, p := range in.Board[r] {
			if p == nil {
				continue
			}
			if cp, ok := pieceFromDTO(*p); ok {
				gs.Board[r][c] = &cp
			}
		}
	}
	for _, p := range in.CapturedPieces.White {
		if cp, ok := pieceFromDTO(p); ok {
			gs.Captured.White = append(gs.Captured.White, cp)
		}
	}
	for _, p := range in.CapturedPieces.Black {
		if cp, ok := pieceFromDTO(p); ok {
			gs.Captured.Black = append(gs.Captured.Black, cp)
		}
	}
	if lm := in.LastMove; lm != nil {
		if cp, ok := pieceFromDTO(lm.Piece); ok {
			gs.LastMove = &chess.LastMove{From: lm.From, To: lm.To, Piece: cp}
		}
	}
	return gs
}
