package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// Repository archives finished or abandoned rooms into Postgres.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Open connects to DATABASE_URL and creates the schema when missing.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := New(db)
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

const upsertSQL = `INSERT INTO chess_rooms (
	room_id, white_name, black_name, players, status, result, reason, winner,
	final_fen, moves_text, moves_json, ply_count, created_at, ended_at, duration_ms
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (room_id) DO UPDATE SET
	white_name=CASE WHEN EXCLUDED.white_name <> '' THEN EXCLUDED.white_name ELSE chess_rooms.white_name END,
	black_name=CASE WHEN EXCLUDED.black_name <> '' THEN EXCLUDED.black_name ELSE chess_rooms.black_name END,
	players=EXCLUDED.players,
	status=EXCLUDED.status,
	result=CASE WHEN chess_rooms.result <> '*' THEN chess_rooms.result ELSE EXCLUDED.result END,
	reason=CASE WHEN chess_rooms.reason <> '' AND chess_rooms.result <> '*' THEN chess_rooms.reason ELSE EXCLUDED.reason END,
	winner=CASE WHEN chess_rooms.winner <> '' THEN chess_rooms.winner ELSE EXCLUDED.winner END,
	final_fen=EXCLUDED.final_fen,
	moves_text=EXCLUDED.moves_text,
	moves_json=EXCLUDED.moves_json,
	ply_count=EXCLUDED.ply_count,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

// Save upserts the record. A decided result is never overwritten by a later
// close of the same room.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, upsertSQL,
		rec.RoomID,
		rec.WhiteName, rec.BlackName,
		pq.Array(rec.Players),
		rec.Status, rec.Result, rec.Reason, rec.Winner,
		rec.FinalFEN, rec.MovesText, rec.MovesJSON, rec.PlyCount,
		rec.CreatedAt, rec.EndedAt, rec.DurationMS,
	)
	return err
}

// Publish implements room.Observer: game-over and room-closed events are
// archived, everything else is ignored.
func (r *Repository) Publish(ctx context.Context, ev room.Event) {
	if ev.Kind != room.EventGameOver && ev.Kind != room.EventRoomClosed {
		return
	}
	rec, err := BuildRecord(ev, r.now())
	if err != nil {
		obslog.L().Error("archive_build_error", zap.String("room_id", ev.RoomID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Save(ctx, rec); err != nil {
		obslog.L().Error("archive_save_error", zap.String("room_id", ev.RoomID), zap.String("result", rec.Result), zap.Error(err))
		return
	}
	obslog.L().Info("archive_save", zap.String("room_id", ev.RoomID), zap.String("result", rec.Result), zap.String("reason", rec.Reason))
}

// BuildRecord summarises an event's room snapshot into an archive row.
func BuildRecord(ev room.Event, endedAt time.Time) (Record, error) {
	s := ev.Room
	if strings.TrimSpace(s.ID) == "" {
		s.ID = ev.RoomID
	}
	movesJSON, err := json.Marshal(s.Moves)
	if err != nil {
		return Record{}, err
	}
	if s.Moves == nil {
		movesJSON = []byte("[]")
	}
	rec := Record{
		RoomID:    s.ID,
		Status:    s.Status,
		Result:    resultToken(s.Winner),
		Reason:    ev.Reason,
		Winner:    s.Winner,
		FinalFEN:  s.FEN,
		MovesText: MovesText(s.Moves),
		MovesJSON: string(movesJSON),
		PlyCount:  len(s.Moves),
		CreatedAt: s.CreatedAt,
		EndedAt:   endedAt,
	}
	for _, p := range s.Players {
		rec.Players = append(rec.Players, p.Name)
		switch p.Color {
		case "white":
			rec.WhiteName = p.Name
		case "black":
			rec.BlackName = p.Name
		}
	}
	// the closing snapshot has no players left; the leaver still names a seat
	if ev.Player != nil {
		if ev.Player.Color == "white" && rec.WhiteName == "" {
			rec.WhiteName = ev.Player.Name
		}
		if ev.Player.Color == "black" && rec.BlackName == "" {
			rec.BlackName = ev.Player.Name
		}
	}
	if rec.Players == nil {
		rec.Players = []string{}
	}
	if !s.CreatedAt.IsZero() {
		if d := endedAt.Sub(s.CreatedAt).Milliseconds(); d > 0 {
			rec.DurationMS = d
		}
	}
	return rec, nil
}

func resultToken(winner string) string {
	switch winner {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	default:
		return "*"
	}
}

// MovesText renders history in numbered coordinate notation, e.g.
// "1. e2-e4 e7-e5 2. g1-f3". Captures use "x" instead of "-".
func MovesText(moves []chessdto.MoveRecord) string {
	var b strings.Builder
	for i, m := range moves {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d. ", i/2+1)
		} else {
			b.WriteByte(' ')
		}
		sep := "-"
		if m.Captured != nil {
			sep = "x"
		}
		b.WriteString(m.From + sep + m.To)
	}
	return b.String()
}
