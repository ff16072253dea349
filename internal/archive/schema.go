package archive

import "time"

// Record is one row of chess_rooms.
type Record struct {
	RoomID     string
	WhiteName  string
	BlackName  string
	Players    []string
	Status     string
	Result     string
	Reason     string
	Winner     string
	FinalFEN   string
	MovesText  string
	MovesJSON  string
	PlyCount   int
	CreatedAt  time.Time
	EndedAt    time.Time
	DurationMS int64
}

// Schema creates the archive table on Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS chess_rooms (
	room_id TEXT PRIMARY KEY,
	white_name TEXT NOT NULL DEFAULT '',
	black_name TEXT NOT NULL DEFAULT '',
	players TEXT[] NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	result TEXT NOT NULL DEFAULT '*',
	reason TEXT NOT NULL DEFAULT '',
	winner TEXT NOT NULL DEFAULT '',
	final_fen TEXT NOT NULL,
	moves_text TEXT NOT NULL DEFAULT '',
	moves_json JSONB NOT NULL DEFAULT '[]',
	ply_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_chess_rooms_ended_at ON chess_rooms(ended_at);
`
