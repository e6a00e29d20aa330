package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vancomm/minefield/internal/mines"
)

// GameRecord is a finished game, kept for the leaderboard.
type GameRecord struct {
	GameRecordId int64              `db:"game_record_id"`
	SessionId    string             `db:"session_id"`
	PlayerId     *int64             `db:"player_id"`
	Width        int                `db:"width"`
	Height       int                `db:"height"`
	MineCount    int                `db:"mine_count"`
	Won          bool               `db:"won"`
	Dead         bool               `db:"dead"`
	StartedAt    time.Time          `db:"started_at"`
	EndedAt      time.Time          `db:"ended_at"`
	State        []byte             `db:"state"`
	CreatedAt    pgtype.Timestamptz `db:"created_at"`
}

type CreateGameRecordParams struct {
	SessionId string
	PlayerId  *int64
	StartedAt time.Time
	EndedAt   time.Time
	Game      *mines.Game
}

func (p CreateGameRecordParams) NamedArgs() (pgx.NamedArgs, error) {
	state, err := p.Game.Bytes()
	if err != nil {
		return nil, err
	}
	params := p.Game.Params()
	return pgx.NamedArgs{
		"session_id": p.SessionId,
		"player_id":  p.PlayerId,
		"width":      params.Width,
		"height":     params.Height,
		"mine_count": params.MineCount,
		"won":        p.Game.State() == mines.Won,
		"dead":       p.Game.State() == mines.Lost,
		"started_at": p.StartedAt,
		"ended_at":   p.EndedAt,
		"state":      state,
	}, nil
}

func (q *Queries) CreateGameRecord(
	ctx context.Context, params CreateGameRecordParams,
) (*GameRecord, error) {
	args, err := params.NamedArgs()
	if err != nil {
		return nil, err
	}
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO game_record (
			session_id, player_id, width, height, mine_count,
			won, dead, started_at, ended_at, state
		)
		VALUES (
			@session_id, @player_id, @width, @height, @mine_count,
			@won, @dead, @started_at, @ended_at, @state
		)
		RETURNING *;`,
		args,
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameRecord])
}

func (q *Queries) FetchGameRecord(ctx context.Context, gameRecordId int64) (*GameRecord, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM game_record WHERE game_record_id = $1",
		gameRecordId,
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameRecord])
}
