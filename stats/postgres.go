package stats

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const maxConnectRetries = 8

const profileColumns = `username, level, experience, total_goals, total_assists, total_touches,
	wins, losses, draws, total_matches`

// wilsonOrder mirrors WilsonLowerBound in SQL.
var wilsonOrder = fmt.Sprintf(`(
	(wins::float8 / total_matches + %[1]f * %[1]f / (2 * total_matches))
	- %[1]f * sqrt(((wins::float8 / total_matches) * (1 - wins::float8 / total_matches)
		+ %[1]f * %[1]f / (4 * total_matches)) / total_matches)
) / (1 + %[1]f * %[1]f / total_matches) DESC, username`, wilsonZ)

const performanceOrder = `total_goals DESC, total_assists DESC, level DESC, username`

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connString, retrying with exponential backoff
// while the database comes up.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxConnectRetries), ctx)
	if err := backoff.Retry(func() error { return pool.Ping(ctx) }, policy); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	err := row.Scan(&p.Username, &p.Level, &p.Experience, &p.Goals, &p.Assists, &p.Touches,
		&p.Wins, &p.Losses, &p.Draws, &p.TotalMatches)
	if err != nil {
		return Profile{}, err
	}
	p.XPToNext = XPToNextLevel(p.Level)
	return p, nil
}

func (s *PostgresStore) FindOrCreate(ctx context.Context, username string) (Profile, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO players (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`, username)
	if err != nil {
		return Profile{}, errors.Wrapf(err, "create player %s", username)
	}
	return s.Profile(ctx, username)
}

func (s *PostgresStore) Profile(ctx context.Context, username string) (Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM players WHERE username = $1`, username)
	p, err := scanProfile(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Profile{}, ErrPlayerNotFound
	case err != nil:
		return Profile{}, errors.Wrapf(err, "load player %s", username)
	}
	return p, nil
}

// RecordMatch stores the match and every player's update in one transaction.
func (s *PostgresStore) RecordMatch(ctx context.Context, rec MatchRecord) (map[string]Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin match transaction")
	}
	defer tx.Rollback(ctx)

	var matchID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO matches (room_id, winner_team, reason, score_team1, score_team2, duration, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.RoomID, rec.Winner, rec.Reason, rec.Score.Team1, rec.Score.Team2, rec.Duration, rec.PlayedAt,
	).Scan(&matchID)
	if err != nil {
		return nil, errors.Wrap(err, "insert match")
	}

	out := make(map[string]Profile, len(rec.Players))
	for _, r := range rec.Players {
		// The upsert locks the player row for the rest of the transaction.
		var playerID int64
		row := tx.QueryRow(ctx, `
			INSERT INTO players (username) VALUES ($1)
			ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
			RETURNING id, `+profileColumns, r.Username)

		var p Profile
		err := row.Scan(&playerID, &p.Username, &p.Level, &p.Experience, &p.Goals, &p.Assists, &p.Touches,
			&p.Wins, &p.Losses, &p.Draws, &p.TotalMatches)
		if err != nil {
			return nil, errors.Wrapf(err, "lock player %s", r.Username)
		}
		p.apply(r)

		_, err = tx.Exec(ctx, `
			UPDATE players SET level = $2, experience = $3, total_goals = $4, total_assists = $5,
				total_touches = $6, wins = $7, losses = $8, draws = $9, total_matches = $10
			WHERE id = $1`,
			playerID, p.Level, p.Experience, p.Goals, p.Assists, p.Touches, p.Wins, p.Losses, p.Draws, p.TotalMatches)
		if err != nil {
			return nil, errors.Wrapf(err, "update player %s", r.Username)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO player_match_stats (player_id, match_id, team, goals, assists, touches)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			playerID, matchID, string(r.Team), r.Goals, r.Assists, r.Touches)
		if err != nil {
			return nil, errors.Wrapf(err, "insert match stats for %s", r.Username)
		}
		out[r.Username] = p
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit match")
	}
	return out, nil
}

func (s *PostgresStore) Ranking(ctx context.Context, sortBy string, limit int) ([]Profile, error) {
	var order string
	switch sortBy {
	case "", SortResults:
		order = wilsonOrder
	case SortPerformance:
		order = performanceOrder
	default:
		return nil, ErrInvalidSort
	}
	if limit <= 0 || limit > RankingLimit {
		limit = RankingLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM players WHERE total_matches > 0 ORDER BY `+order+` LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query ranking")
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan ranking row")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate ranking")
}
