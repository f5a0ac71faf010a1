package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
)

// playerQueries are the dialect-specific statements of SQLPlayerStore.
type playerQueries struct {
	get, upsert, updateTotals, insertDrink, topChat, topGlobal, totals string
}

var sqlitePlayerQueries = playerQueries{
	get: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players WHERE id = ?`,
	upsert: `
		INSERT INTO players (id, name, chat_id, attempts, total_ml, is_admin, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			chat_id=excluded.chat_id,
			attempts=excluded.attempts,
			total_ml=excluded.total_ml,
			is_admin=excluded.is_admin
	`,
	updateTotals: `UPDATE players SET attempts = ?, total_ml = ? WHERE id = ?`,
	insertDrink:  `INSERT INTO beer_drinks (player_id, amount_ml, drunk_at) VALUES (?, ?, ?)`,
	topChat: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players
		WHERE chat_id = ? ORDER BY total_ml DESC, id ASC LIMIT ?`,
	topGlobal: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players
		ORDER BY total_ml DESC, id ASC LIMIT ?`,
	totals: `SELECT COUNT(*), COALESCE(SUM(total_ml), 0) FROM players`,
}

var postgresPlayerQueries = playerQueries{
	get: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players WHERE id = $1`,
	upsert: `
		INSERT INTO players (id, name, chat_id, attempts, total_ml, is_admin, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			chat_id = EXCLUDED.chat_id,
			attempts = EXCLUDED.attempts,
			total_ml = EXCLUDED.total_ml,
			is_admin = EXCLUDED.is_admin
	`,
	updateTotals: `UPDATE players SET attempts = $1, total_ml = $2 WHERE id = $3`,
	insertDrink:  `INSERT INTO beer_drinks (player_id, amount_ml, drunk_at) VALUES ($1, $2, $3)`,
	topChat: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players
		WHERE chat_id = $1 ORDER BY total_ml DESC, id ASC LIMIT $2`,
	topGlobal: `SELECT id, name, chat_id, attempts, total_ml, is_admin, joined_at FROM players
		ORDER BY total_ml DESC, id ASC LIMIT $1`,
	totals: `SELECT COUNT(*), COALESCE(SUM(total_ml), 0) FROM players`,
}

// SQLPlayerStore implements PlayerStore over the players and beer_drinks tables.
type SQLPlayerStore struct {
	db *sql.DB
	q  playerQueries
}

// NewSQLitePlayerStore creates a player store on a database opened by InitSQLite.
func NewSQLitePlayerStore(db *sql.DB) *SQLPlayerStore {
	return &SQLPlayerStore{db: db, q: sqlitePlayerQueries}
}

// NewPostgresPlayerStore creates a player store on a database opened by InitPostgres.
func NewPostgresPlayerStore(db *sql.DB) *SQLPlayerStore {
	return &SQLPlayerStore{db: db, q: postgresPlayerQueries}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner) (tournament.Player, error) {
	var p tournament.Player
	err := row.Scan(&p.ID, &p.Name, &p.ChatID, &p.Attempts, &p.TotalMl, &p.IsAdmin, &p.JoinedAt)
	return p, err
}

func (r *SQLPlayerStore) GetPlayer(ctx context.Context, id int64) (tournament.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, r.q.get, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tournament.Player{}, ErrPlayerNotFound
		}
		return tournament.Player{}, fmt.Errorf("failed to read player %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLPlayerStore) SavePlayer(ctx context.Context, p tournament.Player) error {
	_, err := r.db.ExecContext(ctx, r.q.upsert,
		p.ID, p.Name, p.ChatID, p.Attempts, p.TotalMl, p.IsAdmin, p.JoinedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save player %d: %w", p.ID, err)
	}
	return nil
}

func (r *SQLPlayerStore) RecordDrink(ctx context.Context, p tournament.Player, d tournament.Drink) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin drink transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.q.updateTotals, p.Attempts, p.TotalMl, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPlayerNotFound
	}
	if _, err := tx.ExecContext(ctx, r.q.insertDrink, d.PlayerID, d.AmountMl, d.DrunkAt.UTC()); err != nil {
		return fmt.Errorf("failed to record drink: %w", err)
	}
	return tx.Commit()
}

func (r *SQLPlayerStore) Top(ctx context.Context, chatID int64, limit int) ([]tournament.Player, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if chatID == GlobalChat {
		rows, err = r.db.QueryContext(ctx, r.q.topGlobal, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, r.q.topChat, chatID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []tournament.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *SQLPlayerStore) Totals(ctx context.Context) (tournament.Totals, error) {
	var t tournament.Totals
	if err := r.db.QueryRowContext(ctx, r.q.totals).Scan(&t.Players, &t.TotalMl); err != nil {
		return tournament.Totals{}, fmt.Errorf("failed to read totals: %w", err)
	}
	return t, nil
}

var _ PlayerStore = (*SQLPlayerStore)(nil)
