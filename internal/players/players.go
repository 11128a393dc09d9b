// Package players stores registered player accounts.
package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrUsernameTaken = errors.New("username taken")
	ErrNotFound      = errors.New("player not found")
)

type Player struct {
	ID           int64     `json:"player_id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS players (
	player_id		INTEGER PRIMARY KEY AUTOINCREMENT,
	username		TEXT NOT NULL UNIQUE,
	password_hash	BLOB NOT NULL,
	created_at		TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return nil, fmt.Errorf("unable to create players table: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(
	ctx context.Context, username string, passwordHash []byte,
) (*Player, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO players (username, password_hash) VALUES (?, ?);`,
		username, passwordHash)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Player, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
SELECT player_id, username, password_hash, created_at
FROM players WHERE player_id = ?;`, id))
}

func (r *Repository) GetByUsername(
	ctx context.Context, username string,
) (*Player, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
SELECT player_id, username, password_hash, created_at
FROM players WHERE username = ?;`, username))
}

func (r *Repository) scan(row *sql.Row) (*Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
