package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"questboard/internal/model"
)

// SeedTags and SeedPlayers populate an empty board on first open.
var (
	SeedTags = []model.Tag{
		{Name: "Quest", Color: "#800000"},
		{Name: "Lore", Color: "#006400"},
		{Name: "Magic", Color: "#00008B"},
		{Name: "Smithing", Color: "#8B4513"},
	}
	SeedPlayers = []string{"Anonymous", "Dragonborn"}
)

const lockKey = "locked"

// SQLite is the board store backed by a single SQLite file.
// It is safe for concurrent use.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the board database at path,
// migrates its schema and seeds default tags and players into empty tables.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server and local CLI invocations share the file.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &SQLite{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	if err := s.seed(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			tag TEXT NOT NULL,
			assignee TEXT NOT NULL,
			date TEXT NOT NULL,
			image TEXT,
			x REAL NOT NULL,
			y REAL NOT NULL,
			rotation REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tags (
			name TEXT PRIMARY KEY,
			color TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM tags`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		for _, t := range SeedTags {
			if _, err := tx.ExecContext(ctx, `INSERT INTO tags(name, color) VALUES(?, ?)`, t.Name, t.Color); err != nil {
				return err
			}
		}
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM players`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		for _, p := range SeedPlayers {
			if _, err := tx.ExecContext(ctx, `INSERT INTO players(name) VALUES(?)`, p); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// FetchSnapshot reads the whole board in one transaction.
func (s *SQLite) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return model.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	snap := model.Snapshot{Notes: []model.Note{}, Tags: []model.Tag{}, Players: []model.Player{}}

	rows, err := tx.QueryContext(ctx, `SELECT id, text, tag, assignee, date, image, x, y, rotation FROM notes ORDER BY rowid`)
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		var n model.Note
		var img sql.NullString
		if err := rows.Scan(&n.ID, &n.Text, &n.Tag, &n.Assignee, &n.Date, &img, &n.X, &n.Y, &n.Rotation); err != nil {
			_ = rows.Close()
			return model.Snapshot{}, err
		}
		if img.Valid {
			v := img.String
			n.Image = &v
		}
		snap.Notes = append(snap.Notes, n)
	}
	if err := closeRows(rows); err != nil {
		return model.Snapshot{}, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT name, color FROM tags ORDER BY rowid`)
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.Name, &t.Color); err != nil {
			_ = rows.Close()
			return model.Snapshot{}, err
		}
		snap.Tags = append(snap.Tags, t)
	}
	if err := closeRows(rows); err != nil {
		return model.Snapshot{}, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT name FROM players ORDER BY rowid`)
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.Name); err != nil {
			_ = rows.Close()
			return model.Snapshot{}, err
		}
		snap.Players = append(snap.Players, p)
	}
	if err := closeRows(rows); err != nil {
		return model.Snapshot{}, err
	}

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, lockKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return model.Snapshot{}, err
	default:
		if err := json.Unmarshal([]byte(raw), &snap.Locked); err != nil {
			return model.Snapshot{}, fmt.Errorf("decode lock value %q: %w", raw, err)
		}
	}
	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

// UpsertNote inserts the note or replaces it whole.
func (s *SQLite) UpsertNote(ctx context.Context, n model.Note) error {
	if n.ID == "" {
		return errors.New("note id is empty")
	}
	var img any
	if n.Image != nil {
		img = *n.Image
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes(id, text, tag, assignee, date, image, x, y, rotation)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			tag = excluded.tag,
			assignee = excluded.assignee,
			date = excluded.date,
			image = excluded.image,
			x = excluded.x,
			y = excluded.y,
			rotation = excluded.rotation`,
		n.ID, n.Text, n.Tag, n.Assignee, n.Date, img, n.X, n.Y, n.Rotation)
	return err
}

func (s *SQLite) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	return err
}

// CreateTag adds a tag; an existing tag of the same name is left alone.
func (s *SQLite) CreateTag(ctx context.Context, t model.Tag) error {
	if t.Name == "" {
		return errors.New("tag name is empty")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags(name, color) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`, t.Name, t.Color)
	return err
}

func (s *SQLite) DeleteTag(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, name)
	return err
}

// CreatePlayer adds a player; duplicates are ignored.
func (s *SQLite) CreatePlayer(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("player name is empty")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO players(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name)
	return err
}

func (s *SQLite) SetLock(ctx context.Context, locked bool) error {
	b, err := json.Marshal(locked)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_store(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, lockKey, string(b))
	return err
}
