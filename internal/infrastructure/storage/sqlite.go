package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/glebarez/go-sqlite"

	"svw.info/hunt/internal/ports"
)

// SQLite keeps all namespaces in one table keyed by (namespace, key).
type SQLite struct {
	DB *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under concurrent sessions
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLite{DB: db}, nil
}

func (s *SQLite) Close() error { return s.DB.Close() }

func (s *SQLite) Namespace(name string) ports.KeyValue { return &sqliteNS{db: s.DB, name: name} }

// List returns every namespace holding at least one key.
func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT namespace FROM kv ORDER BY namespace`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

type sqliteNS struct {
	db   *sql.DB
	name string
}

func (n *sqliteNS) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := n.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE namespace = ? AND key = ?`, n.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (n *sqliteNS) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	_, err := n.db.ExecContext(ctx, query, n.name, key, value)
	return err
}

func (n *sqliteNS) Remove(ctx context.Context, key string) error {
	_, err := n.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, n.name, key)
	return err
}

func (n *sqliteNS) Clear(ctx context.Context) error {
	_, err := n.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ?`, n.name)
	return err
}
