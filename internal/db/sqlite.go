package db

import (
	"context"
	"database/sql"
	"fmt"

	"apod_etl/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS apod_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT,
    explanation TEXT,
    url TEXT,
    date TEXT,
    media_type TEXT
);`

const sqliteInsert = `
INSERT INTO apod_data (title, explanation, url, date, media_type)
VALUES (?, ?, ?, ?, ?)`

const sqliteLatest = `
SELECT id,
       COALESCE(title, ''),
       COALESCE(explanation, ''),
       COALESCE(url, ''),
       COALESCE(date, ''),
       COALESCE(media_type, '')
FROM apod_data
ORDER BY id DESC
LIMIT ?`

// SQLite хранит apod_data в файле SQLite.
type SQLite struct {
	DB *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite открывает базу по пути path и проверяет соединение.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// одно соединение: иначе ":memory:" даёт по базе на соединение
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLite{DB: conn}, nil
}

func (s *SQLite) Close() {
	s.DB.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create apod_data: %w", err)
	}
	return nil
}

func (s *SQLite) InsertRecord(ctx context.Context, rec models.Record) (int64, error) {
	res, err := s.DB.ExecContext(ctx, sqliteInsert,
		rec.Title, rec.Explanation, rec.URL, rec.Date, rec.MediaType,
	)
	if err != nil {
		return 0, fmt.Errorf("insert apod_data: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert apod_data: %w", err)
	}
	return id, nil
}

func (s *SQLite) Latest(ctx context.Context, limit int) ([]models.Row, error) {
	rows, err := s.DB.QueryContext(ctx, sqliteLatest, limit)
	if err != nil {
		return nil, fmt.Errorf("select apod_data: %w", err)
	}
	defer rows.Close()

	var result []models.Row
	for rows.Next() {
		var r models.Row
		if err := rows.Scan(&r.ID, &r.Title, &r.Explanation, &r.URL, &r.Date, &r.MediaType); err != nil {
			return nil, fmt.Errorf("scan apod_data: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select apod_data: %w", err)
	}
	return result, nil
}
