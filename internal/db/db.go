package db

import (
	"context"
	"fmt"

	"apod_etl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS apod_data (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255),
    explanation TEXT,
    url TEXT,
    date DATE,
    media_type VARCHAR(50)
);`

// Пустая дата сохраняется как NULL: колонка date имеет тип DATE.
const postgresInsert = `
INSERT INTO apod_data (title, explanation, url, date, media_type)
VALUES ($1, $2, $3, NULLIF($4, '')::date, $5)
RETURNING id`

const postgresLatest = `
SELECT id,
       COALESCE(title, ''),
       COALESCE(explanation, ''),
       COALESCE(url, ''),
       COALESCE(to_char(date, 'YYYY-MM-DD'), ''),
       COALESCE(media_type, '')
FROM apod_data
ORDER BY id DESC
LIMIT $1`

// PgxPool — подмножество методов pgxpool.Pool, используемое Database.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Database инкапсулирует пул соединений к PostgreSQL.
type Database struct {
	Pool PgxPool
}

var _ Store = (*Database)(nil)

// NewDB создаёт новый пул соединений по connString и возвращает Database.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// EnsureSchema создаёт таблицу apod_data, если она ещё не существует.
func (db *Database) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create apod_data: %w", err)
	}
	return nil
}

// InsertRecord добавляет одну строку и возвращает её id.
// Значения передаются только через параметры запроса.
func (db *Database) InsertRecord(ctx context.Context, rec models.Record) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, postgresInsert,
		rec.Title, rec.Explanation, rec.URL, rec.Date, rec.MediaType,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert apod_data: %w", err)
	}
	return id, nil
}

// Latest возвращает последние limit строк, начиная с самой новой.
func (db *Database) Latest(ctx context.Context, limit int) ([]models.Row, error) {
	rows, err := db.Pool.Query(ctx, postgresLatest, limit)
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
