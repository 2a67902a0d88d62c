package db

import (
	"context"
	"errors"
	"fmt"

	"apod_etl/internal/config"
	"apod_etl/internal/models"
)

var ErrUnsupportedStore = errors.New("unsupported store conn_type")

// Store — хранилище таблицы apod_data.
type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertRecord(ctx context.Context, rec models.Record) (int64, error)
	Latest(ctx context.Context, limit int) ([]models.Row, error)
	Ping(ctx context.Context) error
	Close()
}

// Open выбирает реализацию Store по conn_type соединения.
func Open(ctx context.Context, conn config.Connection) (Store, error) {
	switch conn.ConnType {
	case config.ConnTypePostgres, "postgresql", "":
		database, err := NewDB(ctx, conn.PostgresDSN())
		if err != nil {
			return nil, err
		}
		return database, nil
	case config.ConnTypeSQLite:
		lite, err := NewSQLite(ctx, conn.SQLitePath())
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, conn.ConnType)
	}
}
