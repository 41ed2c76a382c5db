package db

import (
	"context"
	"fmt"

	"news_hub/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool - часть pgxpool.Pool, которая нужна реестру. В тестах подменяется pgxmock.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Database инкапсулирует пул соединений к PostgreSQL.
type Database struct {
	Pool Pool
}

// NewDB создаёт новый пул соединений по connString и проверяет соединение.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

const loadSourcesQuery = `
        SELECT name, url, category, COALESCE(description, '')
        FROM feed_sources
        WHERE enabled
        ORDER BY category, id
    `

// LoadSources читает включённые источники из таблицы feed_sources.
// Только чтение: состояние кэша в базу не пишется.
func (db *Database) LoadSources(ctx context.Context) ([]models.Source, error) {
	rows, err := db.Pool.Query(ctx, loadSourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("query feed_sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.Name, &s.URL, &s.Category, &s.Description); err != nil {
			return nil, fmt.Errorf("scan feed_sources: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read feed_sources: %w", err)
	}
	return sources, nil
}
