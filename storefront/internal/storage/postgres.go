package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"delive/storefront/internal/domain"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type PostgresRepository struct {
	DB *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL,
		role VARCHAR(10) NOT NULL DEFAULT 'buyer'
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id SERIAL PRIMARY KEY,
		title VARCHAR(30) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dishes (
		id SERIAL PRIMARY KEY,
		title VARCHAR(130) NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		picture VARCHAR(50) NOT NULL DEFAULT '',
		category_id INTEGER NOT NULL REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		created VARCHAR(30) NOT NULL,
		name VARCHAR(32) NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		status SMALLINT NOT NULL DEFAULT 0,
		phone VARCHAR(20) NOT NULL,
		email VARCHAR(100) NOT NULL,
		delivery_address VARCHAR(250) NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS dishes_orders (
		dish_id INTEGER NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		PRIMARY KEY (dish_id, order_id)
	)`,
}

// EnsureSchema creates the tables when they are missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			if pqErr.Table == "users" {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateUser, pqErr.Constraint)
			}
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrReferenced, pqErr.Constraint)
		}
	}
	return err
}

func rowsAffected(result sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, translate(err)
	}
	return result.RowsAffected()
}
