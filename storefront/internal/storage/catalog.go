package storage

import (
	"context"
	"fmt"
	"strings"

	"delive/storefront/internal/domain"
)

const dishColumns = "id, title, price, description, picture, category_id"

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title FROM categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Title); err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id int) (*domain.Category, error) {
	var cat domain.Category
	err := r.DB.QueryRowContext(ctx, "SELECT id, title FROM categories WHERE id = $1", id).
		Scan(&cat.ID, &cat.Title)
	if err != nil {
		return nil, translate(err)
	}
	return &cat, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, cat *domain.Category) error {
	return translate(r.DB.QueryRowContext(ctx,
		"INSERT INTO categories (title) VALUES ($1) RETURNING id", cat.Title).Scan(&cat.ID))
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	return translate(r.DB.QueryRowContext(ctx,
		"UPDATE categories SET title = $1 WHERE id = $2 RETURNING id", cat.Title, cat.ID).Scan(&cat.ID))
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id int) (int64, error) {
	return rowsAffected(r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id))
}

func (r *PostgresRepository) ListDishes(ctx context.Context, filter domain.DishFilter) ([]domain.Dish, error) {
	query := "SELECT " + dishColumns + " FROM dishes"
	var (
		conds []string
		args  []interface{}
	)
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dishes := []domain.Dish{}
	for rows.Next() {
		var dish domain.Dish
		if err := rows.Scan(&dish.ID, &dish.Title, &dish.Price, &dish.Description, &dish.Picture, &dish.CategoryID); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}

func (r *PostgresRepository) GetDish(ctx context.Context, id int) (*domain.Dish, error) {
	var dish domain.Dish
	err := r.DB.QueryRowContext(ctx, "SELECT "+dishColumns+" FROM dishes WHERE id = $1", id).
		Scan(&dish.ID, &dish.Title, &dish.Price, &dish.Description, &dish.Picture, &dish.CategoryID)
	if err != nil {
		return nil, translate(err)
	}
	return &dish, nil
}

func (r *PostgresRepository) CreateDish(ctx context.Context, dish *domain.Dish) error {
	return translate(r.DB.QueryRowContext(ctx, `
		INSERT INTO dishes (title, price, description, picture, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		dish.Title, dish.Price, dish.Description, dish.Picture, dish.CategoryID).Scan(&dish.ID))
}

func (r *PostgresRepository) UpdateDish(ctx context.Context, dish *domain.Dish) error {
	return translate(r.DB.QueryRowContext(ctx, `
		UPDATE dishes
		SET title = $1, price = $2, description = $3, picture = $4, category_id = $5
		WHERE id = $6
		RETURNING id`,
		dish.Title, dish.Price, dish.Description, dish.Picture, dish.CategoryID, dish.ID).Scan(&dish.ID))
}

func (r *PostgresRepository) DeleteDish(ctx context.Context, id int) (int64, error) {
	return rowsAffected(r.DB.ExecContext(ctx, "DELETE FROM dishes WHERE id = $1", id))
}

// BulkLoad inserts seed records with their explicit ids in one transaction
// and moves the id sequences past them.
func (r *PostgresRepository) BulkLoad(ctx context.Context, categories []domain.Category, dishes []domain.Dish) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, cat := range categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (id, title) VALUES ($1, $2)", cat.ID, cat.Title); err != nil {
			return fmt.Errorf("category %d: %w", cat.ID, translate(err))
		}
	}
	for _, d := range dishes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dishes (id, title, price, description, picture, category_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.Title, d.Price, d.Description, d.Picture, d.CategoryID); err != nil {
			return fmt.Errorf("dish %d: %w", d.ID, translate(err))
		}
	}

	for _, table := range []string{"categories", "dishes"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s", table)); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return tx.Commit()
}
