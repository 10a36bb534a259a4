package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"delive/storefront/internal/domain"

	"github.com/lib/pq"
)

const orderColumns = "id, created, name, total, status, phone, email, delivery_address, user_id"

// CreateOrder stores the order and its dish links in one transaction.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (created, name, total, status, phone, email, delivery_address, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, order.Created, order.Name, order.Total, int(order.Status), order.Phone, order.Email,
		order.DeliveryAddress, order.UserID).Scan(&order.ID); err != nil {
		return translate(err)
	}

	for _, dish := range order.Dishes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO dishes_orders (dish_id, order_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			dish.ID, order.ID); err != nil {
			return translate(err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, translate(err)
	}
	orders := []domain.Order{*order}
	if err := r.attachDishes(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != nil {
		args = append(args, int(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	return r.queryOrders(ctx, query, args...)
}

func (r *PostgresRepository) ListUserOrders(ctx context.Context, userID int) ([]domain.Order, error) {
	return r.queryOrders(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
}

func (r *PostgresRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	rows, err := rowsAffected(r.DB.ExecContext(ctx,
		"UPDATE orders SET status = $1, phone = $2 WHERE id = $3",
		int(order.Status), order.Phone, order.ID))
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int) (int64, error) {
	return rowsAffected(r.DB.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id))
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachDishes(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order  domain.Order
		status int
	)
	if err := row.Scan(&order.ID, &order.Created, &order.Name, &order.Total, &status,
		&order.Phone, &order.Email, &order.DeliveryAddress, &order.UserID); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	order.Dishes = []domain.Dish{}
	return &order, nil
}

// attachDishes loads the dish links of all orders with a single query.
func (r *PostgresRepository) attachDishes(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int]int, len(orders))
	for i, o := range orders {
		ids[i] = int64(o.ID)
		index[o.ID] = i
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT od.order_id, d.id, d.title, d.price, d.description, d.picture, d.category_id
		FROM dishes_orders od
		JOIN dishes d ON d.id = od.dish_id
		WHERE od.order_id = ANY($1)
		ORDER BY od.order_id, d.id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int
			dish    domain.Dish
		)
		if err := rows.Scan(&orderID, &dish.ID, &dish.Title, &dish.Price, &dish.Description,
			&dish.Picture, &dish.CategoryID); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Dishes = append(orders[i].Dishes, dish)
		}
	}
	return rows.Err()
}

var (
	_ rowScanner = (*sql.Row)(nil)
	_ rowScanner = (*sql.Rows)(nil)
)
