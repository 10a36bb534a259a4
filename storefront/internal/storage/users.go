package storage

import (
	"context"

	"delive/storefront/internal/domain"
)

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return translate(r.DB.QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id",
		user.Email, user.PasswordHash, string(user.Role)).Scan(&user.ID))
}

func (r *PostgresRepository) GetUser(ctx context.Context, id int) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT id, email, password_hash, role FROM users WHERE id = $1", id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT id, email, password_hash, role FROM users WHERE email = $1", email)
}

func (r *PostgresRepository) scanUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &role); err != nil {
		return nil, translate(err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, email, password_hash, role FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var (
			user domain.User
			role string
		)
		if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &role); err != nil {
			return nil, err
		}
		user.Role = domain.Role(role)
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	return translate(r.DB.QueryRowContext(ctx,
		"UPDATE users SET email = $1, role = $2 WHERE id = $3 RETURNING id",
		user.Email, string(user.Role), user.ID).Scan(&user.ID))
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int, hash string) error {
	rows, err := rowsAffected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", hash, id))
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id int) (int64, error) {
	return rowsAffected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id))
}
