package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"meeting-tracker/internal/model"
)

const userColumns = `id, email, name, image, password_hash, role, target, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.PasswordHash, &u.Role, &u.Target, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, image, password_hash, role, target)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Name, u.Image, u.PasswordHash, u.Role, u.Target,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err = translate(err, model.ErrUserNotFound); errors.Is(err, model.ErrConflict) {
		return model.ErrEmailExists
	}
	return err
}

// UpsertUser matches on e-mail. An existing user keeps its id, password and
// target; name, image and role are overwritten.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, image, password_hash, role, target)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (email) DO UPDATE
		   SET name = EXCLUDED.name, image = EXCLUDED.image, role = EXCLUDED.role, updated_at = NOW()
		 RETURNING id, password_hash, target, created_at, updated_at, (xmax = 0)`,
		u.ID, u.Email, u.Name, u.Image, u.PasswordHash, u.Role, u.Target,
	).Scan(&u.ID, &u.PasswordHash, &u.Target, &u.CreatedAt, &u.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", translate(err, model.ErrUserNotFound))
	}
	return inserted, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email))
	if err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, model.ErrUserNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUserAccess(ctx context.Context, id string, role model.Role, target int) (*model.User, error) {
	if !validID(id) {
		return nil, model.ErrUserNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, target = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns, id, role, target))
	if err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	if !validID(id) {
		return model.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
