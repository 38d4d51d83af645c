package store

import (
	"context"
	"errors"
	"fmt"

	"meeting-tracker/internal/model"
)

const customerSelect = `
SELECT c.id, c.name, c.created_at, c.updated_at,
       (SELECT COUNT(*) FROM meeting_customers mc WHERE mc.customer_id = c.id)
FROM customers c`

// SearchCustomers matches a case-insensitive substring of the name.
func (s *Store) SearchCustomers(ctx context.Context, query string, limit int) ([]model.CustomerRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM customers
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY name
		 LIMIT $2`, escapeLike(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()

	out := make([]model.CustomerRef, 0)
	for rows.Next() {
		var c model.CustomerRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, customerSelect+` ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.MeetingCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	if !validID(id) {
		return nil, model.ErrCustomerNotFound
	}
	var c model.Customer
	err := s.pool.QueryRow(ctx, customerSelect+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.MeetingCount)
	if err != nil {
		return nil, translate(err, model.ErrCustomerNotFound)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO customers (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		c.ID, c.Name,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err = translate(err, model.ErrCustomerNotFound); errors.Is(err, model.ErrConflict) {
		return model.ErrCustomerExists
	}
	return err
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	if !validID(c.ID) {
		return model.ErrCustomerNotFound
	}
	err := s.pool.QueryRow(ctx,
		`UPDATE customers SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		c.ID, c.Name,
	).Scan(&c.UpdatedAt)
	if err = translate(err, model.ErrCustomerNotFound); errors.Is(err, model.ErrConflict) {
		return model.ErrCustomerExists
	}
	return err
}

// DeleteCustomer relies on ON DELETE CASCADE to drop meeting associations.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrCustomerNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCustomerNotFound
	}
	return nil
}
