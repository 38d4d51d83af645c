package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/report"
)

const meetingSelect = `
SELECT m.id, m.date, m.description, m.external_participants, m.user_id,
       m.created_at, m.updated_at, u.email, u.name
FROM meetings m
JOIN users u ON u.id = m.user_id`

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	m := &model.Meeting{User: &model.UserSummary{}}
	err := row.Scan(&m.ID, &m.Date, &m.Description, &m.ExternalParticipants, &m.UserID,
		&m.CreatedAt, &m.UpdatedAt, &m.User.Email, &m.User.Name)
	if err != nil {
		return nil, err
	}
	m.User.ID = m.UserID
	m.Customers = make([]model.CustomerRef, 0)
	return m, nil
}

// CreateMeeting inserts the meeting row and its join rows in one transaction.
func (s *Store) CreateMeeting(ctx context.Context, m *model.Meeting, customerIDs []string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO meetings (id, date, description, external_participants, user_id)
			 VALUES ($1,$2,$3,$4,$5)
			 RETURNING created_at, updated_at`,
			m.ID, m.Date, m.Description, m.ExternalParticipants, m.UserID,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if errors.Is(translate(err, nil), model.ErrInvalid) {
				return model.ErrUserNotFound
			}
			return fmt.Errorf("insert meeting: %w", err)
		}
		return insertCustomers(ctx, tx, m.ID, customerIDs)
	})
}

func insertCustomers(ctx context.Context, tx pgx.Tx, meetingID string, customerIDs []string) error {
	for _, cid := range customerIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO meeting_customers (meeting_id, customer_id) VALUES ($1,$2)`,
			meetingID, cid,
		)
		if err != nil {
			if errors.Is(translate(err, nil), model.ErrInvalid) {
				return model.ErrUnknownCustomer
			}
			return fmt.Errorf("insert meeting customer: %w", err)
		}
	}
	return nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	if !validID(id) {
		return nil, model.ErrMeetingNotFound
	}
	m, err := scanMeeting(s.pool.QueryRow(ctx, meetingSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, translate(err, model.ErrMeetingNotFound)
	}
	if err := s.loadCustomers(ctx, []*model.Meeting{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) ListMeetings(ctx context.Context, userID string, limit int) ([]model.Meeting, error) {
	if !validID(userID) {
		return []model.Meeting{}, nil
	}
	q := meetingSelect + ` WHERE m.user_id = $1 ORDER BY m.date DESC, m.id`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var ptrs []*model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadCustomers(ctx, ptrs); err != nil {
		return nil, err
	}

	out := make([]model.Meeting, len(ptrs))
	for i, m := range ptrs {
		out[i] = *m
	}
	return out, nil
}

// loadCustomers fills Customers for every meeting with one query.
func (s *Store) loadCustomers(ctx context.Context, meetings []*model.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	byID := make(map[string]*model.Meeting, len(meetings))
	ids := make([]string, 0, len(meetings))
	for _, m := range meetings {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT mc.meeting_id, c.id, c.name
		 FROM meeting_customers mc
		 JOIN customers c ON c.id = mc.customer_id
		 WHERE mc.meeting_id = ANY($1::uuid[])
		 ORDER BY c.name`, ids)
	if err != nil {
		return fmt.Errorf("load meeting customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var meetingID string
		var c model.CustomerRef
		if err := rows.Scan(&meetingID, &c.ID, &c.Name); err != nil {
			return err
		}
		if m, ok := byID[meetingID]; ok {
			m.Customers = append(m.Customers, c)
		}
	}
	return rows.Err()
}

// UpdateMeeting writes the editable fields. A non-nil customerIDs replaces
// every association in the same transaction.
func (s *Store) UpdateMeeting(ctx context.Context, m *model.Meeting, customerIDs []string) error {
	if !validID(m.ID) {
		return model.ErrMeetingNotFound
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE meetings
			 SET date = $2, description = $3, external_participants = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING updated_at`,
			m.ID, m.Date, m.Description, m.ExternalParticipants,
		).Scan(&m.UpdatedAt)
		if err != nil {
			return translate(err, model.ErrMeetingNotFound)
		}
		if customerIDs == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM meeting_customers WHERE meeting_id = $1`, m.ID); err != nil {
			return fmt.Errorf("clear meeting customers: %w", err)
		}
		return insertCustomers(ctx, tx, m.ID, customerIDs)
	})
}

func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrMeetingNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrMeetingNotFound
	}
	return nil
}

func (s *Store) CountMeetingsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM meetings WHERE user_id = $1 AND date >= $2`, userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count meetings: %w", err)
	}
	return n, nil
}

// filterClause renders f as a WHERE clause over meetings aliased m.
func filterClause(f model.MeetingFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("m.date >= $%d", *f.From)
	}
	if f.To != nil {
		add("m.date <= $%d", *f.To)
	}
	if f.UserID != "" {
		add("m.user_id::text = $%d", f.UserID)
	}
	if f.CustomerID != "" {
		add("EXISTS (SELECT 1 FROM meeting_customers f WHERE f.meeting_id = m.id AND f.customer_id::text = $%d)", f.CustomerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) MeetingOwners(ctx context.Context, f model.MeetingFilter) ([]report.MeetingOwner, error) {
	where, args := filterClause(f)
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, COALESCE(u.name, ''), u.email, COALESCE(u.image, '')
		 FROM meetings m
		 JOIN users u ON u.id = m.user_id`+where+`
		 ORDER BY m.date, m.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("meeting owners: %w", err)
	}
	defer rows.Close()

	out := make([]report.MeetingOwner, 0)
	for rows.Next() {
		var o report.MeetingOwner
		if err := rows.Scan(&o.UserID, &o.Name, &o.Email, &o.Image); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MeetingCustomers emits one row per association of every matching meeting.
// A customer filter selects meetings, so co-customers are emitted too.
func (s *Store) MeetingCustomers(ctx context.Context, f model.MeetingFilter) ([]report.MeetingCustomer, error) {
	where, args := filterClause(f)
	q := `SELECT c.id, c.name
		 FROM meetings m
		 JOIN meeting_customers mc ON mc.meeting_id = m.id
		 JOIN customers c ON c.id = mc.customer_id` + where + `
		 ORDER BY m.date, m.id, c.name`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("meeting customers: %w", err)
	}
	defer rows.Close()

	out := make([]report.MeetingCustomer, 0)
	for rows.Next() {
		var r report.MeetingCustomer
		if err := rows.Scan(&r.CustomerID, &r.CustomerName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MeetingDates(ctx context.Context, f model.MeetingFilter) ([]time.Time, error) {
	where, args := filterClause(f)
	rows, err := s.pool.Query(ctx, `SELECT m.date FROM meetings m`+where+` ORDER BY m.date, m.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("meeting dates: %w", err)
	}
	defer rows.Close()

	out := make([]time.Time, 0)
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
