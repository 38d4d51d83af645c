// Package memory is a process-local Store used by tests and by the
// memory storage backend. It mirrors the constraints of the Postgres schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/report"
)

type meetingRow struct {
	meeting   model.Meeting
	customers []string
}

type Store struct {
	mu        sync.RWMutex
	users     map[string]model.User
	customers map[string]model.Customer
	meetings  map[string]*meetingRow
	tokens    map[string]model.RefreshToken

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:     map[string]model.User{},
		customers: map[string]model.Customer{},
		meetings:  map[string]*meetingRow{},
		tokens:    map[string]model.RefreshToken{},
		now:       time.Now,
	}
}

func (s *Store) OnStart(context.Context) error { return nil }
func (s *Store) OnStop(context.Context) error  { return nil }
func (s *Store) Ping(context.Context) error    { return nil }

// users

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUser(u)
}

func (s *Store) insertUser(u *model.User) error {
	if _, ok := s.userByEmail(u.Email); ok {
		return model.ErrEmailExists
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

// UpsertUser matches on e-mail. An existing user keeps its id, password and
// target; name, image and role are overwritten.
func (s *Store) UpsertUser(_ context.Context, u *model.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.userByEmail(u.Email)
	if !ok {
		return true, s.insertUser(u)
	}
	existing.Name = u.Name
	existing.Image = u.Image
	existing.Role = u.Role
	existing.UpdatedAt = s.now()
	s.users[existing.ID] = existing
	*u = existing
	return false, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userByEmail(email)
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) UpdateUserAccess(_ context.Context, id string, role model.Role, target int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u.Role, u.Target, u.UpdatedAt = role, target, s.now()
	s.users[id] = u
	return &u, nil
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, s.now()
	s.users[id] = u
	return nil
}

func (s *Store) userByEmail(email string) (model.User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}

// customers

func (s *Store) SearchCustomers(_ context.Context, query string, limit int) ([]model.CustomerRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	out := []model.CustomerRef{}
	for _, c := range s.customers {
		if strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, model.CustomerRef{ID: c.ID, Name: c.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListCustomers(context.Context) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		c.MeetingCount = s.meetingCount(c.ID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CustomerByID(_ context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	c.MeetingCount = s.meetingCount(id)
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, c *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(c.Name, "") {
		return model.ErrCustomerExists
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.customers[c.ID] = *c
	return nil
}

func (s *Store) UpdateCustomer(_ context.Context, c *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.customers[c.ID]
	if !ok {
		return model.ErrCustomerNotFound
	}
	if s.nameTaken(c.Name, c.ID) {
		return model.ErrCustomerExists
	}
	cur.Name, cur.UpdatedAt = c.Name, s.now()
	s.customers[c.ID] = cur
	*c = cur
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return model.ErrCustomerNotFound
	}
	delete(s.customers, id)
	for _, row := range s.meetings {
		row.customers = without(row.customers, id)
	}
	return nil
}

func (s *Store) nameTaken(name, exceptID string) bool {
	for _, c := range s.customers {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) meetingCount(customerID string) int {
	n := 0
	for _, row := range s.meetings {
		if contains(row.customers, customerID) {
			n++
		}
	}
	return n
}

// meetings

func (s *Store) CreateMeeting(_ context.Context, m *model.Meeting, customerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[m.UserID]; !ok {
		return model.ErrUserNotFound
	}
	if err := s.checkCustomers(customerIDs); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.meetings[m.ID] = &meetingRow{meeting: *m, customers: append([]string(nil), customerIDs...)}
	return nil
}

func (s *Store) GetMeeting(_ context.Context, id string) (*model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.meetings[id]
	if !ok {
		return nil, model.ErrMeetingNotFound
	}
	m := s.hydrate(row)
	return &m, nil
}

func (s *Store) ListMeetings(_ context.Context, userID string, limit int) ([]model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Meeting{}
	for _, row := range s.meetings {
		if row.meeting.UserID == userID {
			out = append(out, s.hydrate(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateMeeting validates everything before touching state so a failed
// update leaves the meeting as it was.
func (s *Store) UpdateMeeting(_ context.Context, m *model.Meeting, customerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.meetings[m.ID]
	if !ok {
		return model.ErrMeetingNotFound
	}
	if customerIDs != nil {
		if err := s.checkCustomers(customerIDs); err != nil {
			return err
		}
	}
	row.meeting.Date = m.Date
	row.meeting.Description = m.Description
	row.meeting.ExternalParticipants = m.ExternalParticipants
	row.meeting.UpdatedAt = s.now()
	if customerIDs != nil {
		row.customers = append([]string(nil), customerIDs...)
	}
	return nil
}

func (s *Store) DeleteMeeting(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[id]; !ok {
		return model.ErrMeetingNotFound
	}
	delete(s.meetings, id)
	return nil
}

func (s *Store) CountMeetingsSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, row := range s.meetings {
		if row.meeting.UserID == userID && !row.meeting.Date.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) MeetingOwners(_ context.Context, f model.MeetingFilter) ([]report.MeetingOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.filtered(f)
	out := make([]report.MeetingOwner, 0, len(rows))
	for _, row := range rows {
		u := s.users[row.meeting.UserID]
		o := report.MeetingOwner{UserID: u.ID, Email: u.Email}
		if u.Name != nil {
			o.Name = *u.Name
		}
		if u.Image != nil {
			o.Image = *u.Image
		}
		out = append(out, o)
	}
	return out, nil
}

// MeetingCustomers emits one row per association of every matching meeting.
// A customer filter selects meetings, so co-customers are emitted too.
func (s *Store) MeetingCustomers(_ context.Context, f model.MeetingFilter) ([]report.MeetingCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []report.MeetingCustomer{}
	for _, row := range s.filtered(f) {
		for _, cid := range row.customers {
			out = append(out, report.MeetingCustomer{CustomerID: cid, CustomerName: s.customers[cid].Name})
		}
	}
	return out, nil
}

func (s *Store) MeetingDates(_ context.Context, f model.MeetingFilter) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.filtered(f)
	out := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.meeting.Date)
	}
	return out, nil
}

// filtered returns matching meetings ordered by date then id, the same order
// the SQL queries use.
func (s *Store) filtered(f model.MeetingFilter) []*meetingRow {
	out := make([]*meetingRow, 0, len(s.meetings))
	for _, row := range s.meetings {
		m := row.meeting
		if f.From != nil && m.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && m.Date.After(*f.To) {
			continue
		}
		if f.UserID != "" && m.UserID != f.UserID {
			continue
		}
		if f.CustomerID != "" && !contains(row.customers, f.CustomerID) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].meeting, out[j].meeting
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	return out
}

func (s *Store) hydrate(row *meetingRow) model.Meeting {
	m := row.meeting
	if u, ok := s.users[m.UserID]; ok {
		m.User = &model.UserSummary{ID: u.ID, Email: u.Email, Name: u.Name}
	}
	m.Customers = make([]model.CustomerRef, 0, len(row.customers))
	for _, cid := range row.customers {
		m.Customers = append(m.Customers, model.CustomerRef{ID: cid, Name: s.customers[cid].Name})
	}
	sort.Slice(m.Customers, func(i, j int) bool { return m.Customers[i].Name < m.Customers[j].Name })
	return m
}

func (s *Store) checkCustomers(ids []string) error {
	for _, id := range ids {
		if _, ok := s.customers[id]; !ok {
			return model.ErrUnknownCustomer
		}
	}
	return nil
}

// refresh tokens

func (s *Store) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.tokens[id] = model.RefreshToken{
		ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: s.now(),
	}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rt := range s.tokens {
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, model.ErrNotFound
}

// RotateRefreshToken revokes oldID and links it to a new token. It fails
// with ErrUnauthenticated when oldID was already revoked concurrently.
func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldID]
	if !ok || old.Revoked {
		return model.ErrUnauthenticated
	}
	s.tokens[newID] = model.RefreshToken{
		ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: s.now(),
	}
	old.Revoked = true
	old.ReplacedBy = &newID
	s.tokens[oldID] = old
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rt := range s.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			s.tokens[id] = rt
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
