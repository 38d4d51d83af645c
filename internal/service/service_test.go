package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
	"meeting-tracker/internal/report"
	"meeting-tracker/internal/revocation"
	"meeting-tracker/internal/store/memory"
)

// Wednesday 13 March 2024.
var fixedNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memory.Store
	ctx   context.Context
}

func newFixture(t *testing.T, dl revocation.Denylist) *fixture {
	t.Helper()
	st := memory.New()
	svc := New(zap.NewNop().Sugar(), st, auth.NewTokens("test-secret", "meeting-tracker", time.Minute), dl, Options{
		AllowedEmailDomains: []string{"example.com"},
		Now:                 func() time.Time { return fixedNow },
		Timeout:             time.Second,
	})
	return &fixture{svc: svc, store: st, ctx: context.Background()}
}

func (f *fixture) user(t *testing.T, email string, role model.Role) *policy.Actor {
	t.Helper()
	u := model.User{Email: email, Role: role, Target: model.DefaultTarget}
	require.NoError(t, f.store.CreateUser(f.ctx, &u))
	return &policy.Actor{ID: u.ID, Role: role}
}

func (f *fixture) customer(t *testing.T, name string) string {
	t.Helper()
	c := model.Customer{Name: name}
	require.NoError(t, f.store.CreateCustomer(f.ctx, &c))
	return c.ID
}

func (f *fixture) meeting(t *testing.T, actor *policy.Actor, date time.Time, customers ...string) *model.Meeting {
	t.Helper()
	m, err := f.svc.CreateMeeting(f.ctx, actor, model.NewMeeting{
		Date: date, CustomerIDs: customers, ExternalParticipants: "Bob",
	})
	require.NoError(t, err)
	return m
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f := newFixture(t, revocation.NewRedis(client))

	_, err := f.svc.Register(f.ctx, model.NewUser{Email: "x@other.org", Password: "password1"})
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = f.svc.Register(f.ctx, model.NewUser{Email: "ann@example.com", Password: "short"})
	assert.ErrorIs(t, err, model.ErrInvalid)

	sess, err := f.svc.Register(f.ctx, model.NewUser{Email: " Ann@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", sess.User.Email)
	assert.Equal(t, model.RoleEmployee, sess.User.Role)
	assert.Equal(t, model.DefaultTarget, sess.User.Target)

	_, err = f.svc.Register(f.ctx, model.NewUser{Email: "ann@example.com", Password: "password1"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = f.svc.Login(f.ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = f.svc.Login(f.ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	sess, err = f.svc.Login(f.ctx, "ANN@example.com", "password1")
	require.NoError(t, err)

	actor, claims, err := f.svc.Authenticate(f.ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, actor.ID)

	next, err := f.svc.Refresh(f.ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	// reusing the rotated token revokes the whole family
	_, err = f.svc.Refresh(f.ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = f.svc.Refresh(f.ctx, next.RefreshToken)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	require.NoError(t, f.svc.Logout(f.ctx, actor, claims.ID, claims.ExpiresAt.Time))
	_, _, err = f.svc.Authenticate(f.ctx, sess.AccessToken)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, nil)
	sess, err := f.svc.Register(f.ctx, model.NewUser{Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)
	actor := &policy.Actor{ID: sess.User.ID, Role: sess.User.Role}

	err = f.svc.ChangePassword(f.ctx, actor, model.ChangePassword{CurrentPassword: "nope", NewPassword: "password2"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	require.NoError(t, f.svc.ChangePassword(f.ctx, actor, model.ChangePassword{CurrentPassword: "password1", NewPassword: "password2"}))
	_, err = f.svc.Login(f.ctx, "ann@example.com", "password2")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(f.ctx, nil, model.ChangePassword{}), model.ErrUnauthenticated)
}

func TestMeetingOwnership(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	bob := f.user(t, "bob@example.com", model.RoleEmployee)
	admin := f.user(t, "admin@example.com", model.RoleAdmin)
	acme := f.customer(t, "Acme")

	m := f.meeting(t, alice, fixedNow, acme)
	assert.Equal(t, alice.ID, m.UserID)

	desc := "changed"
	for name, actor := range map[string]*policy.Actor{"other employee": bob, "admin": admin} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateMeeting(f.ctx, actor, m.ID, model.MeetingUpdate{Description: &desc})
			assert.ErrorIs(t, err, model.ErrForbidden)
			assert.ErrorIs(t, f.svc.DeleteMeeting(f.ctx, actor, m.ID), model.ErrForbidden)
		})
	}

	_, err := f.svc.UpdateMeeting(f.ctx, alice, "missing", model.MeetingUpdate{Description: &desc})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.svc.UpdateMeeting(f.ctx, nil, m.ID, model.MeetingUpdate{Description: &desc})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	got, err := f.svc.UpdateMeeting(f.ctx, alice, m.ID, model.MeetingUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Description)
	assert.Equal(t, []string{acme}, got.CustomerIDs())

	_, err = f.svc.UpdateMeeting(f.ctx, alice, m.ID, model.MeetingUpdate{CustomerIDs: []string{}})
	assert.ErrorIs(t, err, model.ErrInvalid)

	require.NoError(t, f.svc.DeleteMeeting(f.ctx, alice, m.ID))
	assert.ErrorIs(t, f.svc.DeleteMeeting(f.ctx, alice, m.ID), model.ErrNotFound)
}

// lookupCounter records every entity read made on behalf of a request.
type lookupCounter struct {
	*memory.Store
	reads int
}

func (c *lookupCounter) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	c.reads++
	return c.Store.GetMeeting(ctx, id)
}

func (c *lookupCounter) CustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	c.reads++
	return c.Store.CustomerByID(ctx, id)
}

func (c *lookupCounter) UserByID(ctx context.Context, id string) (*model.User, error) {
	c.reads++
	return c.Store.UserByID(ctx, id)
}

func TestAnonymousRejectedBeforeLookup(t *testing.T) {
	st := &lookupCounter{Store: memory.New()}
	svc := New(zap.NewNop().Sugar(), st, auth.NewTokens("test-secret", "meeting-tracker", time.Minute), nil, Options{})
	ctx := context.Background()

	_, err := svc.GetMeeting(ctx, nil, "missing")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.UpdateMeeting(ctx, nil, "missing", model.MeetingUpdate{})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.ErrorIs(t, svc.DeleteMeeting(ctx, nil, "missing"), model.ErrUnauthenticated)
	_, err = svc.UpdateCustomer(ctx, nil, "missing", model.CustomerInput{Name: "Acme"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.ErrorIs(t, svc.DeleteCustomer(ctx, nil, "missing"), model.ErrUnauthenticated)
	_, err = svc.UpdateUser(ctx, nil, "missing", model.UserUpdate{})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	assert.Zero(t, st.reads)
}

func TestCreateMeetingValidation(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	acme := f.customer(t, "Acme")

	tests := []struct {
		name string
		in   model.NewMeeting
	}{
		{"no customers", model.NewMeeting{Date: fixedNow, ExternalParticipants: "x"}},
		{"no participants", model.NewMeeting{Date: fixedNow, CustomerIDs: []string{acme}, ExternalParticipants: "  "}},
		{"bad customer id", model.NewMeeting{Date: fixedNow, CustomerIDs: []string{"nope"}, ExternalParticipants: "x"}},
		{"unknown customer", model.NewMeeting{Date: fixedNow, CustomerIDs: []string{"6f1c2a57-5d41-4c3e-9a49-1d2a8f0b7c11"}, ExternalParticipants: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateMeeting(f.ctx, alice, tt.in)
			assert.ErrorIs(t, err, model.ErrInvalid)
		})
	}
}

func TestListMeetings(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	bob := f.user(t, "bob@example.com", model.RoleEmployee)
	manager := f.user(t, "mgr@example.com", model.RoleManager)
	acme := f.customer(t, "Acme")
	f.meeting(t, alice, fixedNow.Add(-time.Hour), acme)
	latest := f.meeting(t, alice, fixedNow, acme)

	own, err := f.svc.ListMeetings(f.ctx, alice, "")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, latest.ID, own[0].ID)

	_, err = f.svc.ListMeetings(f.ctx, bob, alice.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	other, err := f.svc.ListMeetings(f.ctx, manager, alice.ID)
	require.NoError(t, err)
	assert.Len(t, other, 2)

	_, err = f.svc.ListMeetings(f.ctx, manager, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.GetMeeting(f.ctx, bob, latest.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.GetMeeting(f.ctx, manager, latest.ID)
	assert.NoError(t, err)
}

func TestCustomerAdministration(t *testing.T) {
	f := newFixture(t, nil)
	emp := f.user(t, "emp@example.com", model.RoleEmployee)
	admin := f.user(t, "admin@example.com", model.RoleAdmin)

	_, err := f.svc.CreateCustomer(f.ctx, emp, model.CustomerInput{Name: "Acme"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	c, err := f.svc.CreateCustomer(f.ctx, admin, model.CustomerInput{Name: "  Acme  "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)

	_, err = f.svc.CreateCustomer(f.ctx, admin, model.CustomerInput{Name: "Acme"})
	assert.ErrorIs(t, err, model.ErrConflict)
	_, err = f.svc.CreateCustomer(f.ctx, admin, model.CustomerInput{Name: " "})
	assert.ErrorIs(t, err, model.ErrInvalid)

	found, err := f.svc.SearchCustomers(f.ctx, emp, "ACM")
	require.NoError(t, err)
	require.Len(t, found, 1)
	empty, err := f.svc.SearchCustomers(f.ctx, emp, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	f.meeting(t, emp, fixedNow, c.ID)
	list, err := f.svc.ListCustomers(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].MeetingCount)

	up, err := f.svc.UpdateCustomer(f.ctx, admin, c.ID, model.CustomerInput{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", up.Name)

	_, err = f.svc.UpdateCustomer(f.ctx, emp, "missing", model.CustomerInput{Name: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, f.svc.DeleteCustomer(f.ctx, admin, c.ID))
	assert.ErrorIs(t, f.svc.DeleteCustomer(f.ctx, admin, c.ID), model.ErrNotFound)

	// the meeting survives without the association
	own, err := f.svc.ListMeetings(f.ctx, emp, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Empty(t, own[0].Customers)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t, nil)
	emp := f.user(t, "emp@example.com", model.RoleEmployee)
	mgr := f.user(t, "mgr@example.com", model.RoleManager)
	admin := f.user(t, "admin@example.com", model.RoleAdmin)

	_, err := f.svc.ListUsers(f.ctx, mgr)
	assert.ErrorIs(t, err, model.ErrForbidden)
	users, err := f.svc.ListUsers(f.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = f.svc.UpdateUser(f.ctx, admin, emp.ID, model.UserUpdate{Role: model.RoleManager, Target: 101})
	assert.ErrorIs(t, err, model.ErrInvalid)
	_, err = f.svc.UpdateUser(f.ctx, admin, emp.ID, model.UserUpdate{Role: "BOSS", Target: 10})
	assert.ErrorIs(t, err, model.ErrInvalid)
	_, err = f.svc.UpdateUser(f.ctx, mgr, emp.ID, model.UserUpdate{Role: model.RoleAdmin, Target: 10})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.UpdateUser(f.ctx, admin, "missing", model.UserUpdate{Role: model.RoleAdmin, Target: 10})
	assert.ErrorIs(t, err, model.ErrNotFound)

	u, err := f.svc.UpdateUser(f.ctx, admin, emp.ID, model.UserUpdate{Role: model.RoleManager, Target: 12})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, u.Role)
	assert.Equal(t, 12, u.Target)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	acme := f.customer(t, "Acme")

	f.meeting(t, alice, time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC), acme) // previous month
	f.meeting(t, alice, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), acme)  // this month, last week
	f.meeting(t, alice, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), acme) // Sunday, this week
	f.meeting(t, alice, time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), acme)

	d, err := f.svc.Dashboard(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, d.WeekCount)
	assert.Equal(t, 3, d.MonthCount)
	assert.Equal(t, 8, d.Target)
	assert.InDelta(t, 37.5, d.Progress, 0.001)
	assert.Len(t, d.Recent, 4)

	_, err = f.svc.Dashboard(f.ctx, nil)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestReports(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	bob := f.user(t, "bob@example.com", model.RoleEmployee)
	mgr := f.user(t, "mgr@example.com", model.RoleManager)
	acme := f.customer(t, "Acme")
	beta := f.customer(t, "Beta")

	f.meeting(t, bob, time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC), beta)
	f.meeting(t, alice, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), acme, beta)
	f.meeting(t, alice, time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC), acme)

	_, err := f.svc.Report(f.ctx, alice, ReportRequest{})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.Report(f.ctx, mgr, ReportRequest{Type: "bogus"})
	assert.ErrorIs(t, err, model.ErrInvalid)
	_, err = f.svc.Report(f.ctx, mgr, ReportRequest{StartDate: "03/01/2024"})
	assert.ErrorIs(t, err, model.ErrInvalid)
	_, err = f.svc.Report(f.ctx, mgr, ReportRequest{StartDate: "2024-03-10", EndDate: "2024-03-01"})
	assert.ErrorIs(t, err, model.ErrInvalid)

	r, err := f.svc.Report(f.ctx, mgr, ReportRequest{})
	require.NoError(t, err)
	require.Len(t, r.ByUser, 2)
	assert.Equal(t, alice.ID, r.ByUser[0].UserID)
	assert.Equal(t, 2, r.ByUser[0].Count)

	// endDate covers the whole day
	r, err = f.svc.Report(f.ctx, mgr, ReportRequest{Type: "customer", StartDate: "2024-03-01", EndDate: "2024-03-12"})
	require.NoError(t, err)
	assert.Equal(t, []report.CustomerCount{
		{CustomerID: acme, CustomerName: "Acme", Count: 2},
		{CustomerID: beta, CustomerName: "Beta", Count: 1},
	}, r.ByCustomer)

	// filtering by customer selects meetings, co-customers are still counted
	r, err = f.svc.Report(f.ctx, mgr, ReportRequest{Type: "customer", CustomerID: acme})
	require.NoError(t, err)
	assert.Equal(t, []report.CustomerCount{
		{CustomerID: acme, CustomerName: "Acme", Count: 2},
		{CustomerID: beta, CustomerName: "Beta", Count: 1},
	}, r.ByCustomer)

	r, err = f.svc.Report(f.ctx, mgr, ReportRequest{Type: "period", CustomerID: beta})
	require.NoError(t, err)
	assert.Equal(t, []report.PeriodCount{{Period: "2024-02", Count: 1}, {Period: "2024-03", Count: 1}}, r.ByPeriod)

	r, err = f.svc.Report(f.ctx, mgr, ReportRequest{Type: "user", UserID: bob.ID})
	require.NoError(t, err)
	require.Len(t, r.ByUser, 1)
	assert.Equal(t, bob.ID, r.ByUser[0].UserID)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com", model.RoleEmployee)
	bob := f.user(t, "bob@example.com", model.RoleEmployee)
	mgr := f.user(t, "mgr@example.com", model.RoleManager)
	acme := f.customer(t, "Acme")

	f.meeting(t, bob, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), acme)
	f.meeting(t, bob, time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), acme)
	f.meeting(t, alice, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), acme)

	_, err := f.svc.Leaderboard(f.ctx, alice, "week")
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.svc.Leaderboard(f.ctx, mgr, "year")
	assert.ErrorIs(t, err, model.ErrInvalid)

	week, err := f.svc.Leaderboard(f.ctx, mgr, "")
	require.NoError(t, err)
	assert.Equal(t, report.Week, week.Period)
	require.Len(t, week.Entries, 1)
	assert.Equal(t, alice.ID, week.Entries[0].UserID)
	assert.Equal(t, "alice@example.com", week.Entries[0].Name)

	month, err := f.svc.Leaderboard(f.ctx, mgr, "month")
	require.NoError(t, err)
	require.Len(t, month.Entries, 2)
	assert.Equal(t, bob.ID, month.Entries[0].UserID)
	assert.Equal(t, 2, month.Entries[0].Count)
}
