package service

import (
	"context"
	"fmt"
	"time"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
	"meeting-tracker/internal/report"
)

// ReportRequest is the raw report query. Dates accept YYYY-MM-DD, read in
// the configured zone, or RFC 3339.
type ReportRequest struct {
	Type       string
	StartDate  string
	EndDate    string
	UserID     string
	CustomerID string
}

// Leaderboard is the ranked top of one window.
type Leaderboard struct {
	Period  report.Window      `json:"period"`
	Since   time.Time          `json:"since"`
	Entries []report.UserCount `json:"entries"`
}

// ParseDate reads YYYY-MM-DD in the configured zone, or RFC 3339. An empty
// value yields nil.
func (s *Service) ParseDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, s.loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, model.Invalidf("%s must be YYYY-MM-DD or RFC 3339", field)
	}
	return &t, nil
}

func (s *Service) reportFilter(req ReportRequest) (model.MeetingFilter, error) {
	from, err := s.ParseDate("startDate", req.StartDate)
	if err != nil {
		return model.MeetingFilter{}, err
	}
	to, err := s.ParseDate("endDate", req.EndDate)
	if err != nil {
		return model.MeetingFilter{}, err
	}
	if to != nil {
		end := report.EndOfDay(*to)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return model.MeetingFilter{}, model.Invalidf("endDate is before startDate")
	}
	return model.MeetingFilter{From: from, To: to, UserID: req.UserID, CustomerID: req.CustomerID}, nil
}

// Report groups every meeting matching the request by the requested kind.
func (s *Service) Report(ctx context.Context, actor *policy.Actor, req ReportRequest) (*report.Report, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ViewReports, nil); err != nil {
		return nil, err
	}
	kind, err := report.ParseKind(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalid, err)
	}
	f, err := s.reportFilter(req)
	if err != nil {
		return nil, err
	}

	out := &report.Report{Kind: kind}
	switch kind {
	case report.ByUser:
		rows, err := s.store.MeetingOwners(ctx, f)
		if err != nil {
			return nil, err
		}
		out.ByUser = report.CountByUser(rows)
	case report.ByCustomer:
		rows, err := s.store.MeetingCustomers(ctx, f)
		if err != nil {
			return nil, err
		}
		out.ByCustomer = report.CountByCustomer(rows)
	case report.ByPeriod:
		dates, err := s.store.MeetingDates(ctx, f)
		if err != nil {
			return nil, err
		}
		for i := range dates {
			dates[i] = dates[i].In(s.loc)
		}
		out.ByPeriod = report.CountByPeriod(dates)
	}
	return out, nil
}

// Leaderboard ranks users by meetings since the start of the current week
// or month.
func (s *Service) Leaderboard(ctx context.Context, actor *policy.Actor, period string) (*Leaderboard, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ViewReports, nil); err != nil {
		return nil, err
	}
	w, err := report.ParseWindow(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalid, err)
	}
	since := w.Start(s.clock())
	rows, err := s.store.MeetingOwners(ctx, model.MeetingFilter{From: &since})
	if err != nil {
		return nil, err
	}
	return &Leaderboard{Period: w, Since: since, Entries: report.Leaderboard(rows)}, nil
}
