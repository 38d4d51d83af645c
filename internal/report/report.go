// Package report reduces meeting records into ranked and grouped counts.
package report

import (
	"fmt"
	"sort"
	"time"
)

// LeaderboardSize is the number of entries kept on the leaderboard.
const LeaderboardSize = 3

// DefaultTarget applies when a user has no monthly target.
const DefaultTarget = 8

// MeetingOwner is one meeting reduced to its owner.
type MeetingOwner struct {
	UserID string
	Name   string
	Email  string
	Image  string
}

type UserCount struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Image  string `json:"image,omitempty"`
	Count  int    `json:"count"`
}

// MeetingCustomer is one meeting↔customer association.
type MeetingCustomer struct {
	CustomerID   string
	CustomerName string
}

type CustomerCount struct {
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	Count        int    `json:"count"`
}

type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// CountByUser counts meetings per user, highest first. Users with equal
// counts keep the order in which they first appear in rows.
func CountByUser(rows []MeetingOwner) []UserCount {
	idx := make(map[string]int, len(rows))
	out := make([]UserCount, 0)
	for _, r := range rows {
		if i, ok := idx[r.UserID]; ok {
			out[i].Count++
			continue
		}
		idx[r.UserID] = len(out)
		out = append(out, UserCount{
			UserID: r.UserID,
			Name:   r.Name,
			Email:  r.Email,
			Image:  r.Image,
			Count:  1,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Leaderboard is CountByUser truncated to the top entries, with the display
// name falling back to the e-mail.
func Leaderboard(rows []MeetingOwner) []UserCount {
	out := CountByUser(rows)
	if len(out) > LeaderboardSize {
		out = out[:LeaderboardSize]
	}
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = out[i].Email
		}
	}
	return out
}

// CountByCustomer counts associations per customer, highest first, ties in
// first-encounter order.
func CountByCustomer(rows []MeetingCustomer) []CustomerCount {
	idx := make(map[string]int, len(rows))
	out := make([]CustomerCount, 0)
	for _, r := range rows {
		if i, ok := idx[r.CustomerID]; ok {
			out[i].Count++
			continue
		}
		idx[r.CustomerID] = len(out)
		out = append(out, CustomerCount{CustomerID: r.CustomerID, CustomerName: r.CustomerName, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// PeriodKey is the YYYY-MM bucket of t, taken from t's own calendar fields.
func PeriodKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// CountByPeriod counts dates per calendar month, oldest month first.
func CountByPeriod(dates []time.Time) []PeriodCount {
	counts := make(map[string]int)
	for _, d := range dates {
		counts[PeriodKey(d)]++
	}
	out := make([]PeriodCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, PeriodCount{Period: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Progress is the share of the monthly target reached, in percent, capped at 100.
func Progress(monthCount, target int) float64 {
	if target <= 0 {
		target = DefaultTarget
	}
	p := float64(monthCount) / float64(target) * 100
	if p > 100 {
		return 100
	}
	return p
}
