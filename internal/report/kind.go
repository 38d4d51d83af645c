package report

import (
	"encoding/json"
	"fmt"
)

// Kind selects the grouping key of a report.
type Kind string

const (
	ByUser     Kind = "user"
	ByCustomer Kind = "customer"
	ByPeriod   Kind = "period"
)

// ParseKind maps the type query parameter to a Kind; empty means ByUser.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return ByUser, nil
	case ByUser, ByCustomer, ByPeriod:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown report type %q", s)
}

// Report holds exactly one populated grouping, selected by Kind.
type Report struct {
	Kind       Kind            `json:"type"`
	ByUser     []UserCount     `json:"byUser"`
	ByCustomer []CustomerCount `json:"byCustomer"`
	ByPeriod   []PeriodCount   `json:"byPeriod"`
}

// MarshalJSON always emits the list selected by Kind, as [] when empty,
// and omits the other two.
func (r Report) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": r.Kind}
	switch r.Kind {
	case ByUser:
		out["byUser"] = orEmpty(r.ByUser)
	case ByCustomer:
		out["byCustomer"] = orEmpty(r.ByCustomer)
	case ByPeriod:
		out["byPeriod"] = orEmpty(r.ByPeriod)
	}
	return json.Marshal(out)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
