package report

import (
	"encoding/json"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func owners(ids ...string) []MeetingOwner {
	out := make([]MeetingOwner, 0, len(ids))
	for _, id := range ids {
		out = append(out, MeetingOwner{UserID: id, Name: "name-" + id, Email: id + "@example.com"})
	}
	return out
}

func TestCountByUserSortsDescendingStable(t *testing.T) {
	rows := owners("A", "B", "A", "C", "B", "A", "B")
	got := CountByUser(rows)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].UserID)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, "B", got[1].UserID)
	assert.Equal(t, 3, got[1].Count)
	assert.Equal(t, "C", got[2].UserID)
	assert.Equal(t, "name-A", got[0].Name)
}

func TestCountByUserIgnoresInputPermutation(t *testing.T) {
	rows := owners("A", "B", "A", "C", "D", "D", "D", "B", "A", "E")
	want := map[string]int{}
	for _, c := range CountByUser(rows) {
		want[c.UserID] = c.Count
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]MeetingOwner(nil), rows...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := CountByUser(shuffled)
		counts := map[string]int{}
		for _, c := range got {
			counts[c.UserID] = c.Count
		}
		assert.Equal(t, want, counts)
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Count > got[j].Count }))
	}
}

func TestLeaderboardTruncatesAndKeepsTieOrder(t *testing.T) {
	var rows []MeetingOwner
	// first-encounter order A, B, C, D, E with counts 7, 7, 5, 3, 1
	rows = append(rows, owners("A", "B", "C", "D", "E")...)
	for i := 0; i < 6; i++ {
		rows = append(rows, owners("A", "B")...)
	}
	for i := 0; i < 4; i++ {
		rows = append(rows, owners("C")...)
	}
	rows = append(rows, owners("D", "D")...)

	got := Leaderboard(rows)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].UserID, got[1].UserID, got[2].UserID})
	assert.Equal(t, []int{7, 7, 5}, []int{got[0].Count, got[1].Count, got[2].Count})
}

func TestLeaderboardNameFallsBackToEmail(t *testing.T) {
	got := Leaderboard([]MeetingOwner{{UserID: "u", Email: "u@example.com"}})
	require.Len(t, got, 1)
	assert.Equal(t, "u@example.com", got[0].Name)
}

func TestCountByCustomer(t *testing.T) {
	rows := []MeetingCustomer{
		{"c1", "Acme"}, {"c2", "Globex"}, {"c2", "Globex"}, {"c3", "Initech"}, {"c1", "Acme"}, {"c2", "Globex"},
	}
	got := CountByCustomer(rows)
	require.Len(t, got, 3)
	assert.Equal(t, CustomerCount{CustomerID: "c2", CustomerName: "Globex", Count: 3}, got[0])
	assert.Equal(t, CustomerCount{CustomerID: "c1", CustomerName: "Acme", Count: 2}, got[1])
	assert.Equal(t, CustomerCount{CustomerID: "c3", CustomerName: "Initech", Count: 1}, got[2])
}

func TestCountByPeriod(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC),
	}
	got := CountByPeriod(dates)
	assert.Equal(t, []PeriodCount{{Period: "2024-01", Count: 2}, {Period: "2024-02", Count: 1}}, got)
}

func TestPeriodKeyUsesOwnCalendar(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2024-01-31 20:00 UTC is already February in UTC+10
	assert.Equal(t, "2024-02", PeriodKey(time.Date(2024, 2, 1, 6, 0, 0, 0, loc)))
	assert.Equal(t, "0999-03", PeriodKey(time.Date(999, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEmptyInputs(t *testing.T) {
	assert.NotNil(t, CountByUser(nil))
	assert.Empty(t, CountByUser(nil))
	assert.NotNil(t, Leaderboard(nil))
	assert.Empty(t, CountByCustomer(nil))
	assert.NotNil(t, CountByCustomer(nil))
	assert.Empty(t, CountByPeriod(nil))
	assert.NotNil(t, CountByPeriod(nil))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 100.0, Progress(10, 8))
	assert.Equal(t, 50.0, Progress(4, 8))
	assert.Equal(t, 50.0, Progress(4, 0))
	assert.Equal(t, 0.0, Progress(0, 5))
	assert.Equal(t, 100.0, Progress(8, 8))
}

func TestKindAndWindowParsing(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, ByUser, k)
	_, err = ParseKind("team")
	assert.Error(t, err)

	w, err := ParseWindow("month")
	require.NoError(t, err)
	assert.Equal(t, Month, w)
	_, err = ParseWindow("year")
	assert.Error(t, err)
}

func TestReportJSONEmitsSelectedList(t *testing.T) {
	b, err := json.Marshal(&Report{Kind: ByUser})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user","byUser":[]}`, string(b))

	b, err = json.Marshal(Report{Kind: ByPeriod, ByPeriod: []PeriodCount{{Period: "2024-03", Count: 2}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"period","byPeriod":[{"period":"2024-03","count":2}]}`, string(b))
}
