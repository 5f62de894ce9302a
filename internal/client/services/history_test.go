package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

func TestParsePeriod(t *testing.T) {
	for _, in := range []string{"today", "WEEK", " month ", "all"} {
		_, err := ParsePeriod(in)
		require.NoError(t, err, in)
	}
	p, err := ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("year")
	require.Error(t, err)
}

func TestHistory(t *testing.T) {
	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	at := func(id int64, st models.Status, updated time.Time) models.Incident {
		return models.Incident{ID: id, Status: st, UpdatedAt: updated}
	}
	incs := []models.Incident{
		at(1, models.StatusResolved, now.Add(-2*time.Hour)),
		at(2, models.StatusResolved, now.AddDate(0, 0, -3)),
		at(3, models.StatusResolved, now.AddDate(0, 0, -20)),
		at(4, models.StatusResolved, now.AddDate(0, -2, 0)),
		at(5, models.StatusPending, now.Add(-time.Hour)),
		at(6, models.StatusResolved, time.Date(2025, 5, 19, 23, 59, 0, 0, time.UTC)),
	}

	ids := func(in []models.Incident) []int64 {
		out := make([]int64, 0, len(in))
		for _, inc := range in {
			out = append(out, inc.ID)
		}
		return out
	}

	require.Equal(t, []int64{1}, ids(History(incs, PeriodToday, now)))
	require.Equal(t, []int64{1, 6, 2}, ids(History(incs, PeriodWeek, now)))
	require.Equal(t, []int64{1, 6, 2, 3}, ids(History(incs, PeriodMonth, now)))
	require.Equal(t, []int64{1, 6, 2, 3, 4}, ids(History(incs, PeriodAll, now)))

	require.Len(t, incs, 6)
	require.Equal(t, int64(1), incs[0].ID)
}

func TestFilterByStatus(t *testing.T) {
	incs := []models.Incident{
		{ID: 1, Status: models.StatusPending},
		{ID: 2, Status: models.StatusCancelled},
		{ID: 3, Status: models.StatusPending},
	}
	got := FilterByStatus(incs, models.StatusPending)
	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[1].ID)
	require.Empty(t, FilterByStatus(incs, models.StatusResolved))
}
