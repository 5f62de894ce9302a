package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// Period selects how far back History looks.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	case "":
		return PeriodWeek, nil
	}
	return "", fmt.Errorf("unknown period %q (want today, week, month or all)", s)
}

// FilterByStatus keeps the incidents in status, preserving order.
func FilterByStatus(incs []models.Incident, status models.Status) []models.Incident {
	out := make([]models.Incident, 0, len(incs))
	for _, inc := range incs {
		if inc.Status == status {
			out = append(out, inc)
		}
	}
	return out
}

// History returns the resolved incidents last updated within period of
// now, newest first. "today" is the calendar day of now in now's location.
func History(incs []models.Incident, period Period, now time.Time) []models.Incident {
	var since time.Time
	switch period {
	case PeriodToday:
		y, m, d := now.Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		since = now.AddDate(0, 0, -7)
	case PeriodMonth:
		since = now.AddDate(0, -1, 0)
	}

	out := FilterByStatus(incs, models.StatusResolved)
	if !since.IsZero() {
		kept := out[:0]
		for _, inc := range out {
			if !inc.UpdatedAt.Before(since) && !inc.UpdatedAt.After(now) {
				kept = append(kept, inc)
			}
		}
		out = kept
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
