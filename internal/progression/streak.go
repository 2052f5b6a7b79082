package progression

import (
	"time"

	"heritagequest/internal/models"
)

// UpdateStreak records play on the given day. Dates are UTC calendar dates.
// It reports whether the profile changed.
func UpdateStreak(p models.Profile, today time.Time) (models.Profile, bool) {
	today = models.CalendarDate(today)

	if p.LastPlayedDate != nil {
		last := models.CalendarDate(*p.LastPlayedDate)
		switch {
		case last.Equal(today):
			return p, false
		case last.AddDate(0, 0, 1).Equal(today):
			p.Streak++
			p.LastPlayedDate = &today
			return p, true
		}
	}

	p.Streak = 1
	p.LastPlayedDate = &today
	return p, true
}
