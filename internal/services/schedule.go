package services

import (
	"time"

	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// ActiveWindowAt returns the first of the subscription's configured windows
// that is active at the given instant, or nil. Both window boundaries are
// inclusive. Windows with an unknown timezone or malformed times are treated
// as inactive rather than erroring.
func ActiveWindowAt(sub *models.Subscription, nowUTC time.Time) *models.ActiveWindow {
	for i := range sub.Windows {
		if windowActiveAt(&sub.Windows[i], nowUTC) {
			return &sub.Windows[i]
		}
	}
	return nil
}

// WindowRemaining returns how long the window stays active from the given
// instant. Zero or negative means the window is over (or never active today).
func WindowRemaining(window *models.ActiveWindow, nowUTC time.Time) time.Duration {
	loc, err := time.LoadLocation(window.Timezone)
	if err != nil {
		return 0
	}
	local := nowUTC.In(loc)

	endSecs, ok := parseClock(window.End)
	if !ok {
		return 0
	}

	return time.Duration(endSecs-secondsOfDay(local)) * time.Second
}

func windowActiveAt(window *models.ActiveWindow, nowUTC time.Time) bool {
	loc, err := time.LoadLocation(window.Timezone)
	if err != nil {
		return false
	}
	local := nowUTC.In(loc)

	if !containsDay(window.Days, local.Weekday()) {
		return false
	}

	startSecs, ok := parseClock(window.Start)
	if !ok {
		return false
	}
	endSecs, ok := parseClock(window.End)
	if !ok {
		return false
	}

	now := secondsOfDay(local)
	return now >= startSecs && now <= endSecs
}

func containsDay(days []string, weekday time.Weekday) bool {
	name := weekday.String()
	for _, day := range days {
		if day == name {
			return true
		}
	}
	return false
}

// parseClock parses an "HH:MM" local time into seconds since midnight
func parseClock(clock string) (int, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return t.Hour()*3600 + t.Minute()*60, true
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
