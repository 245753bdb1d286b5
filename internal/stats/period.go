package stats

import (
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
)

// PeriodWindower returns the window of a budget period that contains now.
// Windows are computed in now's location.
type PeriodWindower interface {
	Window(now time.Time) core.Window
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type DailyWindow struct{}

func (DailyWindow) Window(now time.Time) core.Window {
	start := startOfDay(now)
	return core.Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeeklyWindow is the ISO week, Monday to Sunday.
type WeeklyWindow struct{}

func (WeeklyWindow) Window(now time.Time) core.Window {
	offset := (int(now.Weekday()) + 6) % 7 // Monday = 0
	start := startOfDay(now).AddDate(0, 0, -offset)
	return core.Window{Start: start, End: start.AddDate(0, 0, 7)}
}

type MonthlyWindow struct{}

func (MonthlyWindow) Window(now time.Time) core.Window {
	return core.MonthWindow(now)
}

type YearlyWindow struct{}

func (YearlyWindow) Window(now time.Time) core.Window {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return core.Window{Start: start, End: start.AddDate(1, 0, 0)}
}

var (
	windowersMu sync.RWMutex
	windowers   = map[core.Period]PeriodWindower{
		core.Daily:   DailyWindow{},
		core.Weekly:  WeeklyWindow{},
		core.Monthly: MonthlyWindow{},
		core.Yearly:  YearlyWindow{},
	}
)

// GetPeriodWindower returns the strategy registered for p.
func GetPeriodWindower(p core.Period) (PeriodWindower, error) {
	windowersMu.RLock()
	defer windowersMu.RUnlock()
	w, ok := windowers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(p))
	}
	return w, nil
}

// RegisterPeriodWindower adds or replaces the strategy for p.
func RegisterPeriodWindower(p core.Period, w PeriodWindower) {
	windowersMu.Lock()
	defer windowersMu.Unlock()
	windowers[p] = w
}

// PeriodWindow returns the window of period p containing now.
func PeriodWindow(p core.Period, now time.Time) (core.Window, error) {
	w, err := GetPeriodWindower(p)
	if err != nil {
		return core.Window{}, err
	}
	return w.Window(now), nil
}
