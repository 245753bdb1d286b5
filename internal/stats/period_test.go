package stats

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestPeriodWindow(t *testing.T) {
	// Thursday
	now := time.Date(2025, 1, 16, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    core.Period
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "daily is the calendar day",
			period:    core.Daily,
			wantStart: time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekly starts on Monday",
			period:    core.Weekly,
			wantStart: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly is the calendar month",
			period:    core.Monthly,
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "yearly is the calendar year",
			period:    core.Yearly,
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := PeriodWindow(tt.period, now)
			if err != nil {
				t.Fatalf("PeriodWindow() error = %v", err)
			}
			if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
				t.Errorf("PeriodWindow() = [%v, %v), want [%v, %v)", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
			if !w.Contains(now) {
				t.Errorf("window does not contain now")
			}
		})
	}
}

func TestWeeklyWindowOnSunday(t *testing.T) {
	sunday := time.Date(2025, 1, 19, 23, 0, 0, 0, time.UTC)
	w := WeeklyWindow{}.Window(sunday)
	if w.Start.Weekday() != time.Monday || !w.Start.Equal(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WeeklyWindow.Window() start = %v", w.Start)
	}
}

type fortnightWindow struct{}

func (fortnightWindow) Window(now time.Time) core.Window {
	start := startOfDay(now)
	return core.Window{Start: start, End: start.AddDate(0, 0, 14)}
}

func TestRegisterPeriodWindower(t *testing.T) {
	const fortnightly core.Period = "fortnightly"

	if _, err := GetPeriodWindower(fortnightly); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("GetPeriodWindower() error = %v, want ErrInvalidPeriod", err)
	}

	RegisterPeriodWindower(fortnightly, fortnightWindow{})
	t.Cleanup(func() {
		windowersMu.Lock()
		delete(windowers, fortnightly)
		windowersMu.Unlock()
	})

	w, err := PeriodWindow(fortnightly, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PeriodWindow() error = %v", err)
	}
	if got := w.End.Sub(w.Start); got != 14*24*time.Hour {
		t.Errorf("window length = %v, want 14 days", got)
	}
}
