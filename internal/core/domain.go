package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	maxCategoryName   = 50
	maxTitle          = 100
	maxDescription    = 500
	maxColor          = 0xFFFFFF
	defaultColorValue = 0x9E9E9E
)

type (
	// Period is the recurrence of a budget cap.
	Period string

	Money struct {
		Cents int64
	}

	Category struct {
		ID         int64
		Name       string
		Color      uint32 // 0xRRGGBB
		Icon       string
		Predefined bool
	}

	Transaction struct {
		ID          int64
		Amount      Money
		Title       string
		Description string
		CategoryID  int64
		Date        time.Time
		IsExpense   bool
	}

	Budget struct {
		ID         int64
		CategoryID int64
		Amount     Money
		Period     Period
	}

	// Window is a half-open time range [Start, End).
	Window struct {
		Start time.Time
		End   time.Time
	}
)

// Periods lists the supported budget periods in display order.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly, Yearly}
}

func (p Period) Validate() error {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}

// ParsePeriod normalizes user input into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// MonthWindow returns the calendar month containing t, in t's location.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxCategoryName {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, maxCategoryName)
	}
	if c.Color > maxColor {
		return fmt.Errorf("%w: color %#x is not an RGB value", ErrValidation, c.Color)
	}
	return nil
}

// ColorHex renders the color as #RRGGBB.
func (c Category) ColorHex() string {
	return fmt.Sprintf("#%06X", c.Color&maxColor)
}

// ParseColor accepts "#RRGGBB", "RRGGBB" or "0xRRGGBB". Empty input yields a neutral grey.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultColorValue, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x"), "0X")
	if len(s) != 6 {
		return 0, fmt.Errorf("%w: color must have 6 hex digits", ErrValidation)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid color %q", ErrValidation, s)
	}
	return uint32(v), nil
}

func (t Transaction) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitle {
		return fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, maxTitle)
	}
	if len(t.Description) > maxDescription {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescription)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return ErrNoCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() int64 {
	if t.IsExpense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

func (b Budget) Validate() error {
	if b.CategoryID <= 0 {
		return ErrNoCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.Period.Validate()
}
