package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	Food      Category = "Food"
	Transport Category = "Transport"
	Bills     Category = "Bills"
	Shopping  Category = "Shopping"
	Other     Category = "Other"
)

// DateLayout is the ISO 8601 calendar date layout used on disk and on the wire.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of month keys produced by Date.MonthKey.
const MonthLayout = "2006-01"

// MaxDescriptionLen bounds the free-text description.
const MaxDescriptionLen = 200

type (
	// Category is one of a closed set of spending categories.
	Category string

	Date struct {
		time.Time
	}

	// Expense is one logged transaction. ID is assigned by the ledger on creation.
	Expense struct {
		Date        Date     `json:"date"`
		Category    Category `json:"category"`
		Amount      Money    `json:"amount"`
		Description string   `json:"description"`
		ID          string   `json:"id,omitempty"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLen)
)

var categories = []Category{Food, Transport, Bills, Shopping, Other}

// Categories returns the closed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches s against the category set, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is a member of the category set.
func (c Category) Valid() bool {
	return c.Ordinal() >= 0
}

// Ordinal returns the display position of c, or -1 for unknown categories.
func (c Category) Ordinal() int {
	for i, known := range categories {
		if known == c {
			return i
		}
	}
	return -1
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current local calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey truncates the date to its month, e.g. "2024-01".
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return d.UnmarshalText([]byte(s))
}

// Validate checks a new record before it enters the ledger. On top of
// ValidateStored it bounds the description length.
func (e Expense) Validate() error {
	if err := e.ValidateStored(); err != nil {
		return err
	}
	if len([]rune(e.Description)) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateStored checks what every persisted record must satisfy: a real
// date, a known category and a non-negative amount. Descriptions are free
// text on load.
func (e Expense) ValidateStored() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(e.Category))
	}
	return e.Amount.Validate()
}

// CleanDescription trims s and drops control characters, turning line
// breaks and tabs into single spaces.
func CleanDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Month returns the YYYY-MM key of the expense date.
func (e Expense) Month() string {
	return e.Date.MonthKey()
}
