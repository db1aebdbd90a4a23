package billing

import (
	"fmt"
	"time"

	"github.com/condo/backend/internal/domain/shared"
)

// Period is a billing month
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewPeriod creates a validated billing period
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate checks the month and year ranges
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return shared.NewValidationError("month must be between 1 and 12, got %d", p.Month)
	}
	if p.Year < 2000 || p.Year > 9999 {
		return shared.NewValidationError("year must be between 2000 and 9999, got %d", p.Year)
	}
	return nil
}

// LastDay returns the number of days in the month
func (p Period) LastDay() int {
	// day 0 of the next month is the last day of this one
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Deadline returns the payment deadline inside the month, clamping the
// requested day to the month's last day (e.g. 31 in February becomes 28 or 29).
func (p Period) Deadline(day int) time.Time {
	if day > p.LastDay() {
		day = p.LastDay()
	}
	if day < 1 {
		day = 1
	}
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, time.UTC)
}

// String renders the period as MM/YYYY
func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}
