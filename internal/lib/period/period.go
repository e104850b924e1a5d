// Package period resolves named billing period templates into due dates.
// A template is a calendar offset applied to the creation date, so a
// monthly payment created on Jan 15 is due Feb 15 regardless of month
// length quirks handled by time.AddDate.
package period

import (
	"fmt"
	"time"
)

// Known period templates.
const (
	PerSession = "per_session"
	Monthly    = "monthly"
	Quarterly  = "quarterly"
	Biannually = "biannually"
	Annually   = "annually"
)

// Resolve returns the due date for a template applied to the given day.
// The result keeps the date-only resolution of its input.
func Resolve(template string, today time.Time) (time.Time, error) {
	const op = "period.Resolve"
	day := today.Truncate(24 * time.Hour)
	switch template {
	case PerSession:
		return day, nil
	case Monthly:
		return day.AddDate(0, 1, 0), nil
	case Quarterly:
		return day.AddDate(0, 3, 0), nil
	case Biannually:
		return day.AddDate(0, 6, 0), nil
	case Annually:
		return day.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%s: unknown period template %q", op, template)
	}
}
