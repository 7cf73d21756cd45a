package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window does not end strictly after it starts.
var ErrInvalidWindow = errors.New("invalid time window")

// Window is a half-open [Start, End) interval. The zero value is not a valid window;
// build one with New.
type Window struct {
	Start time.Time `gorm:"not null;index" json:"start"`
	End   time.Time `gorm:"not null" json:"end"`
}

// New validates and normalises a window to UTC.
func New(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if !end.After(start) {
		return Window{}, fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidWindow, end.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339))
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether the two windows share any instant. Windows that only
// touch at an endpoint do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// EndsBy reports whether the window is over at t.
func (w Window) EndsBy(t time.Time) bool {
	return !w.End.After(t)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Format renders the window for people in loc, collapsing the date when the window
// starts and ends on the same day.
func (w Window) Format(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start, end := w.Start.In(loc), w.End.In(loc)
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s %s–%s", start.Format("02/01/2006"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s – %s", start.Format("02/01/2006 15:04"), end.Format("02/01/2006 15:04"))
}
