package university

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lusocal/internal/model"
	"lusocal/internal/recurrence"
)

const (
	Authenticity = 85
	Country      = "United Kingdom"
	// YearToken may be used in a spec date instead of a literal year.
	YearToken = "{year}"
)

// Accessibility advertised for every university-network venue.
var Accessibility = model.Accessibility{
	WheelchairAccessible: true,
	SignLanguage:         true,
	AudioDescription:     false,
}

var (
	literalYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	errNoYear = errors.New("date has no template year")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"02/01/2006",
}

// Error reports a spec that could not be projected onto a year.
type Error struct {
	SpecID string
	Year   int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("university spec %q year %d: %v", e.SpecID, e.Year, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Instantiate projects every spec onto currentYear and currentYear+1. A spec
// whose date cannot be projected for a year is skipped for that year and
// reported in errs; the remaining specs and years are unaffected.
func Instantiate(specs []model.UniversityEventSpec, currentYear int) (events []model.CalendarEvent, errs []error) {
	events = make([]model.CalendarEvent, 0, len(specs)*2)
	for _, spec := range specs {
		for _, year := range []int{currentYear, currentYear + 1} {
			ev, err := Project(spec, year)
			if err != nil {
				errs = append(errs, &Error{SpecID: spec.ID, Year: year, Err: err})
				continue
			}
			events = append(events, ev)
		}
	}
	return events, errs
}

// Project builds the occurrence of spec in year.
func Project(spec model.UniversityEventSpec, year int) (model.CalendarEvent, error) {
	day, err := DateIn(spec.Date, year)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	h, m, ok := model.ParseClock(spec.Time)
	if !ok {
		return model.CalendarEvent{}, fmt.Errorf("invalid time %q", spec.Time)
	}

	pattern := ""
	if spec.IsRecurring {
		pattern = "yearly"
	}

	return model.CalendarEvent{
		ID:                fmt.Sprintf("university-%s-%d", spec.ID, day.UnixMilli()),
		Title:             spec.Title,
		Description:       spec.Description,
		Date:              day,
		StartTime:         model.FormatClock(h, m),
		EndTime:           recurrence.ComputeEndTime(spec.Time, spec.Duration),
		Type:              model.TypeUniversity,
		Category:          spec.Category,
		Location:          spec.Location,
		Organizer:         spec.University,
		Capacity:          spec.Capacity,
		Country:           Country,
		Tags:              tags(spec),
		IsRecurring:       spec.IsRecurring,
		RecurrencePattern: pattern,
		AuthenticityScore: Authenticity,
		Accessibility:     Accessibility,
		University:        spec.University,
	}, nil
}

// DateIn substitutes year for the template year of raw and parses the
// result as a local calendar day. Dates that do not exist in year (29
// February) are rejected.
func DateIn(raw string, year int) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	y := strconv.Itoa(year)

	var s string
	switch {
	case strings.Contains(raw, YearToken):
		s = strings.ReplaceAll(raw, YearToken, y)
	case literalYear.MatchString(raw):
		loc := literalYear.FindStringIndex(raw)
		s = raw[:loc[0]] + y + raw[loc[1]:]
	default:
		return time.Time{}, errNoYear
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return model.DayOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func tags(spec model.UniversityEventSpec) []string {
	out := []string{"university", "students"}
	if spec.Category != "" {
		out = append(out, spec.Category)
	}
	return out
}
