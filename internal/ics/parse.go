package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "lusocal/internal/log"
)

// ParsedEvent is one VEVENT of a community feed before recurrence
// expansion.
type ParsedEvent struct {
	Feed Feed

	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	Categories  []string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time

	// RecurrenceID is set when this VEVENT overrides one instance of a
	// recurring event with the same UID.
	RecurrenceID *time.Time
}

// ParseICS decodes a feed payload. A VEVENT that cannot be read is logged
// and skipped; only an unreadable calendar is an error.
func ParseICS(feed Feed, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]ParsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve)
		if err != nil {
			appLog.Warn("ics: skipping vevent", "feed", feed.ID, "error", err)
			continue
		}
		out = append(out, ev)
	}

	appLog.Debug("ics parse completed", "feed", feed.ID, "events", len(out))
	return out, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (ParsedEvent, error) {
	ev := ParsedEvent{Feed: feed}

	ev.UID = propValue(ve, ical.ComponentPropertyUniqueId)
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}
	ev.Summary = propValue(ve, ical.ComponentPropertySummary)
	ev.Description = propValue(ve, ical.ComponentPropertyDescription)
	ev.Location = propValue(ve, ical.ComponentPropertyLocation)
	ev.URL = propValue(ve, ical.ComponentPropertyUrl)
	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				ev.Categories = append(ev.Categories, c)
			}
		}
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = isDateValue(dtstart)

	var err error
	if ev.AllDay {
		ev.Start, err = ve.GetAllDayStartAt()
	} else {
		ev.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, err
	}

	if ev.AllDay {
		ev.End, err = ve.GetAllDayEndAt()
	} else {
		ev.End, err = ve.GetEndAt()
	}
	if err != nil || ev.End.Before(ev.Start) {
		// DTEND is optional; an event without one is treated as instantaneous
		// (or one day long when all-day).
		ev.End = ev.Start
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		}
	}

	ev.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzidLocation(p)); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty(ical.ComponentPropertyRecurrenceId); rid != nil {
		if t, err := parseICSTime(rid.Value, tzidLocation(rid)); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// isDateValue reports whether a DTSTART carries a DATE rather than a
// DATE-TIME.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// tzidLocation resolves a property's TZID parameter. Unknown or missing
// zones fall back to time.Local.
func tzidLocation(p *ical.IANAProperty) *time.Location {
	if vs, ok := p.ICalParameters["TZID"]; ok && len(vs) > 0 {
		if loc, err := time.LoadLocation(strings.Trim(vs[0], `"`)); err == nil {
			return loc
		}
	}
	return time.Local
}

// parseICSTime handles the UTC, zoned and date-only forms used by EXDATE
// and RECURRENCE-ID. Non-UTC values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
