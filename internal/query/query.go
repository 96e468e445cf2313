// Package query holds the read functions consumed by calendar views. Every
// function is pure: it never mutates its input and always returns a fresh,
// non-nil slice of copies.
package query

import (
	"strings"
	"time"

	"github.com/samber/mo"

	"lusocal/internal/model"
)

func where(events []model.CalendarEvent, keep func(model.CalendarEvent) bool) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0)
	for _, ev := range events {
		if keep(ev) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ByMonth returns events whose date falls in the given year and month.
func ByMonth(events []model.CalendarEvent, year int, month time.Month) []model.CalendarEvent {
	return where(events, func(ev model.CalendarEvent) bool {
		return ev.Date.Year() == year && ev.Date.Month() == month
	})
}

// ByType matches typeOrCategory against either the type tag or the
// category, so a category spelled like a type tag matches too. A blank
// argument matches nothing.
func ByType(events []model.CalendarEvent, typeOrCategory string) []model.CalendarEvent {
	want := strings.TrimSpace(typeOrCategory)
	if want == "" {
		return []model.CalendarEvent{}
	}
	return where(events, func(ev model.CalendarEvent) bool {
		return strings.EqualFold(string(ev.Type), want) || strings.EqualFold(ev.Category, want)
	})
}

// ByCountry is a case-insensitive substring match on the country field or
// on any entry of the countries list.
func ByCountry(events []model.CalendarEvent, fragment string) []model.CalendarEvent {
	return where(events, func(ev model.CalendarEvent) bool {
		return matchesCountry(ev, fragment)
	})
}

func matchesCountry(ev model.CalendarEvent, fragment string) bool {
	if containsFold(ev.Country, fragment) {
		return true
	}
	for _, c := range ev.Countries {
		if containsFold(c, fragment) {
			return true
		}
	}
	return false
}

// ByTag matches events carrying tag (case-insensitive, exact).
func ByTag(events []model.CalendarEvent, tag string) []model.CalendarEvent {
	return where(events, func(ev model.CalendarEvent) bool {
		for _, t := range ev.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

// ByID returns the event with the exact id, if any.
func ByID(events []model.CalendarEvent, id string) mo.Option[model.CalendarEvent] {
	for _, ev := range events {
		if ev.ID == id {
			return mo.Some(ev.Clone())
		}
	}
	return mo.None[model.CalendarEvent]()
}

// Search matches q case-insensitively against both titles, both
// descriptions, tags, location and venue. A blank query returns everything.
func Search(events []model.CalendarEvent, q string) []model.CalendarEvent {
	q = strings.TrimSpace(q)
	if q == "" {
		return model.CloneAll(events)
	}
	return where(events, func(ev model.CalendarEvent) bool {
		fields := []string{
			ev.Title.EN, ev.Title.PT,
			ev.Description.EN, ev.Description.PT,
			ev.Location, ev.Venue,
		}
		fields = append(fields, ev.Tags...)
		for _, f := range fields {
			if containsFold(f, q) {
				return true
			}
		}
		return false
	})
}

// CulturalHolidays returns the celebrations of a month.
func CulturalHolidays(events []model.CalendarEvent, year int, month time.Month) []model.CalendarEvent {
	return where(ByMonth(events, year, month), func(ev model.CalendarEvent) bool {
		return ev.Type == model.TypeCelebration
	})
}

// Upcoming returns the first limit events (in input order) starting at or
// after now. Input is expected to be sorted by date.
func Upcoming(events []model.CalendarEvent, now time.Time, limit int) []model.CalendarEvent {
	if limit <= 0 {
		return []model.CalendarEvent{}
	}
	out := make([]model.CalendarEvent, 0, limit)
	for _, ev := range events {
		if len(out) >= limit {
			break
		}
		if !ev.StartsAt().Before(now) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// UpcomingWithin returns events starting in [now, now+days].
func UpcomingWithin(events []model.CalendarEvent, now time.Time, days int) []model.CalendarEvent {
	if days < 0 {
		return []model.CalendarEvent{}
	}
	horizon := now.AddDate(0, 0, days)
	return where(events, func(ev model.CalendarEvent) bool {
		at := ev.StartsAt()
		return !at.Before(now) && !at.After(horizon)
	})
}
