package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"lusocal/internal/model"
)

// ProductID is written as PRODID of exported calendars.
const ProductID = "-//lusocal//Lusophone Cultural Calendar//EN"

// Export serializes events as an iCalendar document. Titles and
// descriptions use the English text. stamp is used for DTSTAMP so output
// is reproducible for a given snapshot.
func Export(events []model.CalendarEvent, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		start, end := span(ev)

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(ev.Title.EN)
		if ev.Description.EN != "" {
			ve.SetDescription(ev.Description.EN)
		}
		if loc := location(ev); loc != "" {
			ve.SetLocation(loc)
		}
		if len(ev.Tags) > 0 {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(ev.Tags, ","))
		}
	}
	return cal.Serialize()
}

// span returns the instants an event starts and ends. An end clock before
// the start clock means the event runs past midnight.
func span(ev model.CalendarEvent) (time.Time, time.Time) {
	start := ev.StartsAt()
	h, m, ok := model.ParseClock(ev.EndTime)
	if !ok {
		return start, start
	}
	end := time.Date(start.Year(), start.Month(), start.Day(), h, m, 0, 0, start.Location())
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func location(ev model.CalendarEvent) string {
	switch {
	case ev.Address != "" && ev.Location != "":
		return ev.Location + ", " + ev.Address
	case ev.Location != "":
		return ev.Location
	default:
		return ev.Address
	}
}
