package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "lusocal/internal/log"
	"lusocal/internal/model"
)

// MaxOccurrencesPerEvent caps the expansion of a single RRULE.
const MaxOccurrencesPerEvent = 2000

// CommunityCategory is the category given to every feed event.
const CommunityCategory = "community"

// occurrence is one concrete instance of a ParsedEvent.
// instance is the unmodified recurrence start and keys the event id, so
// a moved instance keeps its id.
type occurrence struct {
	ev         ParsedEvent
	start, end time.Time
	instance   time.Time
}

// Expand turns parsed feed entries into community CalendarEvents whose
// start falls in [from, to] (calendar days, inclusive). RRULE, EXDATE and
// RECURRENCE-ID overrides are honoured; occurrences are converted to
// time.Local.
func Expand(events []ParsedEvent, from, to time.Time) ([]model.CalendarEvent, error) {
	first := model.DayOf(from)
	// Exclusive upper bound: the start of the day after to.
	limit := model.DayOf(to).AddDate(0, 0, 1)
	if !limit.After(first) {
		return nil, errors.New("ics: expand window end is before start")
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	var uids []string
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	var occs []occurrence
	for _, uid := range uids {
		for _, base := range bases[uid] {
			occs = append(occs, expandOne(base, overrides[uid], first, limit)...)
		}
	}

	sort.SliceStable(occs, func(i, j int) bool { return occs[i].start.Before(occs[j].start) })

	out := make([]model.CalendarEvent, 0, len(occs))
	for _, o := range occs {
		out = append(out, toCalendarEvent(o))
	}
	return out, nil
}

func expandOne(ev ParsedEvent, overrides []ParsedEvent, first, limit time.Time) []occurrence {
	if ev.RawRRule == "" {
		if ev.Start.Before(first) || !ev.Start.Before(limit) {
			return nil
		}
		return []occurrence{withOverride(ev, overrides, ev.Start, ev.End)}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics: bad RRULE; skipping", "feed", ev.Feed.ID, "uid", ev.UID, "rrule", ev.RawRRule, "error", err)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(first.In(loc), limit.In(loc), true)
	if len(starts) > MaxOccurrencesPerEvent {
		appLog.Warn("ics: truncating occurrences", "feed", ev.Feed.ID, "uid", ev.UID, "cap", MaxOccurrencesPerEvent)
		starts = starts[:MaxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]occurrence, 0, len(starts))
	for _, s := range starts {
		if !s.Before(limit) {
			continue
		}
		out = append(out, withOverride(ev, overrides, s, s.Add(dur)))
	}
	return out
}

// withOverride swaps in the override whose RECURRENCE-ID equals start.
func withOverride(base ParsedEvent, overrides []ParsedEvent, start, end time.Time) occurrence {
	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(start) {
			return occurrence{ev: ov, start: ov.Start, end: ov.End, instance: start}
		}
	}
	return occurrence{ev: base, start: start, end: end, instance: start}
}

func toCalendarEvent(o occurrence) model.CalendarEvent {
	start := o.start.In(time.Local)
	end := o.end.In(time.Local)

	day := model.DayOf(start)
	startClock := model.FormatClock(start.Hour(), start.Minute())
	endClock := model.FormatClock(end.Hour(), end.Minute())
	if o.ev.AllDay {
		// All-day dates carry no zone; keep the calendar date as written.
		day = time.Date(o.start.Year(), o.start.Month(), o.start.Day(), 0, 0, 0, 0, time.Local)
		startClock, endClock = "00:00", "23:59"
	}

	title := model.Localized{EN: o.ev.Summary, PT: o.ev.Summary}
	if title.EN == "" {
		title = model.Localized{EN: o.ev.Feed.Name, PT: o.ev.Feed.Name}
	}

	tags := []string{CommunityCategory, o.ev.Feed.ID}
	tags = append(tags, o.ev.Categories...)

	return model.CalendarEvent{
		ID:          fmt.Sprintf("%s-%s-%d", o.ev.Feed.ID, o.ev.UID, o.instance.UnixMilli()),
		Title:       title,
		Description: model.Localized{EN: o.ev.Description, PT: o.ev.Description},
		Date:        day,
		StartTime:   startClock,
		EndTime:     endClock,
		Type:        model.TypeCommunity,
		Category:    CommunityCategory,
		Location:    o.ev.Location,
		Organizer:   o.ev.Feed.Name,
		Contact:     o.ev.URL,
		Tags:        tags,
		IsRecurring: o.ev.RawRRule != "",
		Source:      o.ev.Feed.ID,
	}
}
