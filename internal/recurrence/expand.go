package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "lusocal/internal/log"
	"lusocal/internal/model"
)

// Frequency is the normalized recurrence tag of a RecurringActivitySpec.
type Frequency string

const (
	Weekly      Frequency = "weekly"
	Monthly     Frequency = "monthly"
	TwiceWeekly Frequency = "twice-weekly"
)

// MonthlyAnchorDay is the fixed day-of-month used for monthly activities.
const MonthlyAnchorDay = 15

// twiceWeeklyDays are the fixed weekdays used for twice-weekly activities.
var twiceWeeklyDays = []rrule.Weekday{rrule.TU, rrule.TH}

var weekdays = map[string]rrule.Weekday{
	"sunday":    rrule.SU,
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
}

// NormalizeFrequency maps authored values such as "Twice weekly" or
// "WEEKLY" onto the canonical tags. Unknown values are returned lower-cased
// and dash-joined so they can still be logged.
func NormalizeFrequency(s string) Frequency {
	f := strings.ToLower(strings.TrimSpace(s))
	f = strings.Join(strings.FieldsFunc(f, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "-")
	return Frequency(f)
}

// WeekdayIndex returns the Sunday-indexed (0-6) weekday for a name.
func WeekdayIndex(name string) (int, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, false
	}
	// rrule-go is Monday-indexed.
	return (wd.Day() + 1) % 7, true
}

// Expand materializes one CalendarEvent per day in [windowStart, windowEnd]
// (both inclusive, compared by calendar day) that matches spec's frequency.
//
// An unknown frequency or weekday produces no occurrences and a warning;
// it is not an error. Errors are reserved for malformed input such as an
// inverted window or an unparsable start time.
func Expand(spec model.RecurringActivitySpec, windowStart, windowEnd time.Time) ([]model.CalendarEvent, error) {
	first := model.DayOf(windowStart)
	last := model.DayOf(windowEnd)
	if last.Before(first) {
		return nil, errors.New("expand: window end is before window start")
	}
	if _, _, ok := model.ParseClock(spec.Time); !ok {
		return nil, fmt.Errorf("expand: spec %q has invalid start time %q", spec.ID, spec.Time)
	}

	opt, ok := ruleOption(spec)
	if !ok {
		return nil, nil
	}
	opt.Dtstart = first

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("expand: build rule for %q: %w", spec.ID, err)
	}

	days := r.Between(first, last, true)
	out := make([]model.CalendarEvent, 0, len(days))
	for _, day := range days {
		out = append(out, occurrence(spec, day))
	}
	return out, nil
}

func ruleOption(spec model.RecurringActivitySpec) (rrule.ROption, bool) {
	freq := NormalizeFrequency(spec.Frequency)
	switch freq {
	case Weekly:
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(spec.Weekday))]
		if !ok {
			appLog.Warn("expand: weekly spec without a known weekday; skipping",
				"spec", spec.ID, "weekday", spec.Weekday)
			return rrule.ROption{}, false
		}
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{wd}}, true
	case Monthly:
		return rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{MonthlyAnchorDay}}, true
	case TwiceWeekly:
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: twiceWeeklyDays}, true
	default:
		appLog.Warn("expand: unrecognized frequency; skipping",
			"spec", spec.ID, "frequency", spec.Frequency)
		return rrule.ROption{}, false
	}
}

func occurrence(spec model.RecurringActivitySpec, day time.Time) model.CalendarEvent {
	typ := spec.Type
	if typ == "" {
		typ = model.TypeCultural
	}
	return model.CalendarEvent{
		ID:                fmt.Sprintf("%s-%d", spec.ID, day.UnixMilli()),
		Title:             spec.Name,
		Description:       spec.Description,
		Date:              day,
		StartTime:         normalizeClock(spec.Time),
		EndTime:           ComputeEndTime(spec.Time, spec.Duration),
		Type:              typ,
		Category:          spec.Category,
		Location:          spec.Venue,
		Venue:             spec.Venue,
		Address:           spec.Address,
		Organizer:         spec.Organizer,
		Contact:           spec.Contact,
		Price:             spec.Price,
		Capacity:          spec.Capacity,
		Attendance:        spec.AttendanceAverage,
		Country:           spec.Origin,
		Tags:              tagsFor(spec),
		Featured:          spec.Featured,
		IsRecurring:       spec.IsRegularEvent,
		RecurrencePattern: string(NormalizeFrequency(spec.Frequency)),
		AuthenticityScore: spec.PopularityScore,
		Accessibility:     spec.Accessibility,
	}
}

func tagsFor(spec model.RecurringActivitySpec) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0, len(spec.Tags)+2)
	for _, t := range append(append([]string(nil), spec.Tags...), spec.Category, spec.Origin) {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	return tags
}

func normalizeClock(s string) string {
	h, m, ok := model.ParseClock(s)
	if !ok {
		return s
	}
	return model.FormatClock(h, m)
}
