package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rule maps loosely authored period text onto zero or more dates of a year.
// Rules are evaluated independently; every rule that matches contributes.
type Rule struct {
	Name  string
	Dates func(text string, year int) []time.Time
}

// Resolver evaluates an ordered rule table against lower-cased period text.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a resolver over rules, or over DefaultRules when none
// are given.
func NewResolver(rules ...Rule) *Resolver {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Resolver{rules: rules}
}

var defaultResolver = NewResolver()

// Resolve resolves text with the default rule table.
func Resolve(text string, year int) []time.Time {
	return defaultResolver.Resolve(text, year)
}

// Resolve returns the union of all rule outputs in rule order, with exact
// duplicates removed. No match yields an empty slice.
func (r *Resolver) Resolve(text string, year int) []time.Time {
	lower := strings.ToLower(text)
	out := make([]time.Time, 0, 1)
	seen := make(map[time.Time]bool)
	for _, rule := range r.rules {
		for _, d := range rule.Dates(lower, year) {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

const (
	// CarnivalMonth/CarnivalDay anchor carnival and bare "february" periods.
	CarnivalMonth = time.February
	CarnivalDay   = 20
	// MidMonthDay anchors a month named without a day.
	MidMonthDay = 15
)

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

const monthAlt = `(january|february|march|april|may|june|july|august|september|october|november|december)`

var (
	monthWord     = regexp.MustCompile(`\b` + monthAlt + `\b`)
	monthThenDay  = regexp.MustCompile(`\b` + monthAlt + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayThenMonth  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthAlt + `\b`)
	carnivalWords = regexp.MustCompile(`\bcarn[ai]val\b`)
)

// DefaultRules is the rule table used by Resolve:
//
//	month-day   "june 13", "13th of june"  -> that day
//	carnival    "carnival", bare "february" -> February 20
//	mid-month   any other bare month name  -> the 15th
func DefaultRules() []Rule {
	return []Rule{
		{Name: "month-day", Dates: monthDayDates},
		{Name: "carnival", Dates: carnivalDates},
		{Name: "mid-month", Dates: midMonthDates},
	}
}

func monthDayDates(text string, year int) []time.Time {
	var out []time.Time
	for _, m := range monthThenDay.FindAllStringSubmatch(text, -1) {
		if d, ok := dateOf(year, m[1], m[2]); ok {
			out = append(out, d)
		}
	}
	for _, m := range dayThenMonth.FindAllStringSubmatch(text, -1) {
		if d, ok := dateOf(year, m[2], m[1]); ok {
			out = append(out, d)
		}
	}
	return out
}

func carnivalDates(text string, year int) []time.Time {
	if carnivalWords.MatchString(text) || bareMonthNamed(text, time.February) {
		return []time.Time{date(year, CarnivalMonth, CarnivalDay)}
	}
	return nil
}

func midMonthDates(text string, year int) []time.Time {
	var out []time.Time
	for _, m := range bareMonths(text) {
		if m == CarnivalMonth {
			continue
		}
		out = append(out, date(year, m, MidMonthDay))
	}
	return out
}

func bareMonthNamed(text string, month time.Month) bool {
	for _, m := range bareMonths(text) {
		if m == month {
			return true
		}
	}
	return false
}

// bareMonths lists month names that are not part of a month-day phrase.
func bareMonths(text string) []time.Month {
	var dated [][]int
	dated = append(dated, monthThenDay.FindAllStringIndex(text, -1)...)
	dated = append(dated, dayThenMonth.FindAllStringIndex(text, -1)...)

	var out []time.Month
	for _, loc := range monthWord.FindAllStringIndex(text, -1) {
		if within(loc, dated) {
			continue
		}
		out = append(out, months[text[loc[0]:loc[1]]])
	}
	return out
}

func within(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] >= s[0] && loc[1] <= s[1] {
			return true
		}
	}
	return false
}

func dateOf(year int, monthName, dayText string) (time.Time, bool) {
	month, ok := months[monthName]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 {
		return time.Time{}, false
	}
	d := date(year, month, day)
	// time.Date normalizes overflow (June 31 -> July 1); reject it.
	if d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}
