package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"lusocal/internal/model"
)

// Criteria is a composite filter. Each predicate applies only when its
// option is present; all present predicates must hold.
type Criteria struct {
	Type     mo.Option[model.EventType]
	Category mo.Option[string]
	Country  mo.Option[string]
	From     mo.Option[time.Time]
	To       mo.Option[time.Time]
	MinPrice mo.Option[float64]
	MaxPrice mo.Option[float64]
	Location mo.Option[string]
	Featured mo.Option[bool]
}

// Valid reports whether the bounds are ordered. Filter treats invalid
// criteria as matching nothing.
func (c Criteria) Valid() bool {
	if from, ok := c.From.Get(); ok {
		if to, ok := c.To.Get(); ok && model.DayOf(from).After(model.DayOf(to)) {
			return false
		}
	}
	if lo, ok := c.MinPrice.Get(); ok {
		if hi, ok := c.MaxPrice.Get(); ok && lo > hi {
			return false
		}
	}
	return true
}

// Key is a canonical string for c, used to memoize filter results.
func (c Criteria) Key() string {
	var b strings.Builder
	part := func(name string, o mo.Option[string]) {
		if v, ok := o.Get(); ok {
			fmt.Fprintf(&b, "%s=%q;", name, v)
		}
	}
	if v, ok := c.Type.Get(); ok {
		fmt.Fprintf(&b, "type=%q;", v)
	}
	part("category", c.Category)
	part("country", c.Country)
	if v, ok := c.From.Get(); ok {
		fmt.Fprintf(&b, "from=%s;", v.Format("2006-01-02"))
	}
	if v, ok := c.To.Get(); ok {
		fmt.Fprintf(&b, "to=%s;", v.Format("2006-01-02"))
	}
	if v, ok := c.MinPrice.Get(); ok {
		fmt.Fprintf(&b, "min=%g;", v)
	}
	if v, ok := c.MaxPrice.Get(); ok {
		fmt.Fprintf(&b, "max=%g;", v)
	}
	part("location", c.Location)
	if v, ok := c.Featured.Get(); ok {
		fmt.Fprintf(&b, "featured=%t;", v)
	}
	return b.String()
}

// Match reports whether ev satisfies every present predicate.
func (c Criteria) Match(ev model.CalendarEvent) bool {
	if v, ok := c.Type.Get(); ok && ev.Type != v {
		return false
	}
	if v, ok := c.Category.Get(); ok && !strings.EqualFold(ev.Category, v) {
		return false
	}
	if v, ok := c.Country.Get(); ok && !matchesCountry(ev, v) {
		return false
	}
	if v, ok := c.From.Get(); ok && ev.Date.Before(model.DayOf(v)) {
		return false
	}
	if v, ok := c.To.Get(); ok && ev.Date.After(model.DayOf(v)) {
		return false
	}
	if price, ok := ParsePrice(ev.Price); ok {
		if v, ok := c.MinPrice.Get(); ok && price < v {
			return false
		}
		if v, ok := c.MaxPrice.Get(); ok && price > v {
			return false
		}
	}
	if v, ok := c.Location.Get(); ok && !containsFold(ev.Location, v) && !containsFold(ev.Venue, v) {
		return false
	}
	if v, ok := c.Featured.Get(); ok && ev.Featured != v {
		return false
	}
	return true
}

// Filter returns the events matching c, order preserved.
func Filter(events []model.CalendarEvent, c Criteria) []model.CalendarEvent {
	if !c.Valid() {
		return []model.CalendarEvent{}
	}
	return where(events, c.Match)
}

// Featured returns featured events by authenticity score, highest first.
// Equal scores keep their input order.
func Featured(events []model.CalendarEvent) []model.CalendarEvent {
	out := where(events, func(ev model.CalendarEvent) bool { return ev.Featured })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AuthenticityScore > out[j].AuthenticityScore
	})
	return out
}

// leadingPrice accepts an optional currency prefix (symbol or ISO code)
// followed by the first amount: "£15-20 entry" -> 15, "EUR 9.50" -> 9.5.
var leadingPrice = regexp.MustCompile(`^\s*(?:[A-Za-z]{3}\s*|R\$\s*|[^\w\s]{1,2}\s*)?(\d+(?:[.,]\d{1,2})?)`)

// ParsePrice extracts the leading amount of a price descriptor. "Free" and
// other descriptors without a leading amount report false.
func ParsePrice(s string) (float64, bool) {
	m := leadingPrice.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
