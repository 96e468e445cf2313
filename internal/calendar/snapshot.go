package calendar

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/mo"

	appLog "lusocal/internal/log"
	"lusocal/internal/model"
	"lusocal/internal/query"
)

// Snapshot is an immutable result of one synthesis run. Every accessor
// returns fresh copies, so callers may mutate what they receive.
type Snapshot struct {
	id       string
	builtAt  time.Time
	events   []model.CalendarEvent
	upcoming []model.CalendarEvent
	featured []model.CalendarEvent
	report   Report

	// memo caches Search and Filter results keyed by query text.
	memo *lru.Cache[string, []model.CalendarEvent]
}

func newSnapshot(events []model.CalendarEvent, now time.Time, report Report, upcomingLimit, memoSize int) *Snapshot {
	if events == nil {
		events = []model.CalendarEvent{}
	}
	s := &Snapshot{
		id:       uuid.NewString(),
		builtAt:  now,
		events:   events,
		upcoming: query.Upcoming(events, now, upcomingLimit),
		featured: query.Featured(events),
		report:   report,
	}
	memo, err := lru.New[string, []model.CalendarEvent](memoSize)
	if err != nil {
		appLog.Warn("snapshot: query memo disabled", "error", err)
	} else {
		s.memo = memo
	}
	return s
}

// Empty returns a snapshot with no events, used before the first
// successful refresh.
func Empty() *Snapshot {
	return &Snapshot{
		events:   []model.CalendarEvent{},
		upcoming: []model.CalendarEvent{},
		featured: []model.CalendarEvent{},
		report:   Report{Counts: map[model.EventType]int{}},
	}
}

// ID is a random identifier for this build, empty for Empty().
func (s *Snapshot) ID() string         { return s.id }
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }
func (s *Snapshot) Len() int           { return len(s.events) }
func (s *Snapshot) Window() Window     { return s.report.Window }

// Report returns the build report; Skipped and Counts are copied.
func (s *Snapshot) Report() Report {
	r := s.report
	r.Skipped = append([]*SpecError(nil), s.report.Skipped...)
	r.Counts = make(map[model.EventType]int, len(s.report.Counts))
	for k, v := range s.report.Counts {
		r.Counts[k] = v
	}
	return r
}

// Events returns every event in date order.
func (s *Snapshot) Events() []model.CalendarEvent { return model.CloneAll(s.events) }

// Upcoming returns the events starting at or after the build time.
func (s *Snapshot) Upcoming() []model.CalendarEvent { return model.CloneAll(s.upcoming) }

// Featured returns featured events by authenticity, highest first.
func (s *Snapshot) Featured() []model.CalendarEvent { return model.CloneAll(s.featured) }

func (s *Snapshot) ByMonth(year int, month time.Month) []model.CalendarEvent {
	return query.ByMonth(s.events, year, month)
}

func (s *Snapshot) ByType(typeOrCategory string) []model.CalendarEvent {
	return query.ByType(s.events, typeOrCategory)
}

func (s *Snapshot) ByCountry(fragment string) []model.CalendarEvent {
	return query.ByCountry(s.events, fragment)
}

func (s *Snapshot) ByTag(tag string) []model.CalendarEvent {
	return query.ByTag(s.events, tag)
}

func (s *Snapshot) ByID(id string) mo.Option[model.CalendarEvent] {
	return query.ByID(s.events, id)
}

func (s *Snapshot) CulturalHolidays(year int, month time.Month) []model.CalendarEvent {
	return query.CulturalHolidays(s.events, year, month)
}

// UpcomingWithin is evaluated against now rather than the build time.
func (s *Snapshot) UpcomingWithin(now time.Time, days int) []model.CalendarEvent {
	return query.UpcomingWithin(s.events, now, days)
}

func (s *Snapshot) Stats() query.Summary { return query.Stats(s.events) }

func (s *Snapshot) Search(q string) []model.CalendarEvent {
	return s.memoized("search:"+q, func() []model.CalendarEvent {
		return query.Search(s.events, q)
	})
}

func (s *Snapshot) Filter(c query.Criteria) []model.CalendarEvent {
	return s.memoized("filter:"+c.Key(), func() []model.CalendarEvent {
		return query.Filter(s.events, c)
	})
}

func (s *Snapshot) memoized(key string, compute func() []model.CalendarEvent) []model.CalendarEvent {
	if s.memo == nil {
		return compute()
	}
	if cached, ok := s.memo.Get(key); ok {
		return model.CloneAll(cached)
	}
	out := compute()
	s.memo.Add(key, out)
	return model.CloneAll(out)
}
