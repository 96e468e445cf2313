package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"lusocal/internal/catalog"
	appLog "lusocal/internal/log"
	"lusocal/internal/model"
	"lusocal/internal/period"
	"lusocal/internal/recurrence"
	"lusocal/internal/university"
)

const (
	defaultUpcomingLimit = 10
	defaultMemoSize      = 256
)

// Sources of synthesized events, used in SpecError and logs.
const (
	SourceRecurring   = "recurring"
	SourceCelebration = "celebration"
	SourceUniversity  = "university"
	SourceExternal    = "external"
)

var (
	// ErrNoCatalog is returned when synthesis is attempted without configuration.
	ErrNoCatalog = errors.New("calendar: no catalog supplied")
	// ErrMissingCollection wraps a catalog that lacks one of its three lists.
	ErrMissingCollection = catalog.ErrMissingCollection
)

// Window is the inclusive range of calendar days covered by a snapshot.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowFor spans January 1 of now's local year through December 31 of
// the next. Bounds are always in time.Local, the zone event dates use.
func WindowFor(now time.Time) Window {
	y := now.In(time.Local).Year()
	return Window{
		Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(y+1, time.December, 31, 0, 0, 0, 0, time.Local),
	}
}

// Contains compares by calendar day.
func (w Window) Contains(t time.Time) bool {
	d := model.DayOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Inputs is everything one synthesis run consumes. External carries
// already-materialized events from other sources (community feeds).
type Inputs struct {
	Catalog  *catalog.Catalog
	External []model.CalendarEvent
}

// SpecError records a configuration entry dropped from a run.
type SpecError struct {
	Source string
	SpecID string
	Err    error
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s spec %q: %v", e.Source, e.SpecID, e.Err)
}

func (e *SpecError) Unwrap() error { return e.Err }

// Report describes what a synthesis run produced and dropped.
type Report struct {
	Window     Window
	Counts     map[model.EventType]int
	Inactive   int
	Skipped    []*SpecError
	Duplicates int
	Duration   time.Duration
}

// Observer receives the outcome of every synthesis run.
type Observer interface {
	ObserveSynthesis(report Report, err error)
}

// Synthesizer merges the three generators and external sources into one
// sorted, deduplicated snapshot.
type Synthesizer struct {
	now           func() time.Time
	resolver      *period.Resolver
	observer      Observer
	upcomingLimit int
	memoSize      int
}

type Option func(*Synthesizer)

// WithClock fixes "now" for window selection and the upcoming view.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

func WithResolver(r *period.Resolver) Option {
	return func(s *Synthesizer) { s.resolver = r }
}

func WithObserver(o Observer) Option {
	return func(s *Synthesizer) { s.observer = o }
}

// WithUpcomingLimit sets the size of the upcoming view; non-positive values
// keep the default of 10.
func WithUpcomingLimit(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.upcomingLimit = n
		}
	}
}

// WithMemoSize bounds the per-snapshot query cache.
func WithMemoSize(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.memoSize = n
		}
	}
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		now:           time.Now,
		resolver:      period.NewResolver(),
		upcomingLimit: defaultUpcomingLimit,
		memoSize:      defaultMemoSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds a new snapshot from in. Broken configuration entries
// are dropped and listed in the snapshot's report; only a missing catalog
// or a missing collection fails the whole run.
func (s *Synthesizer) Synthesize(in Inputs) (*Snapshot, error) {
	started := time.Now()
	now := s.now()
	report := Report{
		Window: WindowFor(now),
		Counts: make(map[model.EventType]int),
	}

	if in.Catalog == nil {
		s.observe(report, ErrNoCatalog)
		return nil, ErrNoCatalog
	}
	if err := in.Catalog.Validate(); err != nil {
		err = fmt.Errorf("calendar: %w", err)
		s.observe(report, err)
		return nil, err
	}

	b := &builder{window: report.Window, report: &report, seen: make(map[string]bool)}

	for _, spec := range in.Catalog.Recurring {
		if !spec.IsActive {
			report.Inactive++
			appLog.Debug("synthesize: skipping inactive recurring spec", "spec", spec.ID)
			continue
		}
		b.run(SourceRecurring, spec.ID, func() ([]model.CalendarEvent, error) {
			if err := spec.Validate(); err != nil {
				return nil, err
			}
			return recurrence.Expand(spec, report.Window.Start, report.Window.End)
		})
	}

	years := []int{report.Window.Start.Year(), report.Window.End.Year()}
	for _, spec := range in.Catalog.Celebrations {
		b.run(SourceCelebration, spec.ID, func() ([]model.CalendarEvent, error) {
			if err := spec.Validate(); err != nil {
				return nil, err
			}
			var out []model.CalendarEvent
			for _, y := range years {
				evs := s.resolver.Events(spec, y)
				if len(evs) == 0 {
					appLog.Debug("synthesize: celebration period matched no rule",
						"spec", spec.ID, "period", spec.Period, "year", y)
				}
				out = append(out, evs...)
			}
			return out, nil
		})
	}

	valid := make([]model.UniversityEventSpec, 0, len(in.Catalog.University))
	for _, spec := range in.Catalog.University {
		if err := spec.Validate(); err != nil {
			b.skip(SourceUniversity, spec.ID, err)
			continue
		}
		valid = append(valid, spec)
	}
	b.run(SourceUniversity, "*", func() ([]model.CalendarEvent, error) {
		events, errs := university.Instantiate(valid, years[0])
		for _, err := range errs {
			var uerr *university.Error
			if errors.As(err, &uerr) {
				b.skip(SourceUniversity, uerr.SpecID, err)
				continue
			}
			b.skip(SourceUniversity, "*", err)
		}
		return events, nil
	})

	for _, ev := range in.External {
		if !report.Window.Contains(ev.Date) {
			continue
		}
		b.admit(SourceExternal, ev.Source, ev)
	}

	sort.SliceStable(b.events, func(i, j int) bool {
		return b.events[i].Date.Before(b.events[j].Date)
	})

	report.Duration = time.Since(started)
	snap := newSnapshot(b.events, now, report, s.upcomingLimit, s.memoSize)

	appLog.Info("synthesis completed",
		"snapshot", snap.ID(),
		"events", len(b.events),
		"skipped", len(report.Skipped),
		"inactive", report.Inactive,
		"duplicates", report.Duplicates,
		"window_start", report.Window.Start.Format("2006-01-02"),
		"window_end", report.Window.End.Format("2006-01-02"),
		"duration", report.Duration,
	)
	s.observe(report, nil)
	return snap, nil
}

func (s *Synthesizer) observe(report Report, err error) {
	if s.observer != nil {
		s.observer.ObserveSynthesis(report, err)
	}
}

// builder accumulates the events of one run.
type builder struct {
	window Window
	report *Report
	events []model.CalendarEvent
	seen   map[string]bool
}

// run executes one spec's generator, converting errors and panics into a
// SpecError so the remaining specs are unaffected.
func (b *builder) run(source, specID string, gen func() ([]model.CalendarEvent, error)) {
	events, err := guard(gen)
	if err != nil {
		b.skip(source, specID, err)
		return
	}
	for _, ev := range events {
		b.admit(source, specID, ev)
	}
}

func guard(gen func() ([]model.CalendarEvent, error)) (events []model.CalendarEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return gen()
}

func (b *builder) admit(source, specID string, ev model.CalendarEvent) {
	if err := ev.Validate(); err != nil {
		b.skip(source, specID, err)
		return
	}
	if !b.window.Contains(ev.Date) {
		appLog.Warn("synthesize: dropping event outside window", "source", source, "id", ev.ID)
		return
	}
	if b.seen[ev.ID] {
		b.report.Duplicates++
		appLog.Warn("synthesize: dropping duplicate event id", "source", source, "id", ev.ID)
		return
	}
	b.seen[ev.ID] = true
	b.events = append(b.events, ev)
	b.report.Counts[ev.Type]++
}

func (b *builder) skip(source, specID string, err error) {
	serr := &SpecError{Source: source, SpecID: specID, Err: err}
	b.report.Skipped = append(b.report.Skipped, serr)
	appLog.Error("synthesize: skipping spec", err, "source", source, "spec", specID)
}
