package calendar

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lusocal/internal/catalog"
	"lusocal/internal/model"
	"lusocal/internal/period"
)

var fixedNow = time.Date(2026, time.June, 10, 12, 0, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Recurring: []model.RecurringActivitySpec{
			{
				ID:              "sunday-brunch",
				Name:            model.Localized{EN: "Lusophone Sunday Brunch", PT: "Brunch de Domingo"},
				Category:        "food",
				Frequency:       "Weekly",
				Weekday:         "Sunday",
				Time:            "11:00",
				Duration:        "3 hours",
				Venue:           "Stockwell Kitchen",
				Origin:          "Portugal",
				PopularityScore: 80,
				IsRegularEvent:  true,
				IsActive:        true,
			},
			{
				ID:              "fado-night",
				Name:            model.Localized{EN: "Fado Night", PT: "Noite de Fado"},
				Category:        "fado",
				Frequency:       "Monthly",
				Time:            "19:30",
				Venue:           "Camden Assembly",
				Origin:          "Portugal",
				PopularityScore: 89,
				Featured:        true,
				IsRegularEvent:  true,
				IsActive:        true,
			},
			{
				ID:        "capoeira",
				Name:      model.Localized{EN: "Capoeira Roda"},
				Frequency: "Weekly",
				Weekday:   "Saturday",
				Time:      "15:00",
				IsActive:  false,
			},
		},
		Celebrations: []model.CelebrationSpec{
			{
				ID:        "santo-antonio",
				Name:      model.Localized{EN: "Santo António", PT: "Santo António"},
				Period:    "June 13",
				Category:  "religious",
				Countries: []string{"Portugal"},
			},
		},
		University: []model.UniversityEventSpec{
			{
				ID:         "freshers-fair",
				Title:      model.Localized{EN: "Lusophone Freshers Fair"},
				Category:   "social",
				Date:       "{year}-09-25",
				Time:       "12:00",
				Duration:   "4 hours",
				Location:   "Student Union",
				University: "UCL",
				Capacity:   300,
			},
		},
	}
}

func ids(events []model.CalendarEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

type recordingObserver struct {
	reports []Report
	errs    []error
}

func (o *recordingObserver) ObserveSynthesis(r Report, err error) {
	o.reports = append(o.reports, r)
	o.errs = append(o.errs, err)
}

func TestWindowFor(t *testing.T) {
	w := WindowFor(fixedNow)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.Local), w.Start)
	assert.Equal(t, time.Date(2027, time.December, 31, 0, 0, 0, 0, time.Local), w.End)

	assert.True(t, w.Contains(time.Date(2027, time.December, 31, 23, 0, 0, 0, time.Local)))
	assert.False(t, w.Contains(time.Date(2028, time.January, 1, 0, 0, 0, 0, time.Local)))
	assert.False(t, w.Contains(time.Date(2025, time.December, 31, 23, 59, 0, 0, time.Local)))
}

func TestWindowForUsesLocalZone(t *testing.T) {
	// Late on New Year's Eve ten hours west of UTC; the local year may differ.
	now := time.Date(2026, time.December, 31, 20, 0, 0, 0, time.FixedZone("X", -10*3600))
	y := now.In(time.Local).Year()

	w := WindowFor(now)
	assert.Equal(t, time.Local, w.Start.Location())
	assert.Equal(t, time.Date(y, time.January, 1, 0, 0, 0, 0, time.Local), w.Start)
	assert.Equal(t, time.Date(y+1, time.December, 31, 0, 0, 0, 0, time.Local), w.End)

	snap, err := NewSynthesizer(WithClock(func() time.Time { return now })).Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)
	require.NotEmpty(t, snap.Events())
	for _, ev := range snap.Events() {
		assert.True(t, w.Contains(ev.Date), ev.ID)
	}
}

func TestSynthesizeInvariants(t *testing.T) {
	snap, err := NewSynthesizer(WithClock(clock)).Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)

	events := snap.Events()
	require.NotEmpty(t, events)

	seen := map[string]bool{}
	for _, ev := range events {
		assert.NoError(t, ev.Validate())
		assert.True(t, snap.Window().Contains(ev.Date), ev.ID)
		assert.False(t, seen[ev.ID], "duplicate id %s", ev.ID)
		seen[ev.ID] = true
	}
	assert.True(t, sort.SliceIsSorted(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	}))
}

func TestSynthesizeCounts(t *testing.T) {
	obs := &recordingObserver{}
	snap, err := NewSynthesizer(WithClock(clock), WithObserver(obs)).Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)

	r := snap.Report()
	assert.Equal(t, 1, r.Inactive)
	assert.Empty(t, r.Skipped)
	// 24 monthly fado nights plus the Sundays of 2026 and 2027.
	assert.Equal(t, 24+52+52, r.Counts[model.TypeCultural])
	assert.Equal(t, 2, r.Counts[model.TypeCelebration])
	assert.Equal(t, 2, r.Counts[model.TypeUniversity])
	assert.Equal(t, 24+104+2+2, snap.Len())

	for _, ev := range snap.Events() {
		assert.NotContains(t, ev.ID, "capoeira")
	}

	require.Len(t, obs.reports, 1)
	assert.NoError(t, obs.errs[0])
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	s := NewSynthesizer(WithClock(clock))
	a, err := s.Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)
	b, err := s.Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)

	assert.Equal(t, ids(a.Events()), ids(b.Events()))
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSynthesizeNoCatalog(t *testing.T) {
	obs := &recordingObserver{}
	_, err := NewSynthesizer(WithObserver(obs)).Synthesize(Inputs{})
	assert.ErrorIs(t, err, ErrNoCatalog)
	require.Len(t, obs.errs, 1)
	assert.ErrorIs(t, obs.errs[0], ErrNoCatalog)
}

func TestSynthesizeMissingCollection(t *testing.T) {
	c := testCatalog()
	c.University = nil
	_, err := NewSynthesizer(WithClock(clock)).Synthesize(Inputs{Catalog: c})
	assert.ErrorIs(t, err, catalog.ErrMissingCollection)
}

func TestSynthesizeSkipsBrokenSpecs(t *testing.T) {
	c := testCatalog()
	c.Recurring = append(c.Recurring, model.RecurringActivitySpec{
		ID:        "broken-time",
		Name:      model.Localized{EN: "Broken"},
		Frequency: "Weekly",
		Weekday:   "Monday",
		Time:      "25:99",
		IsActive:  true,
	})
	c.University = append(c.University, model.UniversityEventSpec{
		ID:         "no-date",
		Title:      model.Localized{EN: "Mystery Mixer"},
		Date:       "sometime soon",
		Time:       "18:00",
		University: "KCL",
	})

	snap, err := NewSynthesizer(WithClock(clock)).Synthesize(Inputs{Catalog: c})
	require.NoError(t, err)

	r := snap.Report()
	var skipped []string
	for _, serr := range r.Skipped {
		skipped = append(skipped, serr.Source+"/"+serr.SpecID)
	}
	assert.Contains(t, skipped, SourceRecurring+"/broken-time")
	assert.Contains(t, skipped, SourceUniversity+"/no-date")

	// The healthy specs are untouched.
	assert.Equal(t, 2, r.Counts[model.TypeUniversity])
	assert.Equal(t, 24+104, r.Counts[model.TypeCultural])
}

func TestSynthesizeRecoversFromPanickingRule(t *testing.T) {
	boom := period.Rule{Name: "boom", Dates: func(string, int) []time.Time { panic("boom") }}
	s := NewSynthesizer(WithClock(clock), WithResolver(period.NewResolver(boom)))

	snap, err := s.Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)

	r := snap.Report()
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, SourceCelebration, r.Skipped[0].Source)
	assert.Equal(t, "santo-antonio", r.Skipped[0].SpecID)
	assert.Zero(t, r.Counts[model.TypeCelebration])
	assert.NotZero(t, r.Counts[model.TypeCultural])
}

func TestSynthesizeExternalEvents(t *testing.T) {
	community := func(id string, d time.Time) model.CalendarEvent {
		return model.CalendarEvent{
			ID:        id,
			Title:     model.Localized{EN: id},
			Date:      d,
			StartTime: "18:00",
			EndTime:   "20:00",
			Type:      model.TypeCommunity,
			Source:    "casa-do-brasil",
		}
	}
	in := Inputs{
		Catalog: testCatalog(),
		External: []model.CalendarEvent{
			community("feed-a", time.Date(2026, time.July, 4, 0, 0, 0, 0, time.Local)),
			community("feed-a", time.Date(2026, time.July, 5, 0, 0, 0, 0, time.Local)),
			community("feed-old", time.Date(2024, time.July, 4, 0, 0, 0, 0, time.Local)),
			{ID: "no-source", Date: fixedNow, Type: model.TypeCommunity},
		},
	}

	snap, err := NewSynthesizer(WithClock(clock)).Synthesize(in)
	require.NoError(t, err)

	r := snap.Report()
	assert.Equal(t, 1, r.Counts[model.TypeCommunity])
	assert.Equal(t, 1, r.Duplicates)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, SourceExternal, r.Skipped[0].Source)

	ev, ok := snap.ByID("feed-a").Get()
	require.True(t, ok)
	assert.Equal(t, time.July, ev.Date.Month())
	assert.Equal(t, 4, ev.Date.Day())
}

func TestUpcomingView(t *testing.T) {
	snap, err := NewSynthesizer(WithClock(clock), WithUpcomingLimit(3)).Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)

	up := snap.Upcoming()
	require.Len(t, up, 3)
	for _, ev := range up {
		assert.False(t, ev.StartsAt().Before(fixedNow), ev.ID)
	}
	// June 13 Santo António precedes the June 14 brunch and June 15 fado.
	assert.Equal(t, model.TypeCelebration, up[0].Type)
	assert.Equal(t, time.June, up[2].Date.Month())
	assert.Equal(t, 15, up[2].Date.Day())
}
