package calendar

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lusocal/internal/model"
	"lusocal/internal/query"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSynthesizer(WithClock(clock), WithMemoSize(4)).Synthesize(Inputs{Catalog: testCatalog()})
	require.NoError(t, err)
	return snap
}

func TestEmptySnapshot(t *testing.T) {
	s := Empty()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.ID())
	assert.NotNil(t, s.Events())
	assert.NotNil(t, s.Search("fado"))
	assert.Empty(t, s.Filter(query.Criteria{}))
}

func TestSnapshotAccessorsReturnCopies(t *testing.T) {
	s := testSnapshot(t)

	events := s.Events()
	events[0].Title.EN = "mutated"
	events[0].Tags = append(events[0].Tags[:0], "mutated")
	assert.NotEqual(t, "mutated", s.Events()[0].Title.EN)

	found := s.Search("fado")
	require.NotEmpty(t, found)
	found[0].Title.EN = "mutated"
	assert.NotEqual(t, "mutated", s.Search("fado")[0].Title.EN)

	r := s.Report()
	r.Counts[model.TypeCultural] = -1
	assert.NotEqual(t, -1, s.Report().Counts[model.TypeCultural])
}

func TestSnapshotQueries(t *testing.T) {
	s := testSnapshot(t)

	june := s.ByMonth(2026, time.June)
	// Sundays 7, 14, 21, 28 plus the 15th fado night and Santo António.
	assert.Len(t, june, 6)

	holidays := s.CulturalHolidays(2026, time.June)
	require.Len(t, holidays, 1)
	assert.Equal(t, 13, holidays[0].Date.Day())

	assert.Len(t, s.ByType("university"), 2)
	assert.Len(t, s.ByType("fado"), 24)
	assert.Len(t, s.ByTag("students"), 2)
	assert.Len(t, s.ByCountry("united kingdom"), 2)

	featured := s.Featured()
	require.NotEmpty(t, featured)
	assert.Equal(t, model.TypeCelebration, featured[0].Type)

	// The fado night on the 15th starts after the five-day horizon.
	within := s.UpcomingWithin(fixedNow, 5)
	assert.Len(t, within, 2)

	st := s.Stats()
	assert.Equal(t, s.Len(), st.Total)
	assert.Equal(t, 2, st.ByType[model.TypeUniversity])
}

func TestSnapshotFilterIsMemoized(t *testing.T) {
	s := testSnapshot(t)
	c := query.Criteria{
		Type: mo.Some(model.TypeCultural),
		From: mo.Some(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.Local)),
		To:   mo.Some(time.Date(2026, time.July, 31, 0, 0, 0, 0, time.Local)),
	}
	first := s.Filter(c)
	// July 2026: Sundays 5, 12, 19, 26 and the fado night on the 15th.
	assert.Len(t, first, 5)
	assert.True(t, s.memo.Contains("filter:"+c.Key()))
	assert.Equal(t, ids(first), ids(s.Filter(c)))
}
