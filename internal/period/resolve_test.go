package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lusocal/internal/model"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.Local)
}

func TestResolve(t *testing.T) {
	cases := []struct {
		text string
		want []time.Time
	}{
		{"June 13", []time.Time{d(2026, time.June, 13)}},
		{"September 7", []time.Time{d(2026, time.September, 7)}},
		{"Celebrated on the 11th of November", []time.Time{d(2026, time.November, 11)}},
		{"February", []time.Time{d(2026, time.February, 20)}},
		{"Carnival weekend (variable)", []time.Time{d(2026, time.February, 20)}},
		{"Late October", []time.Time{d(2026, time.October, 15)}},
		{"March and July", []time.Time{d(2026, time.March, 15), d(2026, time.July, 15)}},
		{"June 24 or throughout June", []time.Time{d(2026, time.June, 24), d(2026, time.June, 15)}},
		{"Carnival, February 14", []time.Time{d(2026, time.February, 14), d(2026, time.February, 20)}},
		{"June 13, June 13", []time.Time{d(2026, time.June, 13)}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.text, 2026))
		})
	}
}

func TestResolveNoMatchIsEmpty(t *testing.T) {
	for _, text := range []string{"", "Whenever the moon is full", "47 days before Easter", "June 31"} {
		got := Resolve(text, 2026)
		assert.NotNil(t, got, text)
		assert.Empty(t, got, text)
	}
}

func TestResolveLeapDay(t *testing.T) {
	assert.Equal(t, []time.Time{d(2028, time.February, 29), d(2028, time.February, 20)},
		Resolve("Carnival, February 29", 2028))
	assert.Equal(t, []time.Time{d(2027, time.February, 20)},
		Resolve("Carnival, February 29", 2027))
}

func TestCustomRuleTable(t *testing.T) {
	christmas := Rule{
		Name: "christmas",
		Dates: func(text string, year int) []time.Time {
			if text == "christmas" {
				return []time.Time{d(year, time.December, 25)}
			}
			return nil
		},
	}
	r := NewResolver(christmas)
	assert.Equal(t, []time.Time{d(2027, time.December, 25)}, r.Resolve("Christmas", 2027))
	assert.Empty(t, r.Resolve("June 13", 2027))
}

func TestCelebrationEvents(t *testing.T) {
	spec := model.CelebrationSpec{
		ID:                  "santos-populares",
		Name:                model.Localized{EN: "Santos Populares", PT: "Santos Populares"},
		Period:              "June 13",
		Category:            "festival",
		Countries:           []string{"Portugal"},
		TraditionalElements: []string{"sardines", "manjericos"},
	}

	events := NewResolver().Events(spec, 2026)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, d(2026, time.June, 13), ev.Date)
	assert.Equal(t, model.TypeCelebration, ev.Type)
	assert.Equal(t, "19:00", ev.StartTime)
	assert.Equal(t, "23:00", ev.EndTime)
	assert.True(t, ev.Featured)
	assert.Equal(t, 95, ev.AuthenticityScore)
	assert.Equal(t, "Portugal", ev.Country)
	assert.Equal(t, []string{"celebration", "festival", "Portugal", "sardines", "manjericos"}, ev.Tags)
	assert.NoError(t, ev.Validate())

	spec.Period = "Sometime"
	assert.Empty(t, NewResolver().Events(spec, 2026))
}
