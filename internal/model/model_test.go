package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() CalendarEvent {
	return CalendarEvent{
		ID:                "fado-nights-1781823600000",
		Title:             Localized{EN: "Fado Night", PT: "Noite de Fado"},
		Date:              time.Date(2026, 6, 19, 0, 0, 0, 0, time.Local),
		StartTime:         "20:00",
		EndTime:           "23:00",
		Type:              TypeCultural,
		AuthenticityScore: 90,
	}
}

func TestCalendarEventValidate(t *testing.T) {
	require.NoError(t, validEvent().Validate())

	cases := map[string]func(e *CalendarEvent){
		"missing id":         func(e *CalendarEvent) { e.ID = "" },
		"unknown type":       func(e *CalendarEvent) { e.Type = "party" },
		"zero date":          func(e *CalendarEvent) { e.Date = time.Time{} },
		"bad start":          func(e *CalendarEvent) { e.StartTime = "8pm" },
		"score out of range": func(e *CalendarEvent) { e.AuthenticityScore = 120 },
		"university without institution": func(e *CalendarEvent) {
			e.Type = TypeUniversity
		},
		"community without source": func(e *CalendarEvent) {
			e.Type = TypeCommunity
		},
		"celebration not featured": func(e *CalendarEvent) {
			e.Type = TypeCelebration
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ev := validEvent()
			mutate(&ev)
			assert.Error(t, ev.Validate())
		})
	}
}

func TestStartsAt(t *testing.T) {
	ev := validEvent()
	assert.Equal(t, time.Date(2026, 6, 19, 20, 0, 0, 0, time.Local), ev.StartsAt())

	ev.StartTime = "late"
	assert.Equal(t, ev.Date, ev.StartsAt())
}

func TestCloneDoesNotAlias(t *testing.T) {
	ev := validEvent()
	ev.Tags = []string{"fado"}
	ev.Countries = []string{"Portugal"}

	c := ev.Clone()
	c.Tags[0] = "changed"
	c.Countries[0] = "changed"

	assert.Equal(t, "fado", ev.Tags[0])
	assert.Equal(t, "Portugal", ev.Countries[0])
}

func TestSpecValidate(t *testing.T) {
	rec := RecurringActivitySpec{ID: "kizomba", Name: Localized{EN: "Kizomba"}, Frequency: "weekly", Time: "21:00"}
	assert.NoError(t, rec.Validate())

	rec.Time = "25:00"
	assert.Error(t, rec.Validate())

	rec.Time = "21:00"
	rec.Type = TypeCelebration
	assert.Error(t, rec.Validate(), "celebration is not a recurring override")

	cel := CelebrationSpec{ID: "santos", Name: Localized{EN: "Santos Populares"}}
	assert.Error(t, cel.Validate(), "period is required")
	cel.Period = "June 13"
	assert.NoError(t, cel.Validate())

	uni := UniversityEventSpec{ID: "welcome", Title: Localized{EN: "Welcome"}, Date: "2025-10-01", Time: "18:00"}
	assert.Error(t, uni.Validate(), "university is required")
	uni.University = "King's College London"
	assert.NoError(t, uni.Validate())
}

func TestClockHelpers(t *testing.T) {
	h, m, ok := ParseClock(" 07:30 ")
	require.True(t, ok)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	_, _, ok = ParseClock("7.30")
	assert.False(t, ok)

	assert.Equal(t, "07:05", FormatClock(7, 5))
}
