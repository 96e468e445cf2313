package query

import (
	"math"
	"sort"
	"strings"

	"lusocal/internal/model"
)

// Summary aggregates a sequence for dashboards.
type Summary struct {
	Total             int                     `json:"total"`
	ByType            map[model.EventType]int `json:"by_type"`
	Countries         []string                `json:"countries"`
	AverageAttendance int                     `json:"average_attendance"`
	Recurring         int                     `json:"recurring"`
	Featured          int                     `json:"featured"`
}

func Stats(events []model.CalendarEvent) Summary {
	s := Summary{
		Total:     len(events),
		ByType:    make(map[model.EventType]int),
		Countries: []string{},
	}
	seen := make(map[string]bool)
	addCountry := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			return
		}
		seen[strings.ToLower(c)] = true
		s.Countries = append(s.Countries, c)
	}

	attendance := 0
	for _, ev := range events {
		s.ByType[ev.Type]++
		if ev.IsRecurring {
			s.Recurring++
		}
		if ev.Featured {
			s.Featured++
		}
		attendance += ev.Attendance
		if len(ev.Countries) > 0 {
			for _, c := range ev.Countries {
				addCountry(c)
			}
		} else {
			addCountry(ev.Country)
		}
	}
	if len(events) > 0 {
		s.AverageAttendance = int(math.Round(float64(attendance) / float64(len(events))))
	}
	sort.Strings(s.Countries)
	return s
}
