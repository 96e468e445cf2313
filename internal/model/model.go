package model

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the discriminator of the CalendarEvent tagged union.
type EventType string

const (
	TypeCultural    EventType = "cultural"
	TypeCelebration EventType = "celebration"
	TypeUniversity  EventType = "university"
	TypeCommunity   EventType = "community"
	TypeBusiness    EventType = "business"
	TypeRecurring   EventType = "recurring"
)

// EventTypes lists every known discriminator in display order.
var EventTypes = []EventType{
	TypeCultural,
	TypeCelebration,
	TypeUniversity,
	TypeCommunity,
	TypeBusiness,
	TypeRecurring,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Localized holds a display string in the two supported locales.
type Localized struct {
	EN string `yaml:"en" json:"en"`
	PT string `yaml:"pt" json:"pt"`
}

// Accessibility flags advertised for a venue.
type Accessibility struct {
	WheelchairAccessible bool `yaml:"wheelchair_accessible" json:"wheelchair_accessible"`
	SignLanguage         bool `yaml:"sign_language" json:"sign_language"`
	AudioDescription     bool `yaml:"audio_description" json:"audio_description"`
}

// CalendarEvent is a single concrete, synthesized calendar entry.
//
// Shared fields apply to every Type. University and Source are
// type-specific and checked by Validate.
type CalendarEvent struct {
	ID          string    `json:"id" validate:"required"`
	Title       Localized `json:"title"`
	Description Localized `json:"description"`

	// Date is local midnight of the day the event happens on.
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time" validate:"hhmm"`
	EndTime   string    `json:"end_time" validate:"hhmm"`

	Type     EventType `json:"type" validate:"required"`
	Category string    `json:"category"`

	Location string `json:"location"`
	Venue    string `json:"venue,omitempty"`
	Address  string `json:"address,omitempty"`

	Organizer string `json:"organizer"`
	Contact   string `json:"contact,omitempty"`

	Price      string `json:"price,omitempty"`
	Capacity   int    `json:"capacity,omitempty" validate:"min=0"`
	Attendance int    `json:"attendance,omitempty" validate:"min=0"`

	Country   string   `json:"country"`
	Countries []string `json:"countries,omitempty"`
	Tags      []string `json:"tags"`

	Featured          bool   `json:"featured"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
	AuthenticityScore int    `json:"authenticity_score" validate:"min=0,max=100"`

	Accessibility Accessibility `json:"accessibility"`

	// University is the hosting institution (TypeUniversity only).
	University string `json:"university,omitempty"`
	// Source is the feed id an external entry was imported from (TypeCommunity only).
	Source string `json:"source,omitempty"`
}

// StartsAt combines Date with StartTime. When StartTime does not parse the
// bare date is returned.
func (e CalendarEvent) StartsAt() time.Time {
	h, m, ok := ParseClock(e.StartTime)
	if !ok {
		return e.Date
	}
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), h, m, 0, 0, e.Date.Location())
}

// Clone returns a deep copy so callers can never alias snapshot slices.
func (e CalendarEvent) Clone() CalendarEvent {
	out := e
	if e.Countries != nil {
		out.Countries = append([]string(nil), e.Countries...)
	}
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return out
}

// Validate checks the shared fields and the per-type invariants.
func (e CalendarEvent) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("event %q: %w", e.ID, err)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("event %q: unknown type %q", e.ID, e.Type)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("event %q: zero date", e.ID)
	}
	switch e.Type {
	case TypeUniversity:
		if strings.TrimSpace(e.University) == "" {
			return fmt.Errorf("event %q: university event without institution", e.ID)
		}
	case TypeCommunity:
		if strings.TrimSpace(e.Source) == "" {
			return fmt.Errorf("event %q: community event without source", e.ID)
		}
	case TypeCelebration:
		if !e.Featured {
			return fmt.Errorf("event %q: celebrations are always featured", e.ID)
		}
	}
	return nil
}

// CloneAll deep-copies a slice of events. A nil input yields an empty,
// non-nil slice.
func CloneAll(events []CalendarEvent) []CalendarEvent {
	out := make([]CalendarEvent, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// FormatClock renders hour/minute as zero-padded "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// DayOf truncates t to midnight in its own location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
