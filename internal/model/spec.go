package model

import (
	"fmt"
	"strings"
)

// RecurringActivitySpec is the configuration template for a repeating
// cultural activity (a weekly dance night, a monthly business breakfast).
type RecurringActivitySpec struct {
	ID          string    `yaml:"id" validate:"required"`
	Name        Localized `yaml:"name"`
	Description Localized `yaml:"description"`

	// Type overrides the synthesized event type; empty means cultural.
	Type     EventType `yaml:"type,omitempty" validate:"omitempty,oneof=cultural business community recurring"`
	Category string    `yaml:"category"`

	Frequency string `yaml:"frequency" validate:"required"`
	Weekday   string `yaml:"weekday,omitempty"`
	Time      string `yaml:"time" validate:"required,hhmm"`
	Duration  string `yaml:"duration"`

	Venue     string `yaml:"venue"`
	Address   string `yaml:"address"`
	Organizer string `yaml:"organizer"`
	Contact   string `yaml:"contact"`
	Price     string `yaml:"price"`

	Capacity          int `yaml:"capacity" validate:"min=0"`
	AttendanceAverage int `yaml:"attendance_average" validate:"min=0"`

	Origin          string   `yaml:"origin"`
	PopularityScore int      `yaml:"popularity_score" validate:"min=0,max=100"`
	Tags            []string `yaml:"tags"`

	Featured       bool          `yaml:"featured"`
	IsRegularEvent bool          `yaml:"regular"`
	IsActive       bool          `yaml:"active"`
	Accessibility  Accessibility `yaml:"accessibility"`
}

func (s RecurringActivitySpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("recurring spec %q: %w", s.ID, err)
	}
	if strings.TrimSpace(s.Name.EN) == "" {
		return fmt.Errorf("recurring spec %q: missing english name", s.ID)
	}
	return nil
}

// CelebrationSpec is the configuration template for an annual holiday.
// Period is free text ("June 13", "February", "Carnival weekend") resolved
// into concrete dates per year.
type CelebrationSpec struct {
	ID          string    `yaml:"id" validate:"required"`
	Name        Localized `yaml:"name"`
	Description Localized `yaml:"description"`
	Period      string    `yaml:"period" validate:"required"`
	Category    string    `yaml:"category"`

	Countries           []string `yaml:"countries"`
	TraditionalElements []string `yaml:"traditional_elements"`
}

func (s CelebrationSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("celebration spec %q: %w", s.ID, err)
	}
	if strings.TrimSpace(s.Name.EN) == "" {
		return fmt.Errorf("celebration spec %q: missing english name", s.ID)
	}
	return nil
}

// UniversityEventSpec is an annual university-network event. Date carries a
// template year, either literally ("2025-10-15") or as a {year} token.
type UniversityEventSpec struct {
	ID          string    `yaml:"id" validate:"required"`
	Title       Localized `yaml:"title"`
	Description Localized `yaml:"description"`
	Category    string    `yaml:"category"`

	Date     string `yaml:"date" validate:"required"`
	Time     string `yaml:"time" validate:"required,hhmm"`
	Duration string `yaml:"duration,omitempty"`

	Location    string `yaml:"location"`
	University  string `yaml:"university" validate:"required"`
	Capacity    int    `yaml:"capacity" validate:"min=0"`
	IsRecurring bool   `yaml:"recurring"`
}

func (s UniversityEventSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("university spec %q: %w", s.ID, err)
	}
	if strings.TrimSpace(s.Title.EN) == "" {
		return fmt.Errorf("university spec %q: missing english title", s.ID)
	}
	return nil
}
