package period

import (
	"fmt"
	"strings"

	"lusocal/internal/model"
)

// Fixed presentation of celebration occurrences.
const (
	CelebrationStart        = "19:00"
	CelebrationEnd          = "23:00"
	CelebrationAuthenticity = 95
	CelebrationLocation     = "Multiple Venues Across UK"
	CelebrationOrganizer    = "PALOP Community Network"
	CelebrationPattern      = "yearly"
)

// Events resolves spec.Period for year and builds one celebration event per
// resolved date. Unresolvable periods yield no events.
func (r *Resolver) Events(spec model.CelebrationSpec, year int) []model.CalendarEvent {
	dates := r.Resolve(spec.Period, year)
	out := make([]model.CalendarEvent, 0, len(dates))
	for _, d := range dates {
		out = append(out, model.CalendarEvent{
			ID:                fmt.Sprintf("celebration-%s-%d", spec.ID, d.UnixMilli()),
			Title:             spec.Name,
			Description:       spec.Description,
			Date:              d,
			StartTime:         CelebrationStart,
			EndTime:           CelebrationEnd,
			Type:              model.TypeCelebration,
			Category:          spec.Category,
			Location:          CelebrationLocation,
			Organizer:         CelebrationOrganizer,
			Country:           strings.Join(spec.Countries, ", "),
			Countries:         append([]string(nil), spec.Countries...),
			Tags:              celebrationTags(spec),
			Featured:          true,
			IsRecurring:       true,
			RecurrencePattern: CelebrationPattern,
			AuthenticityScore: CelebrationAuthenticity,
		})
	}
	return out
}

func celebrationTags(spec model.CelebrationSpec) []string {
	tags := []string{"celebration"}
	if spec.Category != "" {
		tags = append(tags, spec.Category)
	}
	tags = append(tags, spec.Countries...)
	return append(tags, spec.TraditionalElements...)
}
