package recurrence

import (
	"regexp"
	"strconv"
	"strings"

	"lusocal/internal/model"
)

// DefaultDurationHours applies when no duration text is configured.
const DefaultDurationHours = 2

var firstInt = regexp.MustCompile(`\d+`)

// ComputeEndTime adds the first integer found in durationText, read as a
// number of hours, to start (wrapping at midnight, minutes preserved).
//
// Empty text means DefaultDurationHours. Text without any integer, or a
// start that is not "HH:MM", yields the start unchanged. Units other than
// hours are not understood: "90 minutes" is read as 90 hours.
func ComputeEndTime(start, durationText string) string {
	h, m, ok := model.ParseClock(start)
	if !ok {
		return start
	}

	hours := DefaultDurationHours
	if strings.TrimSpace(durationText) != "" {
		match := firstInt.FindString(durationText)
		if match == "" {
			return model.FormatClock(h, m)
		}
		n, err := strconv.Atoi(match)
		if err == nil {
			hours = n
		}
	}

	return model.FormatClock((h+hours%24)%24, m)
}
