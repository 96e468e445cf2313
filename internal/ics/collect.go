package ics

import (
	"context"
	"fmt"
	"time"

	appLog "lusocal/internal/log"
	"lusocal/internal/model"
)

// Collect fetches, parses and expands every feed into community events for
// [from, to]. A feed that fails at any stage is reported in errs and
// contributes nothing; the others are unaffected.
func Collect(ctx context.Context, f *Fetcher, feeds []Feed, from, to time.Time) (events []model.CalendarEvent, errs []error) {
	if len(feeds) == 0 {
		return nil, nil
	}
	results, errs := f.FetchAll(ctx, feeds)
	for _, res := range results {
		parsed, err := ParseICS(res.Feed, res.Body)
		if err != nil {
			appLog.Error("feed parse failed", err, "feed", res.Feed.ID)
			errs = append(errs, fmt.Errorf("feed %q: %w", res.Feed.ID, err))
			continue
		}
		expanded, err := Expand(parsed, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %q: %w", res.Feed.ID, err))
			continue
		}
		appLog.Info("feed collected", "feed", res.Feed.ID, "from_cache", res.FromCache, "events", len(expanded))
		events = append(events, expanded...)
	}
	return events, errs
}
