package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"lusocal/internal/calendar"
	"lusocal/internal/ics"
	appLog "lusocal/internal/log"
	"lusocal/internal/model"
	"lusocal/internal/query"
)

// CalendarName is the X-WR-CALNAME of /calendar.ics.
const CalendarName = "Lusophone Cultural Calendar"

type eventsResponse struct {
	SnapshotID string                `json:"snapshot_id"`
	Count      int                   `json:"count"`
	Events     []model.CalendarEvent `json:"events"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cal.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.cal.Refresh(r.Context())
	switch {
	case errors.Is(err, calendar.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		appLog.Info("manual refresh completed", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusOK, s.cal.Status())
	}
}

// snapshot returns the current snapshot, answering 304 when the client
// already holds it. ok is false when the response has been written.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*calendar.Snapshot, bool) {
	snap := s.cal.Current()
	if id := snap.ID(); id != "" {
		etag := `"` + id + `"`
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
			w.WriteHeader(http.StatusNotModified)
			return nil, false
		}
	}
	return snap, true
}

func (s *Server) writeEvents(w http.ResponseWriter, snap *calendar.Snapshot, events []model.CalendarEvent) {
	writeJSON(w, http.StatusOK, eventsResponse{
		SnapshotID: snap.ID(),
		Count:      len(events),
		Events:     events,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.Events())
}

// handleUpcoming serves the build-time upcoming view, or with ?days=N the
// events starting within N days of now. The latter depends on the clock as
// well as the snapshot, so it carries no ETag.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := parseIntDefault(r.URL.Query().Get("days"), -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	if days >= 0 {
		snap := s.cal.Current()
		w.Header().Set("Cache-Control", "no-cache")
		s.writeEvents(w, snap, snap.UpcomingWithin(s.now(), days))
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.Upcoming())
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.Featured())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	ev, found := snap.ByID(id).Get()
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("event %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.ByMonth(year, month))
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.CulturalHolidays(year, month))
}

// yearMonth reads ?year= and ?month= (1-12), defaulting to the current ones.
func (s *Server) yearMonth(r *http.Request) (int, time.Month, error) {
	now := s.now()
	q := r.URL.Query()
	year, err := parseIntDefault(q.Get("year"), now.Year())
	if err != nil {
		return 0, 0, errors.New("year must be an integer")
	}
	month, err := parseIntDefault(q.Get("month"), int(now.Month()))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("month must be between 1 and 12")
	}
	return year, time.Month(month), nil
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.ByType(r.PathValue("type")))
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.ByCountry(r.PathValue("country")))
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.ByTag(r.PathValue("tag")))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.writeEvents(w, snap, snap.Filter(c))
}

// criteriaFrom maps query parameters onto filter criteria. Dates are
// YYYY-MM-DD in local time. Inverted bounds are not an error here; they
// simply match nothing.
func criteriaFrom(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()
	var c query.Criteria

	if v := q.Get("type"); v != "" {
		t := model.EventType(strings.ToLower(v))
		if !t.Valid() {
			return c, fmt.Errorf("unknown type %q", v)
		}
		c.Type = mo.Some(t)
	}
	c.Category = optString(q.Get("category"))
	c.Country = optString(q.Get("country"))
	c.Location = optString(q.Get("location"))

	var err error
	if c.From, err = optDate(q.Get("from")); err != nil {
		return c, fmt.Errorf("from: %w", err)
	}
	if c.To, err = optDate(q.Get("to")); err != nil {
		return c, fmt.Errorf("to: %w", err)
	}
	if c.MinPrice, err = optFloat(q.Get("min_price")); err != nil {
		return c, fmt.Errorf("min_price: %w", err)
	}
	if c.MaxPrice, err = optFloat(q.Get("max_price")); err != nil {
		return c, fmt.Errorf("max_price: %w", err)
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("featured: %w", err)
		}
		c.Featured = mo.Some(b)
	}
	return c, nil
}

func optString(v string) mo.Option[string] {
	if strings.TrimSpace(v) == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}

func optDate(v string) (mo.Option[time.Time], error) {
	if v == "" {
		return mo.None[time.Time](), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return mo.None[time.Time](), err
	}
	return mo.Some(t), nil
}

func optFloat(v string) (mo.Option[float64], error) {
	if v == "" {
		return mo.None[float64](), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return mo.None[float64](), err
	}
	return mo.Some(f), nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Stats())
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	body := ics.Export(snap.Events(), CalendarName, snap.BuiltAt())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="lusocal.ics"`)
	_, _ = w.Write([]byte(body))
}
