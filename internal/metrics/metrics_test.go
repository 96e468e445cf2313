package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lusocal/internal/calendar"
	"lusocal/internal/model"
)

func TestObserveSynthesis(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewObserver("test", reg)
	require.NoError(t, err)

	o.ObserveSynthesis(calendar.Report{
		Counts:     map[model.EventType]int{model.TypeCultural: 120, model.TypeCelebration: 22},
		Skipped:    []*calendar.SpecError{{Source: calendar.SourceRecurring, SpecID: "x"}},
		Duplicates: 2,
		Duration:   40 * time.Millisecond,
	}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.runs.WithLabelValues("ok")))
	assert.Equal(t, 120.0, testutil.ToFloat64(o.events.WithLabelValues("cultural")))
	assert.Equal(t, 22.0, testutil.ToFloat64(o.events.WithLabelValues("celebration")))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.events.WithLabelValues("university")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.skipped.WithLabelValues(calendar.SourceRecurring)))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.duplicates))

	o.ObserveSynthesis(calendar.Report{}, errors.New("no catalog"))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.runs.WithLabelValues("error")))
	assert.Equal(t, 0, testutil.CollectAndCount(o.events))
}

func TestNewObserverReusesRegisteredCollectors(t *testing.T) {
	reg := promclient.NewRegistry()
	first, err := NewObserver("test", reg)
	require.NoError(t, err)
	second, err := NewObserver("test", reg)
	require.NoError(t, err)

	first.ObserveSynthesis(calendar.Report{}, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.runs.WithLabelValues("ok")))
}

func TestInstrument(t *testing.T) {
	o, err := NewObserver("test", promclient.NewRegistry())
	require.NoError(t, err)

	h := o.Instrument("events", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "nope", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events?fail=1", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("events", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("events", "400")))
}

func TestNilObserver(t *testing.T) {
	var o *Observer
	assert.NotPanics(t, func() { o.ObserveSynthesis(calendar.Report{}, nil) })
	h := http.NotFoundHandler()
	assert.NotNil(t, o.Instrument("x", h))
}
