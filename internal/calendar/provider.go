package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	appLog "lusocal/internal/log"
)

// Source loads the inputs of a synthesis run, e.g. the catalog file plus
// community feeds.
type Source func(ctx context.Context) (Inputs, error)

// Status is the observable state of a Provider.
type Status struct {
	Loading    bool      `json:"loading"`
	Error      string    `json:"error,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
	Events     int       `json:"events"`
	Skipped    int       `json:"skipped"`
}

// ErrRefreshInProgress is returned by Refresh when another refresh holds
// the provider.
var ErrRefreshInProgress = errors.New("calendar: refresh already in progress")

// Provider owns the current snapshot and swaps it atomically on refresh.
// Readers never observe a partially built snapshot.
type Provider struct {
	source Source
	synth  *Synthesizer

	mu      sync.RWMutex
	current *Snapshot
	loading bool
	lastErr error
}

func NewProvider(source Source, synth *Synthesizer) *Provider {
	if synth == nil {
		synth = NewSynthesizer()
	}
	return &Provider{
		source:  source,
		synth:   synth,
		current: Empty(),
	}
}

// Current returns the latest snapshot. It is never nil.
func (p *Provider) Current() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Status{
		Loading:    p.loading,
		SnapshotID: p.current.ID(),
		BuiltAt:    p.current.BuiltAt(),
		Events:     p.current.Len(),
		Skipped:    len(p.current.report.Skipped),
	}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	return st
}

// Refresh reloads inputs and rebuilds the snapshot. When loading or
// synthesis fails the snapshot is replaced by an empty one and the error
// is kept for Status; the error is also returned.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrRefreshInProgress
	}
	p.loading = true
	p.mu.Unlock()

	snap, err := p.build(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		appLog.Error("calendar refresh failed", err)
		p.current = Empty()
		p.lastErr = err
		return err
	}
	p.current = snap
	p.lastErr = nil
	return nil
}

func (p *Provider) build(ctx context.Context) (*Snapshot, error) {
	if p.source == nil {
		return nil, ErrNoCatalog
	}
	in, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.synth.Synthesize(in)
}
