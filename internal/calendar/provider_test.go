package calendar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSource(in Inputs, err error) Source {
	return func(context.Context) (Inputs, error) { return in, err }
}

func TestProviderStartsEmpty(t *testing.T) {
	p := NewProvider(staticSource(Inputs{Catalog: testCatalog()}, nil), nil)
	require.NotNil(t, p.Current())
	assert.Zero(t, p.Current().Len())

	st := p.Status()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Empty(t, st.SnapshotID)
}

func TestProviderRefresh(t *testing.T) {
	p := NewProvider(staticSource(Inputs{Catalog: testCatalog()}, nil), NewSynthesizer(WithClock(clock)))
	require.NoError(t, p.Refresh(context.Background()))

	st := p.Status()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, p.Current().ID(), st.SnapshotID)
	assert.Equal(t, 24+104+4, st.Events)
}

func TestProviderRefreshFailureClearsSnapshot(t *testing.T) {
	in := Inputs{Catalog: testCatalog()}
	var fail bool
	src := func(context.Context) (Inputs, error) {
		if fail {
			return Inputs{}, errors.New("catalog unreadable")
		}
		return in, nil
	}
	p := NewProvider(src, NewSynthesizer(WithClock(clock)))
	require.NoError(t, p.Refresh(context.Background()))
	require.NotZero(t, p.Current().Len())

	fail = true
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Zero(t, p.Current().Len())
	assert.Equal(t, "catalog unreadable", p.Status().Error)

	fail = false
	require.NoError(t, p.Refresh(context.Background()))
	assert.Empty(t, p.Status().Error)
}

func TestProviderNilCatalog(t *testing.T) {
	p := NewProvider(staticSource(Inputs{}, nil), nil)
	assert.ErrorIs(t, p.Refresh(context.Background()), ErrNoCatalog)
	assert.Equal(t, ErrNoCatalog.Error(), p.Status().Error)
}

func TestProviderCanceledContext(t *testing.T) {
	p := NewProvider(staticSource(Inputs{Catalog: testCatalog()}, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Refresh(ctx), context.Canceled)
}

func TestProviderRejectsOverlappingRefresh(t *testing.T) {
	release := make(chan struct{})
	src := func(context.Context) (Inputs, error) {
		<-release
		return Inputs{Catalog: testCatalog()}, nil
	}
	p := NewProvider(src, NewSynthesizer(WithClock(clock)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, p.Refresh(context.Background()))
	}()

	require.Eventually(t, func() bool { return p.Status().Loading }, time.Second, time.Millisecond)
	assert.ErrorIs(t, p.Refresh(context.Background()), ErrRefreshInProgress)
	// Readers keep the previous snapshot while loading.
	assert.NotNil(t, p.Current())

	close(release)
	wg.Wait()
	assert.False(t, p.Status().Loading)
	assert.NotZero(t, p.Current().Len())
}
