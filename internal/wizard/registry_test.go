package wizard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesLiveSession(t *testing.T) {
	reg := NewRegistry(time.Hour)
	builds := 0
	build := func() (*Wizard, error) {
		builds++
		return New(Options{}), nil
	}

	first, err := reg.GetOrCreate("user-1", build)
	require.NoError(t, err)
	second, err := reg.GetOrCreate("user-1", build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(30 * time.Minute)
	reg.now = func() time.Time { return now }

	_, err := reg.GetOrCreate("user-1", func() (*Wizard, error) { return New(Options{}), nil })
	require.NoError(t, err)
	_, err = reg.GetOrCreate("user-2", func() (*Wizard, error) { return New(Options{}), nil })
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	_, ok := reg.Get("user-2")
	require.True(t, ok)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	_, ok = reg.Get("user-1")
	assert.False(t, ok)
	_, ok = reg.Get("user-2")
	assert.True(t, ok)
}

func TestRegistryDiscard(t *testing.T) {
	reg := NewRegistry(time.Hour)
	_, err := reg.GetOrCreate("user-1", func() (*Wizard, error) { return New(Options{}), nil })
	require.NoError(t, err)

	reg.Discard("user-1")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryBuildError(t *testing.T) {
	reg := NewRegistry(time.Hour)
	_, err := reg.GetOrCreate("user-1", func() (*Wizard, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryBuildDoesNotBlockOtherUsers(t *testing.T) {
	reg := NewRegistry(time.Hour)
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := reg.GetOrCreate("slow-user", func() (*Wizard, error) {
			close(started)
			<-release
			return New(Options{}), nil
		})
		assert.NoError(t, err)
	}()
	<-started

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = reg.Len()
		_, err := reg.GetOrCreate("other-user", func() (*Wizard, error) { return New(Options{}), nil })
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("other user waited on a slow build")
	}
	close(release)
	wg.Wait()
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryConcurrentBuildKeepsFirstStored(t *testing.T) {
	reg := NewRegistry(time.Hour)
	release := make(chan struct{})
	started := make(chan struct{})
	slow := New(Options{})

	results := make(chan *Wizard, 1)
	go func() {
		w, err := reg.GetOrCreate("user-1", func() (*Wizard, error) {
			close(started)
			<-release
			return slow, nil
		})
		assert.NoError(t, err)
		results <- w
	}()
	<-started

	fast, err := reg.GetOrCreate("user-1", func() (*Wizard, error) { return New(Options{}), nil })
	require.NoError(t, err)
	close(release)

	assert.Same(t, fast, <-results)
	assert.Equal(t, 1, reg.Len())
}
