package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	doc     *Document
	saves   int
	saveErr error
}

func (m *memBackend) Load(context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return DefaultDocument(), nil
	}
	return m.doc.Clone(), nil
}

func (m *memBackend) Save(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.doc = doc.Clone()
	return nil
}

func TestSharedUpdatePersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	shared, err := Open(ctx, backend)
	require.NoError(t, err)

	require.NoError(t, shared.Update(ctx, func(d *Document) error {
		d.Profile.Name = "Aria"
		return nil
	}))

	assert.Equal(t, "Aria", shared.Snapshot().Profile.Name)
	assert.Equal(t, "Aria", backend.doc.Profile.Name)
	assert.Equal(t, 1, backend.saves)
}

func TestSharedUpdateKeepsDocumentOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{saveErr: errors.New("disk full")}
	shared, err := Open(ctx, backend)
	require.NoError(t, err)

	err = shared.Update(ctx, func(d *Document) error {
		d.Profile.Name = "Aria"
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.saveErr)
	assert.Empty(t, shared.Snapshot().Profile.Name)
}

func TestSharedUpdateSkipsSaveWhenFnFails(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	shared, err := Open(ctx, backend)
	require.NoError(t, err)

	sentinel := errors.New("rejected")
	err = shared.Update(ctx, func(d *Document) error {
		d.Profile.Name = "half-done"
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Zero(t, backend.saves)
	assert.Empty(t, shared.Snapshot().Profile.Name)
}

func TestSharedSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	shared, err := Open(ctx, &memBackend{})
	require.NoError(t, err)

	snap := shared.Snapshot()
	snap.Profile.Services = append(snap.Profile.Services, "x")
	snap.PostTypes.Set("leak", &PostType{})

	fresh := shared.Snapshot()
	assert.Empty(t, fresh.Profile.Services)
	assert.Equal(t, 0, fresh.PostTypes.Len())
}

func TestSharedConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	shared, err := Open(ctx, &memBackend{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = shared.Update(ctx, func(d *Document) error {
				d.Profile.Services = append(d.Profile.Services, "s")
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, shared.Snapshot().Profile.Services, 20)
}

func TestSharedReload(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	shared, err := Open(ctx, backend)
	require.NoError(t, err)

	external := DefaultDocument()
	external.Profile.Name = "Edited"
	backend.doc = external

	require.NoError(t, shared.Reload(ctx))
	assert.Equal(t, "Edited", shared.Snapshot().Profile.Name)
}
