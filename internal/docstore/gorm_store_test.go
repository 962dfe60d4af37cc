package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/portfolio/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:docstore-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn)
	require.NoError(t, err)

	store := NewGormStore(gdb, nil)
	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close(gdb)
	})
	return store
}

// recorder 收集监听器收到的快照
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func (r *recorder) last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func TestGetMissingDocument(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Get(context.Background(), Ref("portfolio", "hero"))
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, int64(0), snap.Revision)

	data, err := snap.Data()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSetReplacesDocumentAndBumpsRevision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "hero")

	first, err := store.Set(ctx, ref, map[string]any{"title": "Hello", "subtitle": "old"})
	require.NoError(t, err)
	assert.True(t, first.Exists)
	assert.Equal(t, int64(1), first.Revision)

	second, err := store.Set(ctx, ref, map[string]any{"title": "World"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Revision)

	got, err := store.Get(ctx, ref)
	require.NoError(t, err)
	data, err := got.Data()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "World"}, data, "writes replace the whole document")
}

func TestSetRejectsNonObjects(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Set(context.Background(), Ref("portfolio", "hero"), []string{"a"})
	assert.True(t, errors.Is(err, ErrNotObject), "got %v", err)

	_, err = store.Set(context.Background(), Ref("", "hero"), map[string]any{})
	assert.True(t, errors.Is(err, ErrInvalidRef), "got %v", err)
}

func TestDeleteLeavesTombstone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "about")

	_, err := store.Set(ctx, ref, map[string]any{"title": "About"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, ref))

	snap, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, int64(2), snap.Revision)

	// 再次删除不会改变版本号
	require.NoError(t, store.Delete(ctx, ref))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Revision)

	recreated, err := store.Set(ctx, ref, map[string]any{"title": "Back"})
	require.NoError(t, err)
	assert.True(t, recreated.Exists)
	assert.Equal(t, int64(3), recreated.Revision)
}

func TestListSkipsDeletedAndOtherCollections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"skills", "about", "hero"} {
		_, err := store.Set(ctx, Ref("portfolio", id), map[string]any{"id": id})
		require.NoError(t, err)
	}
	_, err := store.Set(ctx, Ref("drafts", "hero"), map[string]any{})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, Ref("portfolio", "skills")))

	snaps, err := store.List(ctx, "portfolio")
	require.NoError(t, err)
	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.Ref.ID)
	}
	assert.Equal(t, []string{"about", "hero"}, ids)
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "hero")

	rec := &recorder{}
	reg, err := store.Subscribe(ctx, ref, rec.listen)
	require.NoError(t, err)
	defer reg.Unsubscribe()

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	initial, _ := rec.last()
	assert.False(t, initial.Exists)

	_, err = store.Set(ctx, ref, map[string]any{"title": "v1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && last.Exists && last.Revision == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Delete(ctx, ref))
	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && !last.Exists && last.Revision == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeDeliversRevisionsInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "skills")

	rec := &recorder{}
	reg, err := store.Subscribe(ctx, ref, rec.listen)
	require.NoError(t, err)
	defer reg.Unsubscribe()

	for i := 1; i <= 20; i++ {
		_, err := store.Set(ctx, ref, map[string]any{"n": i})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && last.Revision == 20
	}, 2*time.Second, 5*time.Millisecond)

	var prev int64 = -1
	for _, snap := range rec.all() {
		assert.Greater(t, snap.Revision, prev, "revisions must never go backwards")
		prev = snap.Revision
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "about")

	rec := &recorder{}
	reg, err := store.Subscribe(ctx, ref, rec.listen)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	reg.Unsubscribe()
	reg.Unsubscribe()
	assert.Equal(t, 0, store.hub.count(ref))

	_, err = store.Set(ctx, ref, map[string]any{"title": "after"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.all(), 1)
}

func TestUnsubscribeFromInsideListener(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "hero")

	regs := make(chan Registration, 1)
	rec := &recorder{}
	reg, err := store.Subscribe(ctx, ref, func(s Snapshot) {
		rec.listen(s)
		(<-regs).Unsubscribe()
	})
	require.NoError(t, err)
	regs <- reg

	require.Eventually(t, func() bool { return store.hub.count(ref) == 0 }, time.Second, 5*time.Millisecond)

	_, err = store.Set(ctx, ref, map[string]any{"title": "after"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.all(), 1)

	closed := make(chan error, 1)
	go func() { closed <- store.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close blocked after unsubscribe inside listener")
	}
}

func TestCloseDoesNotWaitForBusyListener(t *testing.T) {
	store := newTestStore(t)
	ref := Ref("portfolio", "about")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := store.Subscribe(context.Background(), ref, func(Snapshot) {
		once.Do(func() { close(entered) })
		<-release
	})
	require.NoError(t, err)
	defer close(release)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("initial snapshot not delivered")
	}

	closed := make(chan error, 1)
	go func() { closed <- store.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close waited for a running listener")
	}
	assert.Equal(t, 0, store.hub.count(ref))
}

func TestListenerPanicIsContained(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ref := Ref("portfolio", "hero")

	var (
		mu    sync.Mutex
		calls int
	)
	reg, err := store.Subscribe(ctx, ref, func(Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("boom")
	})
	require.NoError(t, err)
	defer reg.Unsubscribe()

	_, err = store.Set(ctx, ref, map[string]any{"title": "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	store := newTestStore(t)
	ref := Ref("portfolio", "hero")

	rec := &recorder{}
	_, err := store.Subscribe(context.Background(), ref, rec.listen)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.Equal(t, 0, store.hub.count(ref))

	_, err = store.Get(context.Background(), ref)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Set(context.Background(), ref, map[string]any{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Subscribe(context.Background(), ref, rec.listen)
	assert.ErrorIs(t, err, ErrClosed)
}
