package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice_Append(t *testing.T) {
	s := NewSlice[int]()

	s.Append(1)
	s.Append(2)
	s.Append(3)

	assert.Equal(t, 3, s.Length())
	assert.Equal(t, []int{1, 2, 3}, s.All())
}

func TestSlice_AllIsSnapshot(t *testing.T) {
	s := NewSlice[int]()
	s.Append(1)
	s.Append(2)

	all := s.All()
	all[0] = 100
	s.Append(3)

	assert.Equal(t, []int{1, 2, 3}, s.All())
	assert.Len(t, all, 2)
}

func TestSlice_LimitEvictsOldest(t *testing.T) {
	s := NewSharedSlice[int](&sync.RWMutex{}, 3)

	for i := range 3 {
		assert.Zero(t, s.Append(i))
	}
	assert.Equal(t, 1, s.Append(3))
	assert.Equal(t, []int{1, 2, 3}, s.All())

	dropped := s.Prepend([]int{-2, -1})
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []int{1, 2, 3}, s.All())
}

func TestSlice_Prepend(t *testing.T) {
	s := NewSlice[string]()
	s.Append("new")

	assert.Zero(t, s.Prepend([]string{"old1", "old2"}))
	assert.Zero(t, s.Prepend(nil))
	assert.Equal(t, []string{"old1", "old2", "new"}, s.All())

	values, head := s.Snapshot()
	assert.Equal(t, []string{"old1", "old2", "new"}, values)
	assert.Equal(t, 2, s.DropBefore(head+2))
	assert.Equal(t, []string{"new"}, s.All())
}

func TestSlice_DropBeforeKeepsLaterAppends(t *testing.T) {
	s := NewSlice[string]()
	s.Append("a")
	s.Append("b")

	snapshot, head := s.Snapshot()
	s.Append("c")
	assert.Equal(t, 2, s.DropBefore(head+int64(len(snapshot))))
	assert.Equal(t, []string{"c"}, s.All())

	assert.Zero(t, s.DropBefore(head))
	assert.Equal(t, 1, s.DropBefore(head+100))
	assert.Zero(t, s.Length())
}

func TestSlice_DropBeforeAfterEviction(t *testing.T) {
	s := NewSharedSlice[int](&sync.RWMutex{}, 3)
	s.Append(1)
	s.Append(2)

	snapshot, head := s.Snapshot()
	// Two more appends evict 1 while the snapshot is being handed off.
	s.Append(3)
	s.Append(4)

	assert.Equal(t, 1, s.DropBefore(head+int64(len(snapshot))))
	assert.Equal(t, []int{3, 4}, s.All())
}

func TestSlice_Revision(t *testing.T) {
	s := NewSharedSlice[int](&sync.RWMutex{}, 2)
	s.Append(1)
	s.Append(2)

	rev := s.Revision()
	s.Append(3)
	assert.Equal(t, 2, s.Length())
	assert.Greater(t, s.Revision(), rev, "an evicting append changes the revision")

	rev = s.Revision()
	_ = s.All()
	assert.Zero(t, s.DropBefore(0))
	assert.Equal(t, rev, s.Revision())

	_, head := s.Snapshot()
	s.DropBefore(head + 1)
	assert.Greater(t, s.Revision(), rev)
}

func TestSlice_SharedLock(t *testing.T) {
	var mu sync.RWMutex
	a := NewSharedSlice[int](&mu, 0)
	b := NewSharedSlice[string](&mu, 0)

	mu.Lock()
	done := make(chan struct{})
	go func() {
		a.Append(1)
		b.Append("x")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("append must wait for the shared lock")
	default:
	}
	mu.Unlock()
	<-done

	assert.Equal(t, 1, a.Length())
	assert.Equal(t, 1, b.Length())
}

func TestSlice_Concurrent(t *testing.T) {
	s := NewSlice[int]()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append(n)
		}(i)
	}

	wg.Wait()
	require.Equal(t, 100, s.Length())
}

func TestMap_StoreLoadDelete(t *testing.T) {
	m := NewMap[string, []byte]()
	m.Store("events", []byte("x"))

	v, ok := m.Load("events")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), v)
	assert.Equal(t, 1, m.Length())

	assert.True(t, m.Delete("events"))
	assert.False(t, m.Delete("events"))
	_, ok = m.Load("events")
	assert.False(t, ok)
}
